// Package design provides high-pass and low-pass coefficient designers for
// the tap filters.
//
// Second-order designs follow the RBJ audio EQ cookbook. First-order designs
// use the bilinear transform with prewarped cutoff. An invalid frequency or
// sample rate yields the zero [biquad.Coefficients] value, which callers
// treat as "no valid design".
package design
