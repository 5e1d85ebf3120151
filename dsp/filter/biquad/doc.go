// Package biquad provides the second-order IIR section runtime used by the
// tap filters.
//
// A [Section] implements Direct Form II Transposed processing for a single
// section defined by [Coefficients]. Coefficients may be swapped while the
// section runs, which keeps the delay-line state and so lets callers sweep
// a cutoff without restarting the filter.
//
// Coefficient design lives in dsp/filter/design.
package biquad
