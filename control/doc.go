// Package control is the boundary between the audio engine and whatever
// drives its parameters.
//
// A [Store] is a subscription table keyed by control id. Each control owns
// an atomic [Cell]: the control thread writes it through [Store.Set], the
// audio thread reads it without locking. Listeners registered with
// [Store.Subscribe] run on the writer's goroutine and are meant for editors
// and hosts, never for the audio path.
//
// [Smoothed] turns a cell into per-block start/end values so the engine can
// ramp a gain across one block.
package control
