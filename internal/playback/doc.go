// Package playback owns the deck's exclusive output slot. At most one
// stream is active at any moment; starting a new one interrupts and fully
// drains the old one first.
package playback
