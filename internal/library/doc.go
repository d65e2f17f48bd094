// Package library keeps local music collections in sync with the deck:
// scanning configured roots (including USB drives resolved by volume
// label), diffing the findings against the track registry, and ingesting
// new files into content storage under their hash-derived card ids.
package library
