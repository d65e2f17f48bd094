// Package content implements the content-addressed audio store.
//
// Every payload is stored once under a sha256-derived name; references are
// stable, opaque strings derived from the final file name. Writes follow a
// write-then-rename discipline so a crash mid-download can never corrupt a
// published entry, and re-storing identical bytes is a cheap no-op that
// returns the existing reference.
package content
