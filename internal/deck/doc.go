// Package deck hosts the daemon: it wires the registry, content store,
// fetcher, resolution engine, and playback controller together, enforces
// single-instance execution via a lock file, and serves the trigger
// endpoint plus the read-side HTTP API.
package deck
