// Package registry persists the card-to-content bindings in SQLite. Each
// track row maps a printed card id to a content store reference plus the
// metadata shown in listings. Rows survive daemon restarts; the schema is
// embedded and guarded by a version check.
package registry
