// Package api defines the wire-format types shared by the daemon's HTTP
// surface and the CLI. It translates internal track models into
// transport-friendly DTOs so consumers never couple to storage types.
//
// DTOs use camelCase JSON tags. Timestamps use RFC3339 with milliseconds.
// The /play trigger response is part of the printed-card contract and must
// stay shape-stable.
package api
