// Package config loads, normalizes, and validates localdeck configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and derives the data-directory layout used by
// the registry and the content store. The Config type centralizes every knob
// the daemon and CLI need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
