// Package resolve orchestrates the card-to-audio pipeline: registry lookup,
// drift detection, fallback fetching, and binding persistence.
package resolve
