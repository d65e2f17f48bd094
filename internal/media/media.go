// Package media centralizes the audio container knowledge shared by the
// content store, the library scanner, and the HTTP stream handler: which file
// extensions count as music, the canonical format tag for a file, and the
// MIME type browsers need for playback.
package media

import (
	"path/filepath"
	"strings"
)

// formatMIME maps canonical format tags to MIME types. The m4a entry uses the
// Safari-compatible x-m4a type rather than audio/mp4.
var formatMIME = map[string]string{
	"m4a":  "audio/x-m4a",
	"aac":  "audio/aac",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"opus": "audio/ogg",
	"flac": "audio/flac",
	"webm": "audio/webm",
}

// IsMusicFile reports whether the path looks like a playable audio file by
// extension.
func IsMusicFile(path string) bool {
	_, ok := formatMIME[FormatForPath(path)]
	return ok
}

// FormatForPath returns the canonical lowercase format tag for a path, or ""
// when the path has no extension.
func FormatForPath(path string) string {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return strings.ToLower(ext)
}

// NormalizeFormat validates a caller-supplied format hint and falls back to
// the given default when the hint is unknown.
func NormalizeFormat(hint, fallback string) string {
	tag := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(hint, ".")))
	if _, ok := formatMIME[tag]; ok {
		return tag
	}
	return fallback
}

// MIMEForFormat returns the MIME type for a canonical format tag, defaulting
// to application/octet-stream for unknown tags.
func MIMEForFormat(format string) string {
	if mime, ok := formatMIME[strings.ToLower(format)]; ok {
		return mime
	}
	return "application/octet-stream"
}

// MIMEForPath returns the MIME type for a file path based on its extension.
func MIMEForPath(path string) string {
	return MIMEForFormat(FormatForPath(path))
}
