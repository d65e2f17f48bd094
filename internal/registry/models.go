package registry

import (
	"strings"
	"time"
)

// Track represents one known card binding persisted in SQLite.
//
// CardID is the opaque `h` value printed on the physical card and never
// changes once assigned. ContentRef points into the content store and is
// empty while a card has never resolved successfully. SourceRef retains the
// canonical fallback identifier last used to fill the record so a future
// refresh can re-fetch.
type Track struct {
	CardID       string
	ContentRef   string
	SourceRef    string
	Artist       string
	Title        string
	Year         int
	Label        string
	ArtworkURL   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastPlayedAt *time.Time
}

// HasContent reports whether the track claims a bound audio payload.
func (t *Track) HasContent() bool {
	return t != nil && strings.TrimSpace(t.ContentRef) != ""
}

// MetadataUpdate carries optional metadata fields for SetMetadata. Nil fields
// are left untouched.
type MetadataUpdate struct {
	Artist     *string
	Title      *string
	Year       *int
	Label      *string
	ArtworkURL *string
}

// IsEmpty reports whether the update carries no fields at all.
func (u MetadataUpdate) IsEmpty() bool {
	return u.Artist == nil && u.Title == nil && u.Year == nil && u.Label == nil && u.ArtworkURL == nil
}

// Summary describes aggregate registry counts for status output.
type Summary struct {
	Total       int
	Bound       int
	NeverPlayed int
}
