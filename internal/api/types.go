package api

import (
	"time"

	"localdeck/internal/playback"
	"localdeck/internal/registry"
)

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Track describes a registered card in a transport-friendly format.
type Track struct {
	CardID       string `json:"cardId"`
	ContentRef   string `json:"contentRef,omitempty"`
	SourceRef    string `json:"sourceRef,omitempty"`
	Artist       string `json:"artist,omitempty"`
	Title        string `json:"title,omitempty"`
	Year         int    `json:"year,omitempty"`
	Label        string `json:"label,omitempty"`
	ArtworkURL   string `json:"artworkUrl,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
	LastPlayedAt string `json:"lastPlayedAt,omitempty"`
}

// PlayResult is the response body of the /play trigger endpoint.
type PlayResult struct {
	CardID     string `json:"cardId"`
	ContentRef string `json:"contentRef"`
	Fetched    bool   `json:"fetched"`
}

// DeckStatus reports what the deck is doing right now.
type DeckStatus struct {
	State      string `json:"state"`
	ContentRef string `json:"contentRef,omitempty"`
	StartedAt  string `json:"startedAt,omitempty"`
}

// Status is the daemon status payload: deck state plus registry counts.
type Status struct {
	Deck        DeckStatus `json:"deck"`
	Tracks      int        `json:"tracks"`
	Bound       int        `json:"bound"`
	NeverPlayed int        `json:"neverPlayed"`
}

// Error is the JSON error envelope for all non-2xx responses.
type Error struct {
	Error string `json:"error"`
}

// FromTrack converts a registry track into its transport form.
func FromTrack(t *registry.Track) Track {
	out := Track{
		CardID:     t.CardID,
		ContentRef: t.ContentRef,
		SourceRef:  t.SourceRef,
		Artist:     t.Artist,
		Title:      t.Title,
		Year:       t.Year,
		Label:      t.Label,
		ArtworkURL: t.ArtworkURL,
		CreatedAt:  formatTime(t.CreatedAt),
		UpdatedAt:  formatTime(t.UpdatedAt),
	}
	if t.LastPlayedAt != nil {
		out.LastPlayedAt = formatTime(*t.LastPlayedAt)
	}
	return out
}

// FromTracks converts a slice of registry tracks, never returning nil so
// the JSON encodes as [] rather than null.
func FromTracks(tracks []*registry.Track) []Track {
	out := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, FromTrack(t))
	}
	return out
}

// FromDeckStatus converts a playback status snapshot.
func FromDeckStatus(s playback.Status) DeckStatus {
	out := DeckStatus{State: string(s.State), ContentRef: s.Ref}
	if !s.StartedAt.IsZero() {
		out.StartedAt = formatTime(s.StartedAt)
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
