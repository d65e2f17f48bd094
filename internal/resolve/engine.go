package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"localdeck/internal/content"
	"localdeck/internal/fetch"
	"localdeck/internal/logging"
	"localdeck/internal/registry"
)

// ErrUnknownCard marks a card with no stored content and no usable fallback
// hint. Terminal for the request; the caller decides whether to retry with a
// hint.
var ErrUnknownCard = errors.New("unknown card")

// Resolution is the outcome of resolving a card: the content reference to
// play and whether the fallback path was taken to get it.
type Resolution struct {
	CardID  string
	Ref     string
	Fetched bool
}

// Engine turns (cardID, sourceHint) pairs into playable content references.
// It consults the registry first, falls back to fetching, and keeps the
// registry consistent with what actually landed in the content store.
type Engine struct {
	registry *registry.Store
	store    *content.Store
	fetcher  *fetch.Fetcher
	logger   *slog.Logger
}

// New builds an Engine over the given stores and fetcher.
func New(reg *registry.Store, store *content.Store, fetcher *fetch.Fetcher, logger *slog.Logger) *Engine {
	return &Engine{
		registry: reg,
		store:    store,
		fetcher:  fetcher,
		logger:   logging.NewComponentLogger(logger, "resolve"),
	}
}

// Resolve maps a card to a content reference.
//
// A registry hit whose content is still on disk returns immediately. A hit
// whose content has drifted away is logged and treated as a miss. A miss
// with no source hint fails with ErrUnknownCard; with a hint, the fetcher is
// invoked and the new binding persisted. Fetcher and store errors pass
// through unchanged.
func (e *Engine) Resolve(ctx context.Context, cardID, sourceHint string) (Resolution, error) {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return Resolution{}, fmt.Errorf("%w: empty card id", ErrUnknownCard)
	}

	track, err := e.registry.Lookup(ctx, cardID)
	if err != nil {
		return Resolution{}, err
	}
	if track != nil && track.HasContent() {
		if e.store.Exists(track.ContentRef) {
			e.touchAsync(cardID)
			return Resolution{CardID: cardID, Ref: track.ContentRef}, nil
		}
		e.logger.Warn("registry references missing content, re-resolving",
			logging.String(logging.FieldCardID, cardID),
			logging.String(logging.FieldContentRef, track.ContentRef))
	}

	// Prefer the fresh hint; a drifted track may still carry the source it
	// was originally fetched from.
	hint := strings.TrimSpace(sourceHint)
	if hint == "" && track != nil {
		hint = track.SourceRef
	}
	if hint == "" {
		return Resolution{}, fmt.Errorf("%w: %s has no content and no fallback hint", ErrUnknownCard, cardID)
	}

	result, err := e.fetcher.Fetch(ctx, hint)
	if err != nil {
		return Resolution{}, err
	}

	if err := e.registry.Upsert(ctx, cardID, result.Ref, result.Source); err != nil {
		return Resolution{}, err
	}
	e.saveMetadata(ctx, cardID, result)
	e.touchAsync(cardID)

	e.logger.Info("card bound via fallback",
		logging.String(logging.FieldCardID, cardID),
		logging.String(logging.FieldSource, result.Source),
		logging.String(logging.FieldContentRef, result.Ref))
	return Resolution{CardID: cardID, Ref: result.Ref, Fetched: true}, nil
}

// saveMetadata records scraped metadata without clobbering anything entered
// by hand earlier.
func (e *Engine) saveMetadata(ctx context.Context, cardID string, result fetch.Result) {
	update := registry.MetadataUpdate{}
	if result.Artist != "" {
		update.Artist = &result.Artist
	}
	if result.Title != "" {
		update.Title = &result.Title
	}
	if result.Year > 0 {
		update.Year = &result.Year
	}
	if result.ArtworkURL != "" {
		update.ArtworkURL = &result.ArtworkURL
	}
	if update.IsEmpty() {
		return
	}
	if err := e.registry.SetMetadata(ctx, cardID, update, false); err != nil {
		e.logger.Warn("saving fetched metadata failed",
			logging.String(logging.FieldCardID, cardID),
			logging.Error(err))
	}
}

// touchAsync records a play without holding up the response.
func (e *Engine) touchAsync(cardID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.registry.Touch(ctx, cardID); err != nil {
			e.logger.Warn("touch failed",
				logging.String(logging.FieldCardID, cardID),
				logging.Error(err))
		}
	}()
}
