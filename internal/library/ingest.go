package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"localdeck/internal/fetch"
	"localdeck/internal/logging"
	"localdeck/internal/registry"
)

// UpdateResult summarizes one library update pass.
type UpdateResult struct {
	Ingested int
	Skipped  int
}

// Update scans the roots and ingests every new file: the payload goes into
// the content store, and a card record keyed by the file's content hash is
// written to the registry. Running it twice is harmless; already-known
// files are skipped.
func (m *Manager) Update(ctx context.Context) (UpdateResult, error) {
	report, err := m.Status(ctx)
	if err != nil {
		return UpdateResult{}, err
	}

	var result UpdateResult
	result.Skipped = len(report.Known)
	for _, file := range report.New {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := m.ingest(ctx, file); err != nil {
			return result, fmt.Errorf("ingest %s: %w", file.Path, err)
		}
		result.Ingested++
	}
	return result, nil
}

func (m *Manager) ingest(ctx context.Context, file ScannedFile) error {
	f, err := os.Open(file.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	ref, err := m.store.Put(f, file.Format)
	if err != nil {
		return err
	}
	if err := m.registry.Upsert(ctx, file.CardID, ref, ""); err != nil {
		return err
	}

	if artist, title := guessTags(file.Path); title != "" {
		update := registry.MetadataUpdate{Title: &title}
		if artist != "" {
			update.Artist = &artist
		}
		if err := m.registry.SetMetadata(ctx, file.CardID, update, false); err != nil {
			m.logger.Warn("saving guessed metadata failed",
				logging.String(logging.FieldCardID, file.CardID),
				logging.Error(err))
		}
	}

	m.logger.Info("file ingested",
		logging.String("path", file.Path),
		logging.String(logging.FieldCardID, file.CardID),
		logging.String(logging.FieldContentRef, ref))
	return nil
}

// guessTags derives artist and title from the file name. Files ripped by
// hand usually follow the "Artist - Title.ext" convention; anything else
// becomes a bare title.
func guessTags(path string) (artist, title string) {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fetch.SplitTitle(base, "")
}
