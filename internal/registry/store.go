package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages track persistence backed by SQLite. It is the durable source
// of truth for which cards are known; the content store holds the payloads
// the records point at.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the registry database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("registry path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure registry directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

const trackColumns = `card_id, content_ref, source_ref, artist, title, year, label, artwork_url, created_at, updated_at, last_played_at`

// Lookup fetches the record for a card. Returns (nil, nil) when the card is
// unknown.
func (s *Store) Lookup(ctx context.Context, cardID string) (*Track, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE card_id = ?`, cardID)
	track, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup track: %w", err)
	}
	return track, nil
}

// Upsert binds a card to a content reference, recording the fallback source
// used. Idempotent; the last writer for a card wins. LastPlayedAt is never
// touched here — playback bookkeeping goes through Touch.
func (s *Store) Upsert(ctx context.Context, cardID, contentRef, sourceRef string) error {
	cardID = strings.TrimSpace(cardID)
	if cardID == "" {
		return errors.New("card id is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO tracks (card_id, content_ref, source_ref, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(card_id) DO UPDATE SET
             content_ref = excluded.content_ref,
             source_ref = excluded.source_ref,
             updated_at = excluded.updated_at`,
		cardID, nullableString(contentRef), nullableString(sourceRef), now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert track: %w", err)
	}
	return nil
}

// Touch updates last_played_at for a card. A touch may race a concurrent
// first resolution, so an unknown card is a silent no-op rather than an
// error.
func (s *Store) Touch(ctx context.Context, cardID string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`UPDATE tracks SET last_played_at = ? WHERE card_id = ?`,
		now, cardID,
	)
	if err != nil {
		return fmt.Errorf("touch track: %w", err)
	}
	return nil
}

// SetMetadata updates metadata fields for a card. Without overwrite, fields
// that already hold a value are preserved.
func (s *Store) SetMetadata(ctx context.Context, cardID string, update MetadataUpdate, overwrite bool) error {
	if update.IsEmpty() {
		return errors.New("metadata update carries no fields")
	}
	track, err := s.Lookup(ctx, cardID)
	if err != nil {
		return err
	}
	if track == nil {
		return fmt.Errorf("track %s not found", cardID)
	}

	apply := func(current string, next *string) string {
		if next == nil {
			return current
		}
		if current != "" && !overwrite {
			return current
		}
		return strings.TrimSpace(*next)
	}
	track.Artist = apply(track.Artist, update.Artist)
	track.Title = apply(track.Title, update.Title)
	track.Label = apply(track.Label, update.Label)
	track.ArtworkURL = apply(track.ArtworkURL, update.ArtworkURL)
	if update.Year != nil && (track.Year == 0 || overwrite) {
		track.Year = *update.Year
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = s.execWithRetry(ctx,
		`UPDATE tracks SET artist = ?, title = ?, year = ?, label = ?, artwork_url = ?, updated_at = ?
         WHERE card_id = ?`,
		nullableString(track.Artist), nullableString(track.Title), nullableInt(track.Year),
		nullableString(track.Label), nullableString(track.ArtworkURL), now, cardID,
	)
	if err != nil {
		return fmt.Errorf("update metadata: %w", err)
	}
	return nil
}

// List returns all tracks ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*Track, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+trackColumns+` FROM tracks ORDER BY created_at, card_id`)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer rows.Close()
	return collectTracks(rows)
}

// Find returns tracks whose card id, artist, or title contains the query,
// case-insensitively.
func (s *Store) Find(ctx context.Context, query string) ([]*Track, error) {
	ctx = ensureContext(ctx)
	needle := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks
         WHERE lower(card_id) LIKE ? OR lower(coalesce(artist, '')) LIKE ? OR lower(coalesce(title, '')) LIKE ?
         ORDER BY created_at, card_id`,
		needle, needle, needle,
	)
	if err != nil {
		return nil, fmt.Errorf("find tracks: %w", err)
	}
	defer rows.Close()
	return collectTracks(rows)
}

// Forget removes a card binding. The content entry it pointed at is left in
// place; the store is append-only for correctness purposes.
func (s *Store) Forget(ctx context.Context, cardID string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM tracks WHERE card_id = ?`, cardID)
	if err != nil {
		return false, fmt.Errorf("forget track: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// RefCount returns how many tracks currently point at a content reference.
// Used only for retention decisions, never for deletion correctness.
func (s *Store) RefCount(ctx context.Context, contentRef string) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM tracks WHERE content_ref = ?`, contentRef,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ref count: %w", err)
	}
	return count, nil
}

// Stats returns aggregate registry counts.
func (s *Store) Stats(ctx context.Context) (Summary, error) {
	ctx = ensureContext(ctx)
	var summary Summary
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(1),
               COUNT(content_ref),
               SUM(CASE WHEN last_played_at IS NULL THEN 1 ELSE 0 END)
        FROM tracks`,
	).Scan(&summary.Total, &summary.Bound, &nullableIntScanner{&summary.NeverPlayed})
	if err != nil {
		return Summary{}, fmt.Errorf("registry stats: %w", err)
	}
	return summary, nil
}

func collectTracks(rows *sql.Rows) ([]*Track, error) {
	var tracks []*Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tracks: %w", err)
	}
	return tracks, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTrack(row scannable) (*Track, error) {
	var (
		track              Track
		contentRef         sql.NullString
		sourceRef          sql.NullString
		artist             sql.NullString
		title              sql.NullString
		year               sql.NullInt64
		label              sql.NullString
		artworkURL         sql.NullString
		createdAt          string
		updatedAt          string
		lastPlayedAt       sql.NullString
		parseErr, scanErr  error
	)
	scanErr = row.Scan(&track.CardID, &contentRef, &sourceRef, &artist, &title, &year,
		&label, &artworkURL, &createdAt, &updatedAt, &lastPlayedAt)
	if scanErr != nil {
		return nil, scanErr
	}

	track.ContentRef = contentRef.String
	track.SourceRef = sourceRef.String
	track.Artist = artist.String
	track.Title = title.String
	track.Year = int(year.Int64)
	track.Label = label.String
	track.ArtworkURL = artworkURL.String

	if track.CreatedAt, parseErr = parseTimestamp(createdAt); parseErr != nil {
		return nil, parseErr
	}
	if track.UpdatedAt, parseErr = parseTimestamp(updatedAt); parseErr != nil {
		return nil, parseErr
	}
	if lastPlayedAt.Valid {
		played, err := parseTimestamp(lastPlayedAt.String)
		if err != nil {
			return nil, err
		}
		track.LastPlayedAt = &played
	}
	return &track, nil
}

func parseTimestamp(value string) (time.Time, error) {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return ts, nil
}

func nullableString(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func nullableInt(value int) any {
	if value == 0 {
		return nil
	}
	return value
}

// nullableIntScanner treats a NULL aggregate as zero.
type nullableIntScanner struct {
	dst *int
}

func (n *nullableIntScanner) Scan(value any) error {
	if value == nil {
		*n.dst = 0
		return nil
	}
	switch v := value.(type) {
	case int64:
		*n.dst = int(v)
	case int:
		*n.dst = v
	default:
		return fmt.Errorf("unexpected aggregate type %T", value)
	}
	return nil
}
