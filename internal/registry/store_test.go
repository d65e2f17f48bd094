package registry

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return store
}

func TestLookupUnknownCard(t *testing.T) {
	store := newTestStore(t)

	track, err := store.Lookup(context.Background(), "no-such-card")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if track != nil {
		t.Fatalf("expected nil track for unknown card, got %+v", track)
	}
}

func TestUpsertAndLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "card-1", "abc123.m4a", "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	track, err := store.Lookup(ctx, "card-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if track == nil {
		t.Fatal("expected track after upsert")
	}
	if track.ContentRef != "abc123.m4a" {
		t.Errorf("content ref = %q, want abc123.m4a", track.ContentRef)
	}
	if track.SourceRef != "dQw4w9WgXcQ" {
		t.Errorf("source ref = %q, want dQw4w9WgXcQ", track.SourceRef)
	}
	if track.LastPlayedAt != nil {
		t.Errorf("last played should be unset after upsert, got %v", *track.LastPlayedAt)
	}
	if track.CreatedAt.IsZero() || track.UpdatedAt.IsZero() {
		t.Error("timestamps should be populated")
	}
}

func TestUpsertRebindsWithoutTouchingPlayback(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "card-1", "old.m4a", "src-1"); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := store.Touch(ctx, "card-1"); err != nil {
		t.Fatalf("touch: %v", err)
	}
	if err := store.Upsert(ctx, "card-1", "new.m4a", "src-2"); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	track, err := store.Lookup(ctx, "card-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if track.ContentRef != "new.m4a" {
		t.Errorf("content ref = %q, want new.m4a", track.ContentRef)
	}
	if track.LastPlayedAt == nil {
		t.Error("rebind should not clear last_played_at")
	}
}

func TestTouchUnknownCardIsNoOp(t *testing.T) {
	store := newTestStore(t)

	if err := store.Touch(context.Background(), "missing"); err != nil {
		t.Fatalf("touch on unknown card should be silent, got %v", err)
	}
}

func TestSetMetadataPreservesUnlessOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "card-1", "ref.m4a", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	artist := "The Clash"
	title := "London Calling"
	year := 1979
	if err := store.SetMetadata(ctx, "card-1", MetadataUpdate{Artist: &artist, Title: &title, Year: &year}, false); err != nil {
		t.Fatalf("set metadata: %v", err)
	}

	other := "Someone Else"
	if err := store.SetMetadata(ctx, "card-1", MetadataUpdate{Artist: &other}, false); err != nil {
		t.Fatalf("second set metadata: %v", err)
	}

	track, err := store.Lookup(ctx, "card-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if track.Artist != "The Clash" {
		t.Errorf("artist = %q, existing value should be preserved", track.Artist)
	}
	if track.Year != 1979 {
		t.Errorf("year = %d, want 1979", track.Year)
	}

	if err := store.SetMetadata(ctx, "card-1", MetadataUpdate{Artist: &other}, true); err != nil {
		t.Fatalf("overwrite set metadata: %v", err)
	}
	track, err = store.Lookup(ctx, "card-1")
	if err != nil {
		t.Fatalf("lookup after overwrite: %v", err)
	}
	if track.Artist != "Someone Else" {
		t.Errorf("artist = %q, overwrite should replace", track.Artist)
	}
	if track.Title != "London Calling" {
		t.Errorf("title = %q, untouched field should survive overwrite", track.Title)
	}
}

func TestSetMetadataUnknownCard(t *testing.T) {
	store := newTestStore(t)
	artist := "Nobody"

	err := store.SetMetadata(context.Background(), "missing", MetadataUpdate{Artist: &artist}, false)
	if err == nil {
		t.Fatal("expected error for unknown card")
	}
}

func TestFindMatchesCardArtistAndTitle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	seed := []struct {
		card, artist, title string
	}{
		{"aaa111", "Nina Simone", "Feeling Good"},
		{"bbb222", "Miles Davis", "So What"},
		{"ccc333", "", ""},
	}
	for _, s := range seed {
		if err := store.Upsert(ctx, s.card, "ref.m4a", ""); err != nil {
			t.Fatalf("upsert %s: %v", s.card, err)
		}
		if s.artist != "" {
			artist, title := s.artist, s.title
			if err := store.SetMetadata(ctx, s.card, MetadataUpdate{Artist: &artist, Title: &title}, true); err != nil {
				t.Fatalf("metadata %s: %v", s.card, err)
			}
		}
	}

	cases := []struct {
		query string
		want  int
	}{
		{"nina", 1},
		{"SO WHAT", 1},
		{"ccc", 1},
		{"zzz", 0},
		{"", 3},
	}
	for _, tc := range cases {
		got, err := store.Find(ctx, tc.query)
		if err != nil {
			t.Fatalf("find %q: %v", tc.query, err)
		}
		if len(got) != tc.want {
			t.Errorf("find %q returned %d tracks, want %d", tc.query, len(got), tc.want)
		}
	}
}

func TestForget(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "card-1", "ref.m4a", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	removed, err := store.Forget(ctx, "card-1")
	if err != nil {
		t.Fatalf("forget: %v", err)
	}
	if !removed {
		t.Error("forget should report removal")
	}

	removed, err = store.Forget(ctx, "card-1")
	if err != nil {
		t.Fatalf("second forget: %v", err)
	}
	if removed {
		t.Error("second forget should report nothing removed")
	}
}

func TestRefCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, card := range []string{"a", "b", "c"} {
		if err := store.Upsert(ctx, card, "shared.m4a", ""); err != nil {
			t.Fatalf("upsert %s: %v", card, err)
		}
	}
	if err := store.Upsert(ctx, "d", "other.m4a", ""); err != nil {
		t.Fatalf("upsert d: %v", err)
	}

	count, err := store.RefCount(ctx, "shared.m4a")
	if err != nil {
		t.Fatalf("ref count: %v", err)
	}
	if count != 3 {
		t.Errorf("ref count = %d, want 3", count)
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Upsert(ctx, "played", "a.m4a", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Upsert(ctx, "fresh", "b.m4a", ""); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Touch(ctx, "played"); err != nil {
		t.Fatalf("touch: %v", err)
	}

	summary, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if summary.Total != 2 {
		t.Errorf("total = %d, want 2", summary.Total)
	}
	if summary.Bound != 2 {
		t.Errorf("bound = %d, want 2", summary.Bound)
	}
	if summary.NeverPlayed != 1 {
		t.Errorf("never played = %d, want 1", summary.NeverPlayed)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "registry.db")
	ctx := context.Background()

	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Upsert(ctx, "card-1", "ref.m4a", "src"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	track, err := reopened.Lookup(ctx, "card-1")
	if err != nil {
		t.Fatalf("lookup after reopen: %v", err)
	}
	if track == nil || track.ContentRef != "ref.m4a" {
		t.Fatalf("expected persisted track, got %+v", track)
	}
}
