package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"localdeck/internal/api"
	"localdeck/internal/fetch"
	"localdeck/internal/testsupport"
)

type stubDownloader struct {
	calls atomic.Int64
	err   error
}

func (d *stubDownloader) Download(ctx context.Context, videoID string) (*fetch.Download, error) {
	d.calls.Add(1)
	if d.err != nil {
		return nil, d.err
	}
	return &fetch.Download{
		Body:   io.NopCloser(strings.NewReader("audio for " + videoID)),
		Format: "m4a",
		Artist: "Stub Artist",
		Title:  "Stub Title",
	}, nil
}

type recordingSink struct {
	mu    sync.Mutex
	plays []string
}

func (s *recordingSink) Play(ctx context.Context, path string) error {
	s.mu.Lock()
	s.plays = append(s.plays, path)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.plays)
}

func newTestDaemon(t *testing.T) (*Daemon, *stubDownloader, *recordingSink) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	downloader := &stubDownloader{}
	sink := &recordingSink{}
	d, err := New(cfg, nil, WithDownloader(downloader), WithSink(sink))
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, downloader, sink
}

func doPlay(t *testing.T, d *Daemon, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	d.server.handlePlay(w, req)
	return w
}

func TestPlayMissingCardID(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	w := doPlay(t, d, "/play?y=dQw4w9WgXcQ")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestPlayUnknownCard(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	w := doPlay(t, d, "/play?h=never-seen")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp api.Error
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Error != "unknown card" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestPlayUnsupportedSource(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	w := doPlay(t, d, "/play?h=card-1&y=not%20a%20source")
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
}

func TestPlaySourceUnavailable(t *testing.T) {
	d, downloader, _ := newTestDaemon(t)
	downloader.err = fmt.Errorf("%w: removed", fetch.ErrSourceUnavailable)

	w := doPlay(t, d, "/play?h=card-1&y=dQw4w9WgXcQ")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
}

func TestPlayFallbackThenFastPath(t *testing.T) {
	d, downloader, sink := newTestDaemon(t)

	w := doPlay(t, d, "/play?h=card-1&y=dQw4w9WgXcQ")
	if w.Code != http.StatusOK {
		t.Fatalf("first play status = %d: %s", w.Code, w.Body.String())
	}
	var first api.PlayResult
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !first.Fetched || first.ContentRef == "" {
		t.Fatalf("first play = %+v, want fetched with ref", first)
	}

	// Same card again: registry hit, no second download, no y needed.
	w = doPlay(t, d, "/play?h=card-1")
	if w.Code != http.StatusOK {
		t.Fatalf("second play status = %d: %s", w.Code, w.Body.String())
	}
	var second api.PlayResult
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if second.Fetched {
		t.Error("second play should hit the fast path")
	}
	if second.ContentRef != first.ContentRef {
		t.Errorf("refs differ: %q vs %q", second.ContentRef, first.ContentRef)
	}
	if got := downloader.calls.Load(); got != 1 {
		t.Errorf("downloader called %d times, want 1", got)
	}

	d.controller.Stop()
	if sink.count() != 2 {
		t.Errorf("sink played %d times, want 2", sink.count())
	}
}

func TestPlaySharedSourceDedupesContent(t *testing.T) {
	d, downloader, _ := newTestDaemon(t)

	w1 := doPlay(t, d, "/play?h=card-1&y=dQw4w9WgXcQ")
	w2 := doPlay(t, d, "/play?h=card-2&y=https%3A%2F%2Fyoutu.be%2FdQw4w9WgXcQ")
	if w1.Code != http.StatusOK || w2.Code != http.StatusOK {
		t.Fatalf("statuses = %d, %d", w1.Code, w2.Code)
	}
	var r1, r2 api.PlayResult
	if err := json.Unmarshal(w1.Body.Bytes(), &r1); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(w2.Body.Bytes(), &r2); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r1.ContentRef != r2.ContentRef {
		t.Errorf("two cards for one source should share content: %q vs %q", r1.ContentRef, r2.ContentRef)
	}
	if got := downloader.calls.Load(); got != 1 {
		t.Errorf("downloader called %d times, want 1", got)
	}
}

func TestStatusEndpoint(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	if w := doPlay(t, d, "/play?h=card-1&y=dQw4w9WgXcQ"); w.Code != http.StatusOK {
		t.Fatalf("seed play status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()
	d.server.handleStatus(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status api.Status
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.Tracks != 1 || status.Bound != 1 {
		t.Errorf("status = %+v, want 1 bound track", status)
	}
}

func TestTrackEndpoints(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	if w := doPlay(t, d, "/play?h=card-1&y=dQw4w9WgXcQ"); w.Code != http.StatusOK {
		t.Fatalf("seed play status = %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tracks", nil)
	w := httptest.NewRecorder()
	d.server.handleTracks(w, req)
	var tracks []api.Track
	if err := json.Unmarshal(w.Body.Bytes(), &tracks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tracks) != 1 || tracks[0].CardID != "card-1" {
		t.Fatalf("tracks = %+v", tracks)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tracks/card-1", nil)
	w = httptest.NewRecorder()
	d.server.handleTrack(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("describe status = %d", w.Code)
	}
	var track api.Track
	if err := json.Unmarshal(w.Body.Bytes(), &track); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if track.Artist != "Stub Artist" {
		t.Errorf("artist = %q", track.Artist)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tracks/card-1/stream", nil)
	w = httptest.NewRecorder()
	d.server.handleTrack(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("stream status = %d", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "audio/x-m4a" {
		t.Errorf("content type = %q, want audio/x-m4a", got)
	}
	if got := w.Header().Get("X-Track-Artist"); got != "Stub Artist" {
		t.Errorf("X-Track-Artist = %q", got)
	}
	if body := w.Body.String(); body != "audio for dQw4w9WgXcQ" {
		t.Errorf("stream body = %q", body)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/tracks/nope", nil)
	w = httptest.NewRecorder()
	d.server.handleTrack(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing track status = %d, want 404", w.Code)
	}
}

func TestStopEndpoint(t *testing.T) {
	d, _, _ := newTestDaemon(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stop", nil)
	w := httptest.NewRecorder()
	d.server.handleStop(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var status api.DeckStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.State != "idle" {
		t.Errorf("state = %q, want idle", status.State)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stop", nil)
	w = httptest.NewRecorder()
	d.server.handleStop(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", w.Code)
	}
}
