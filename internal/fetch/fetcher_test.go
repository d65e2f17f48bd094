package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"localdeck/internal/content"
	"localdeck/internal/logging"
)

type fakeDownloader struct {
	calls   atomic.Int64
	release chan struct{} // when set, Download blocks until closed
	err     error
	payload string
}

func (d *fakeDownloader) Download(ctx context.Context, videoID string) (*Download, error) {
	d.calls.Add(1)
	if d.release != nil {
		select {
		case <-d.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	payload := d.payload
	if payload == "" {
		payload = "audio bytes for " + videoID
	}
	return &Download{
		Body:   io.NopCloser(strings.NewReader(payload)),
		Format: "m4a",
		Artist: "Some Artist",
		Title:  "Some Title",
	}, nil
}

func newTestFetcher(t *testing.T, d Downloader, opts Options) (*Fetcher, *content.Store) {
	t.Helper()
	store, err := content.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open content store: %v", err)
	}
	return New(d, store, logging.NewNop(), opts), store
}

func TestFetchStoresContent(t *testing.T) {
	downloader := &fakeDownloader{}
	fetcher, _ := newTestFetcher(t, downloader, Options{})

	result, err := fetcher.Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.Ref == "" {
		t.Fatal("expected a content ref")
	}
	if result.Source != "dQw4w9WgXcQ" {
		t.Errorf("source = %q, want canonical id", result.Source)
	}
	if result.Artist != "Some Artist" || result.Title != "Some Title" {
		t.Errorf("metadata = %q / %q", result.Artist, result.Title)
	}
	if !strings.HasSuffix(result.Ref, ".m4a") {
		t.Errorf("ref %q should carry the format extension", result.Ref)
	}
}

func TestConcurrentFetchesCoalesce(t *testing.T) {
	downloader := &fakeDownloader{release: make(chan struct{})}
	fetcher, _ := newTestFetcher(t, downloader, Options{})

	const waiters = 16
	var (
		wg      sync.WaitGroup
		refs    [waiters]string
		errs    [waiters]error
		sources = []string{
			"dQw4w9WgXcQ",
			"https://youtu.be/dQw4w9WgXcQ",
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		}
	)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := fetcher.Fetch(context.Background(), sources[i%len(sources)])
			refs[i], errs[i] = result.Ref, err
		}(i)
	}

	// Let the waiters pile up on the single in-flight task.
	deadline := time.Now().Add(2 * time.Second)
	for downloader.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(downloader.release)
	wg.Wait()

	for i := 0; i < waiters; i++ {
		if errs[i] != nil {
			t.Fatalf("waiter %d: %v", i, errs[i])
		}
		if refs[i] != refs[0] {
			t.Errorf("waiter %d ref %q differs from %q", i, refs[i], refs[0])
		}
	}
	if got := downloader.calls.Load(); got != 1 {
		t.Errorf("downloader called %d times, want 1", got)
	}
}

func TestFetchMemoizedAfterSuccess(t *testing.T) {
	downloader := &fakeDownloader{}
	fetcher, _ := newTestFetcher(t, downloader, Options{})

	first, err := fetcher.Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := fetcher.Fetch(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if first.Ref != second.Ref {
		t.Errorf("refs differ: %q vs %q", first.Ref, second.Ref)
	}
	if got := downloader.calls.Load(); got != 1 {
		t.Errorf("downloader called %d times, want 1", got)
	}
}

func TestFetchRedownloadsWhenStoredContentLost(t *testing.T) {
	downloader := &fakeDownloader{}
	fetcher, store := newTestFetcher(t, downloader, Options{})

	first, err := fetcher.Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	// Lose the object from disk; the memoized result is now a dead ref.
	objectPath := filepath.Join(store.Root(), "objects", first.Ref[:2], first.Ref)
	if err := os.Remove(objectPath); err != nil {
		t.Fatalf("remove object: %v", err)
	}

	second, err := fetcher.Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !store.Exists(second.Ref) {
		t.Errorf("ref %q not present in content store", second.Ref)
	}
	if got := downloader.calls.Load(); got != 2 {
		t.Errorf("downloader called %d times, want 2", got)
	}
}

func TestFetchFailureCoolsDown(t *testing.T) {
	downloader := &fakeDownloader{err: fmt.Errorf("%w: gone", ErrSourceUnavailable)}
	fetcher, _ := newTestFetcher(t, downloader, Options{FailureCooldown: time.Hour})

	_, err := fetcher.Fetch(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("first fetch error = %v, want ErrSourceUnavailable", err)
	}

	_, err = fetcher.Fetch(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("second fetch error = %v, want ErrSourceUnavailable", err)
	}
	if got := downloader.calls.Load(); got != 1 {
		t.Errorf("downloader called %d times during cooldown, want 1", got)
	}
}

func TestFetchUnsupportedSource(t *testing.T) {
	downloader := &fakeDownloader{}
	fetcher, _ := newTestFetcher(t, downloader, Options{})

	_, err := fetcher.Fetch(context.Background(), "not a source")
	if !errors.Is(err, ErrUnsupportedSource) {
		t.Fatalf("error = %v, want ErrUnsupportedSource", err)
	}
	if got := downloader.calls.Load(); got != 0 {
		t.Errorf("downloader called %d times for unsupported source, want 0", got)
	}
}

func TestWaiterCancellationLeavesFetchRunning(t *testing.T) {
	downloader := &fakeDownloader{release: make(chan struct{})}
	fetcher, _ := newTestFetcher(t, downloader, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := fetcher.Fetch(ctx, "dQw4w9WgXcQ")
		errCh <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for downloader.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled waiter error = %v, want context.Canceled", err)
	}

	// The shared download keeps going and later waiters get its result.
	close(downloader.release)
	result, err := fetcher.Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("fetch after cancellation: %v", err)
	}
	if result.Ref == "" {
		t.Fatal("expected a content ref")
	}
	if got := downloader.calls.Load(); got != 1 {
		t.Errorf("downloader called %d times, want 1", got)
	}
}
