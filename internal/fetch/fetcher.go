package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"localdeck/internal/content"
	"localdeck/internal/logging"
)

// Result describes a completed fetch: the content reference the bytes landed
// under, the canonical source, and the metadata scraped alongside.
type Result struct {
	Ref        string
	Source     string
	Artist     string
	Title      string
	Year       int
	ArtworkURL string
}

// Options tune fetch behavior.
type Options struct {
	// Timeout bounds a single download end to end.
	Timeout time.Duration
	// FailureCooldown is how long a failed source is refused before a
	// retry is allowed.
	FailureCooldown time.Duration
}

const (
	defaultTimeout         = 5 * time.Minute
	defaultFailureCooldown = 30 * time.Second
)

// Fetcher downloads audio for canonical sources and lands it in the content
// store. Concurrent requests for the same source coalesce onto a single
// download; each distinct source is fetched at most once per process
// lifetime, with failures held in a cooldown window before retry.
type Fetcher struct {
	downloader Downloader
	store      *content.Store
	logger     *slog.Logger
	timeout    time.Duration
	cooldown   time.Duration

	mu       sync.Mutex
	tasks    map[string]*task
	done     map[string]Result
	failures *gocache.Cache
}

type task struct {
	finished chan struct{}
	result   Result
	err      error
}

// New builds a Fetcher over the given downloader and content store.
func New(downloader Downloader, store *content.Store, logger *slog.Logger, opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.FailureCooldown <= 0 {
		opts.FailureCooldown = defaultFailureCooldown
	}
	return &Fetcher{
		downloader: downloader,
		store:      store,
		logger:     logging.NewComponentLogger(logger, "fetch"),
		timeout:    opts.Timeout,
		cooldown:   opts.FailureCooldown,
		tasks:      make(map[string]*task),
		done:       make(map[string]Result),
		failures:   gocache.New(opts.FailureCooldown, time.Minute),
	}
}

// Fetch resolves a raw source fragment and returns the content it refers
// to, downloading it if necessary. Waiters that cancel their context stop
// waiting; the underlying download keeps running so other requests for the
// same source still benefit.
func (f *Fetcher) Fetch(ctx context.Context, rawSource string) (Result, error) {
	source, err := CanonicalSource(rawSource)
	if err != nil {
		return Result{}, err
	}

	f.mu.Lock()
	if result, ok := f.done[source]; ok {
		if f.store.Exists(result.Ref) {
			f.mu.Unlock()
			return result, nil
		}
		// The stored object drifted away; a stale memo would hand callers
		// a dead ref forever, so drop it and download again.
		delete(f.done, source)
	}
	if cached, ok := f.failures.Get(source); ok {
		f.mu.Unlock()
		return Result{}, fmt.Errorf("%w (cooling down)", cached.(error))
	}
	t, running := f.tasks[source]
	if !running {
		t = &task{finished: make(chan struct{})}
		f.tasks[source] = t
		// The download outlives any single waiter.
		go f.run(context.WithoutCancel(ctx), source, t)
	}
	f.mu.Unlock()

	select {
	case <-t.finished:
		return t.result, t.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (f *Fetcher) run(ctx context.Context, source string, t *task) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	result, err := f.fetchOne(ctx, source)

	f.mu.Lock()
	delete(f.tasks, source)
	if err == nil {
		f.done[source] = result
	} else {
		f.failures.Set(source, err, f.cooldown)
	}
	f.mu.Unlock()

	if err != nil {
		f.logger.Warn("fetch failed",
			logging.String(logging.FieldSource, source),
			logging.Duration("elapsed", time.Since(start)),
			logging.Error(err))
	} else {
		f.logger.Info("fetch complete",
			logging.String(logging.FieldSource, source),
			logging.String(logging.FieldContentRef, result.Ref),
			logging.Duration("elapsed", time.Since(start)))
	}

	t.result = result
	t.err = err
	close(t.finished)
}

func (f *Fetcher) fetchOne(ctx context.Context, source string) (Result, error) {
	download, err := f.downloader.Download(ctx, source)
	if err != nil {
		return Result{}, err
	}
	defer download.Body.Close()

	ref, err := f.store.Put(download.Body, download.Format)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Ref:        ref,
		Source:     source,
		Artist:     download.Artist,
		Title:      download.Title,
		Year:       download.Year,
		ArtworkURL: download.ArtworkURL,
	}, nil
}
