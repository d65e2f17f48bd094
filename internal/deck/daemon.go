package deck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"localdeck/internal/config"
	"localdeck/internal/content"
	"localdeck/internal/deps"
	"localdeck/internal/fetch"
	"localdeck/internal/library"
	"localdeck/internal/logging"
	"localdeck/internal/playback"
	"localdeck/internal/registry"
	"localdeck/internal/resolve"
)

// Daemon wires the resolution pipeline together and enforces
// single-instance execution. One deck, one daemon.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	registry   *registry.Store
	store      *content.Store
	engine     *resolve.Engine
	controller *playback.Controller
	server     *apiServer

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// Option overrides a daemon collaborator, mainly for tests.
type Option func(*options)

type options struct {
	downloader fetch.Downloader
	sink       playback.Sink
}

// WithDownloader replaces the default YouTube downloader.
func WithDownloader(dl fetch.Downloader) Option {
	return func(o *options) { o.downloader = dl }
}

// WithSink replaces the default external-player sink.
func WithSink(sink playback.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.downloader == nil {
		o.downloader = fetch.NewYouTubeDownloader(cfg.Fetch.RatePerMinute)
	}
	if o.sink == nil {
		o.sink = playback.NewPlayerSink(cfg.Playback.Player, cfg.Playback.PlayerArgs)
	}

	store, err := content.Open(cfg.ContentDir())
	if err != nil {
		return nil, fmt.Errorf("open content store: %w", err)
	}
	reg, err := registry.Open(cfg.RegistryPath())
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}

	fetcher := fetch.New(o.downloader, store, logger, fetch.Options{
		Timeout:         cfg.Fetch.Timeout(),
		FailureCooldown: cfg.Fetch.Cooldown(),
	})
	engine := resolve.New(reg, store, fetcher, logger)
	controller := playback.New(store, o.sink, logger)

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		registry:   reg,
		store:      store,
		engine:     engine,
		controller: controller,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	d.server = newAPIServer(cfg, d, logger)
	return d, nil
}

// Start acquires the daemon lock and begins serving the trigger endpoint.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another localdeck daemon instance is already running")
	}

	for _, dep := range deps.Check(d.cfg) {
		if !dep.Available {
			d.logger.Warn("external dependency unavailable",
				logging.String("dependency", dep.Name),
				logging.String("detail", dep.Detail))
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.server.start(runCtx); err != nil {
		_ = d.lock.Unlock()
		cancel()
		d.cancel = nil
		return err
	}

	d.running.Store(true)
	d.logger.Info("localdeck daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts playback, shuts down the HTTP server, and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.server.stop()
	d.controller.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("localdeck daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return d.registry.Close()
}

// Library builds a library manager over the daemon's stores using the
// configured roots.
func (d *Daemon) Library(roots []string) *library.Manager {
	return library.NewManager(library.Options{
		Roots:          roots,
		IgnoredDirs:    d.cfg.Library.IgnoredDirs,
		FollowSymlinks: d.cfg.Library.FollowSymlinks,
	}, d.store, d.registry, d.logger)
}

// Registry exposes the track registry for CLI commands.
func (d *Daemon) Registry() *registry.Store {
	return d.registry
}

// ContentStore exposes the content store for CLI commands.
func (d *Daemon) ContentStore() *content.Store {
	return d.store
}
