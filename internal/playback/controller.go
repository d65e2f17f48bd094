package playback

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"localdeck/internal/content"
	"localdeck/internal/logging"
)

// State of the deck.
type State string

const (
	StateIdle     State = "idle"
	StatePlaying  State = "playing"
	StateStopping State = "stopping"
)

// Status is a point-in-time snapshot of the deck.
type Status struct {
	State     State     `json:"state"`
	Ref       string    `json:"content_ref,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
}

type session struct {
	ref       string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// Controller owns the deck's single playback slot. Card taps interrupt,
// they do not queue: Start on a busy deck stops the current stream and
// waits for the sink to release the device before the new stream begins,
// so no interval ever has two active streams.
type Controller struct {
	store  *content.Store
	sink   Sink
	logger *slog.Logger

	// startMu serializes Start and Stop so interleaved taps cannot race
	// the stop-and-wait handoff.
	startMu sync.Mutex

	mu       sync.Mutex
	current  *session
	stopping bool
}

// New builds a Controller playing content from store through sink.
func New(store *content.Store, sink Sink, logger *slog.Logger) *Controller {
	return &Controller{
		store:  store,
		sink:   sink,
		logger: logging.NewComponentLogger(logger, "playback"),
	}
}

// Start begins playback of a content reference, first stopping whatever is
// playing. Fails with content.ErrNotFound when the store cannot supply the
// reference; the deck is left idle in that case.
func (c *Controller) Start(ctx context.Context, ref string) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	file, _, err := c.store.Open(ref)
	if err != nil {
		c.interruptLocked()
		return err
	}
	path := file.Name()
	// The sink opens the path itself; this handle only proved the entry
	// is published.
	if closeErr := file.Close(); closeErr != nil {
		return closeErr
	}

	c.interruptLocked()

	playCtx, cancel := context.WithCancel(context.Background())
	s := &session{
		ref:       ref,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()

	c.logger.Info("playback started", logging.String(logging.FieldContentRef, ref))
	go c.play(playCtx, s, path)
	return nil
}

// Stop interrupts playback and waits for the sink to release the device.
// Idempotent; stopping an idle deck is a no-op.
func (c *Controller) Stop() {
	c.startMu.Lock()
	defer c.startMu.Unlock()
	c.interruptLocked()
}

// interruptLocked stops the current session and waits it out. Callers hold
// startMu.
func (c *Controller) interruptLocked() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	if s != nil {
		c.stopping = true
	}
	c.mu.Unlock()
	if s == nil {
		return
	}
	s.cancel()
	<-s.done

	c.mu.Lock()
	c.stopping = false
	c.mu.Unlock()
	c.logger.Info("playback stopped", logging.String(logging.FieldContentRef, s.ref))
}

func (c *Controller) play(ctx context.Context, s *session, path string) {
	defer close(s.done)
	defer s.cancel()

	err := c.sink.Play(ctx, path)

	// Natural end of track; an interrupt clears current before cancelling.
	c.mu.Lock()
	if c.current == s {
		c.current = nil
	}
	c.mu.Unlock()

	switch {
	case err == nil, errors.Is(err, context.Canceled):
	default:
		c.logger.Error("playback sink failed",
			logging.String(logging.FieldContentRef, s.ref),
			logging.Error(err))
	}
}

// Status reports the deck state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopping {
		return Status{State: StateStopping}
	}
	if c.current == nil {
		return Status{State: StateIdle}
	}
	return Status{
		State:     StatePlaying,
		Ref:       c.current.ref,
		StartedAt: c.current.startedAt,
	}
}
