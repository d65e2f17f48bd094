package deck

import (
	"context"
	"strings"
	"testing"

	"localdeck/internal/testsupport"
)

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := New(cfg, nil, WithDownloader(&stubDownloader{}), WithSink(&recordingSink{}))
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer first.Close()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	second, err := New(cfg, nil, WithDownloader(&stubDownloader{}), WithSink(&recordingSink{}))
	if err != nil {
		t.Fatalf("new second daemon: %v", err)
	}
	defer second.Close()
	if err := second.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("second start error = %v, want already-running", err)
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("start after release: %v", err)
	}
	second.Stop()
}

func TestDaemonStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d, err := New(cfg, nil, WithDownloader(&stubDownloader{}), WithSink(&recordingSink{}))
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	defer d.Close()

	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	d.Stop()
	d.Stop()
}
