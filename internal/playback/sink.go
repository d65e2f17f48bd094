package playback

import "context"

// Sink is the one physical audio output. Play blocks until the stream is
// exhausted or ctx is cancelled; it must release the device before
// returning.
type Sink interface {
	Play(ctx context.Context, path string) error
}
