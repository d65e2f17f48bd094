package playback

import (
	"context"
	"fmt"
	"os/exec"
)

// PlayerSink drives an external player binary, one process per track. The
// process is killed when the context is cancelled, which is how interrupts
// reach the audio device.
type PlayerSink struct {
	binary string
	args   []string
}

// NewPlayerSink builds a sink around a player invocation such as
// "ffplay -nodisp -autoexit". The content path is appended as the final
// argument.
func NewPlayerSink(binary string, args []string) *PlayerSink {
	return &PlayerSink{binary: binary, args: args}
}

func (p *PlayerSink) Play(ctx context.Context, path string) error {
	args := make([]string, 0, len(p.args)+1)
	args = append(args, p.args...)
	args = append(args, path)

	cmd := exec.CommandContext(ctx, p.binary, args...)
	err := cmd.Run()
	if ctx.Err() != nil {
		// Killed by an interrupt, not a player failure.
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("player %s: %w", p.binary, err)
	}
	return nil
}
