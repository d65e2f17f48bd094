// Package deps verifies the external binaries localdeck shells out to, so a
// missing player is reported at startup instead of on the first card tap.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"localdeck/internal/config"
)

// Status reports the availability of one external dependency.
type Status struct {
	Name      string
	Command   string
	Available bool
	Detail    string
}

// Check evaluates the binaries the configuration relies on.
func Check(cfg *config.Config) []Status {
	player := strings.TrimSpace(cfg.Playback.Player)
	return []Status{
		checkBinary("player", player),
	}
}

func checkBinary(name, command string) Status {
	status := Status{Name: name, Command: command}
	if command == "" {
		status.Detail = "command not configured"
		return status
	}
	if _, err := exec.LookPath(command); err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", command)
		return status
	}
	status.Available = true
	return status
}
