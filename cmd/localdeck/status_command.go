package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"localdeck/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and registry status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			status, err := fetchDaemonStatus(cmd.Context(), cfg.Paths.APIBind)
			if err == nil {
				fmt.Fprintf(out, "Daemon:  running (deck %s)\n", status.Deck.State)
				if status.Deck.ContentRef != "" {
					fmt.Fprintf(out, "Playing: %s since %s\n", status.Deck.ContentRef, status.Deck.StartedAt)
				}
				fmt.Fprintf(out, "Tracks:  %d registered, %d with content, %d never played\n",
					status.Tracks, status.Bound, status.NeverPlayed)
				return nil
			}
			fmt.Fprintf(out, "Daemon:  not reachable at %s (%v)\n", cfg.Paths.APIBind, err)

			// Daemon down; read the registry directly.
			reg, regErr := ctx.openRegistry()
			if regErr != nil {
				return regErr
			}
			defer reg.Close()
			summary, regErr := reg.Stats(cmd.Context())
			if regErr != nil {
				return regErr
			}
			fmt.Fprintf(out, "Tracks:  %d registered, %d with content, %d never played\n",
				summary.Total, summary.Bound, summary.NeverPlayed)
			return nil
		},
	}
}

func fetchDaemonStatus(ctx context.Context, bind string) (*api.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+bind+"/api/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon returned %s", resp.Status)
	}

	var status api.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}
