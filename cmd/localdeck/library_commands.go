package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"localdeck/internal/library"
	"localdeck/internal/logging"
)

func newLibraryCommand(ctx *commandContext) *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Sync local music folders into the deck",
	}
	libraryCmd.AddCommand(newLibraryStatusCommand(ctx))
	libraryCmd.AddCommand(newLibraryUpdateCommand(ctx))
	return libraryCmd
}

func (c *commandContext) openLibrary() (*library.Manager, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: "console", OutputPaths: []string{"stdout"}})
	if err != nil {
		return nil, nil, err
	}

	store, err := c.openContent()
	if err != nil {
		return nil, nil, err
	}
	reg, err := c.openRegistry()
	if err != nil {
		return nil, nil, err
	}

	manager := library.NewManager(library.Options{
		Roots:          library.ResolveRoots(cfg.Library, logger),
		IgnoredDirs:    cfg.Library.IgnoredDirs,
		FollowSymlinks: cfg.Library.FollowSymlinks,
	}, store, reg, logger)
	cleanup := func() { _ = reg.Close() }
	return manager, cleanup, nil
}

func newLibraryStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which library files are new, known, or lost",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := manager.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, file := range report.New {
				fmt.Fprintf(out, "new:   %s\n", file.Path)
			}
			for _, cardID := range report.Lost {
				fmt.Fprintf(out, "lost:  %s\n", cardID)
			}
			fmt.Fprintf(out, "%d new, %d known, %d lost\n",
				len(report.New), len(report.Known), len(report.Lost))
			return nil
		},
	}
}

func newLibraryUpdateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Ingest new library files into the deck",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, cleanup, err := ctx.openLibrary()
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := manager.Update(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d file(s), %d already known\n",
				result.Ingested, result.Skipped)
			return nil
		},
	}
}
