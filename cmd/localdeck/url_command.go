package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"localdeck/internal/cards"
)

func newURLCommand(ctx *commandContext) *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "url <card-id>",
		Short: "Print the trigger URL to encode on a card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			playURL, err := cards.PlayURL(cfg.PublicEndpoint.BaseURL, args[0], source)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), playURL)
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "y", "", "Fallback source fragment to embed in the URL")
	return cmd
}
