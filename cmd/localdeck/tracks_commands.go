package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"localdeck/internal/registry"
)

func newTracksCommand(ctx *commandContext) *cobra.Command {
	tracksCmd := &cobra.Command{
		Use:   "tracks",
		Short: "Inspect and edit the track registry",
	}
	tracksCmd.AddCommand(newTracksListCommand(ctx))
	tracksCmd.AddCommand(newTracksFindCommand(ctx))
	tracksCmd.AddCommand(newTracksForgetCommand(ctx))
	tracksCmd.AddCommand(newTracksMetadataCommand(ctx))
	return tracksCmd
}

func newTracksListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all registered tracks",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()

			tracks, err := reg.List(cmd.Context())
			if err != nil {
				return err
			}
			printTracks(cmd, tracks)
			return nil
		},
	}
}

func newTracksFindCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "find <query>",
		Short: "Find tracks by card id, artist, or title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()

			tracks, err := reg.Find(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(tracks) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching tracks.")
				return nil
			}
			printTracks(cmd, tracks)
			return nil
		},
	}
}

func newTracksForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <card-id>",
		Short: "Remove a card binding (content is kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()

			removed, err := reg.Forget(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no track registered for card %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Forgot card %s\n", args[0])
			return nil
		},
	}
}

func newTracksMetadataCommand(ctx *commandContext) *cobra.Command {
	var (
		artist     string
		title      string
		year       int
		label      string
		artworkURL string
		overwrite  bool
	)

	cmd := &cobra.Command{
		Use:   "metadata <card-id>",
		Short: "Set track metadata fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := registry.MetadataUpdate{}
			if cmd.Flags().Changed("artist") {
				update.Artist = &artist
			}
			if cmd.Flags().Changed("title") {
				update.Title = &title
			}
			if cmd.Flags().Changed("year") {
				update.Year = &year
			}
			if cmd.Flags().Changed("label") {
				update.Label = &label
			}
			if cmd.Flags().Changed("artwork-url") {
				update.ArtworkURL = &artworkURL
			}
			if update.IsEmpty() {
				return fmt.Errorf("no metadata flags given")
			}

			reg, err := ctx.openRegistry()
			if err != nil {
				return err
			}
			defer reg.Close()

			if err := reg.SetMetadata(cmd.Context(), args[0], update, overwrite); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated metadata for card %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&artist, "artist", "", "Artist name")
	cmd.Flags().StringVar(&title, "title", "", "Track title")
	cmd.Flags().IntVar(&year, "year", 0, "Release year")
	cmd.Flags().StringVar(&label, "label", "", "Record label")
	cmd.Flags().StringVar(&artworkURL, "artwork-url", "", "Artwork URL")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace fields that already have a value")
	return cmd
}

func printTracks(cmd *cobra.Command, tracks []*registry.Track) {
	rows := make([][]string, 0, len(tracks))
	for _, track := range tracks {
		played := ""
		if track.LastPlayedAt != nil {
			played = track.LastPlayedAt.Local().Format("2006-01-02 15:04")
		}
		year := ""
		if track.Year > 0 {
			year = strconv.Itoa(track.Year)
		}
		rows = append(rows, []string{
			shortCardID(track.CardID),
			track.Artist,
			track.Title,
			year,
			track.ContentRef,
			played,
		})
	}
	out := renderTable([]string{"CARD", "ARTIST", "TITLE", "YEAR", "CONTENT", "LAST PLAYED"}, rows)
	fmt.Fprintln(cmd.OutOrStdout(), out)
	fmt.Fprintf(cmd.OutOrStdout(), "%d track(s)\n", len(tracks))
}

// shortCardID keeps listings readable; hash-derived card ids are 64 chars.
func shortCardID(cardID string) string {
	if len(cardID) > 12 && !strings.Contains(cardID, " ") {
		return cardID[:12] + "…"
	}
	return cardID
}
