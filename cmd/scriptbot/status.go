package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abdulachik/scriptbot/internal/campaign"
	"github.com/abdulachik/scriptbot/internal/composer"
	"github.com/abdulachik/scriptbot/internal/position"
	"github.com/abdulachik/scriptbot/internal/scheduler"
	"github.com/abdulachik/scriptbot/internal/transcript"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved position and the next line",
	Long: `Show the saved position and the line that "scriptbot continue" would
post next, rolling over finished episodes and seasons.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, camp, loader, err := loadOffline()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	setupColor(out)

	store := position.NewFileStore(cfg.PositionPath)
	saved, err := store.Load()
	if errors.Is(err, position.ErrNoPosition) {
		fmt.Fprintf(out, "Position file: %s\n", store.Path())
		fmt.Fprintln(out, "Saved:         "+yellow("none"))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Position file: %s\n", store.Path())
	writeStatus(out, camp, loader, saved)
	return nil
}

func writeStatus(w io.Writer, camp *campaign.Campaign, loader *transcript.Loader, saved position.Position) {
	fmt.Fprintf(w, "Saved:         %s\n", saved)

	next, ok := scheduler.NextLine(camp, loader, saved)
	if !ok {
		fmt.Fprintln(w, "Next:          "+green("campaign complete"))
		return
	}

	fmt.Fprintf(w, "Next:          %s\n", bold(next.Position.String()))

	d := composer.Compose(next.Line)
	if d.IsImage() {
		path := loader.ImagePath(next.Position.Season, next.Position.Episode, d.ImageID)
		state := green("found")
		if _, err := os.Stat(path); err != nil {
			state = red("missing, will post text only")
		}
		fmt.Fprintf(w, "Kind:          image %s (%s, %s)\n", d.ImageID, path, state)
	} else {
		fmt.Fprintln(w, "Kind:          text")
	}
	fmt.Fprintf(w, "Text:          %s\n", d.Content)
}
