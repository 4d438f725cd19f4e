package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the campaign table",
	Long:  `List every episode of the campaign with its line and image counts.`,
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	_, camp, loader, err := loadOffline()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	setupColor(out)

	name := camp.Name
	if name == "" {
		name = "campaign"
	}
	fmt.Fprintf(out, "%s: %d seasons, %d episodes\n", bold(name), camp.SeasonCount(), camp.TotalEpisodes())
	writePlan(out, inspectCampaign(camp, loader))
	return nil
}

func writePlan(w io.Writer, infos []episodeInfo) {
	rows := make([][]string, 0, len(infos))
	var lines, images int
	for _, info := range infos {
		state := green("ok")
		if !info.Present {
			state = red("missing")
		} else if len(info.MissingImages) > 0 {
			state = yellow(fmt.Sprintf("%d images missing", len(info.MissingImages)))
		}
		rows = append(rows, []string{
			strconv.Itoa(info.Season),
			strconv.Itoa(info.Episode),
			strconv.Itoa(info.Lines),
			strconv.Itoa(info.Images),
			state,
		})
		lines += info.Lines
		images += info.Images
	}

	fmt.Fprintln(w, renderTable(
		[]string{"Season", "Episode", "Lines", "Images", "Transcript"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(w, "Total: %d lines, %d images\n", lines, images)
}
