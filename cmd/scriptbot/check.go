package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check transcripts and images before a run",
	Long: `Scan every transcript in the campaign and report missing transcript
files and img lines whose image is absent. Exits non-zero on problems.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	_, camp, loader, err := loadOffline()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	setupColor(out)

	problems := writeCheck(out, inspectCampaign(camp, loader))
	if problems > 0 {
		return fmt.Errorf("%d problems found", problems)
	}
	return nil
}

// writeCheck prints problems as a table and returns how many were found.
func writeCheck(w io.Writer, infos []episodeInfo) int {
	var rows [][]string
	for _, info := range infos {
		s, e := strconv.Itoa(info.Season), strconv.Itoa(info.Episode)
		if !info.Present {
			rows = append(rows, []string{s, e, red("transcript missing"), ""})
			continue
		}
		for _, path := range info.MissingImages {
			rows = append(rows, []string{s, e, yellow("image missing"), path})
		}
	}

	if len(rows) == 0 {
		fmt.Fprintf(w, "%s %d episodes checked, no problems\n", green("OK"), len(infos))
		return 0
	}

	fmt.Fprintln(w, renderTable(
		[]string{"Season", "Episode", "Problem", "Path"},
		rows,
		[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft},
	))
	return len(rows)
}
