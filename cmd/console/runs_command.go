package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newRunsCommand(client *consoleClient) *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List orchestration runs known to the dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := client.runs(cmd.Context())
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				started := ""
				if !run.StartedAt.IsZero() {
					started = run.StartedAt.Local().Format(time.RFC3339)
				}
				rows = append(rows, []string{
					run.ID,
					string(run.Status),
					string(run.Stage),
					strconv.Itoa(len(run.TranscriptIDs)),
					strings.Join(run.TranscriptIDs, ", "),
					started,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Status", "Stage", "#", "Transcripts", "Started"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
