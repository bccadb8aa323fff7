package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pipeline-console-go/internal/engine"
)

const barWidth = 24

func newWatchCommand(client *consoleClient) *cobra.Command {
	var intervalFlag time.Duration
	var onceFlag bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live progress view of the tracked pipeline run",
		RunE: func(cmd *cobra.Command, args []string) error {
			if onceFlag {
				return printProgress(cmd, client)
			}
			ticker := time.NewTicker(intervalFlag)
			defer ticker.Stop()
			for {
				// Repaint in place rather than scrolling.
				fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")
				if err := printProgress(cmd, client); err != nil {
					return err
				}
				select {
				case <-cmd.Context().Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().DurationVar(&intervalFlag, "interval", time.Second, "Refresh interval")
	cmd.Flags().BoolVar(&onceFlag, "once", false, "Print a single snapshot and exit")
	return cmd
}

func printProgress(cmd *cobra.Command, client *consoleClient) error {
	snap, err := client.progress(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if snap.Tracking {
		fmt.Fprintf(out, "Tracking run %s\n\n", snap.RunID)
	} else if len(snap.Transcripts) > 0 {
		fmt.Fprint(out, "No active run (last known results)\n\n")
	} else {
		fmt.Fprint(out, "No active run\n")
		return nil
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Transcript", "Progress", "%", "Analyzed", "Planned", "Workflows", "Executed"},
		progressRows(snap),
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	))
	return nil
}

func progressRows(snap engine.Snapshot) [][]string {
	rows := make([][]string, 0, len(snap.Transcripts))
	for _, v := range snap.Transcripts {
		rows = append(rows, []string{
			v.TranscriptID,
			progressBar(v.DisplayedProgress),
			fmt.Sprintf("%.0f", v.DisplayedProgress),
			checkmark(v.AnalyzeReady),
			checkmark(v.PlanReady),
			checkmark(v.WorkflowReady),
			checkmark(v.ExecuteComplete),
		})
	}
	return rows
}

func progressBar(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func checkmark(v bool) string {
	if v {
		return "✓"
	}
	return "·"
}
