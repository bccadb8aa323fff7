package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStartCommand(client *consoleClient) *cobra.Command {
	var autoApproveFlag bool

	cmd := &cobra.Command{
		Use:   "start <transcript-id>...",
		Short: "Start a pipeline run over the given transcripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := client.startRun(cmd.Context(), args, autoApproveFlag)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started run %s over %d transcript(s)\n", runID, len(args))
			return nil
		},
	}
	cmd.Flags().BoolVar(&autoApproveFlag, "auto-approve", false, "Auto-approve generated workflows")
	return cmd
}
