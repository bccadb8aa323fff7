package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCommand(client *consoleClient) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the progress report as an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Create(outputFlag)
			if err != nil {
				return fmt.Errorf("create %s: %w", outputFlag, err)
			}
			defer f.Close()

			if err := client.report(cmd.Context(), f); err != nil {
				os.Remove(outputFlag)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outputFlag)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "pipeline-progress.xlsx", "Output file path")
	return cmd
}
