package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var serverFlag string

	rootCmd := &cobra.Command{
		Use:           "console",
		Short:         "Operator console for the customer-service automation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	defaultServer := os.Getenv("CONSOLE_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", defaultServer, "Dashboard API address")

	client := &consoleClient{baseURL: &serverFlag}
	rootCmd.AddCommand(newWatchCommand(client))
	rootCmd.AddCommand(newRunsCommand(client))
	rootCmd.AddCommand(newStartCommand(client))
	rootCmd.AddCommand(newExportCommand(client))

	return rootCmd
}
