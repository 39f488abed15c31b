package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gxliu28/gas-bot/internal/config"
)

var version = "0.1.0"

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:   "gasbot",
		Short: "Spreadsheet-driven Slack reminder dispatcher",
		Long: `gasbot reads task rows from spreadsheet-like sources, evaluates each row
against a configurable filter tree and posts templated due-date reminders
to Slack, mentioning the assignee (and optionally their boss).`,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "path to configuration file")

	rootCmd.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show gasbot version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gasbot %s\n", version)
		},
	}
}
