package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gxliu28/gas-bot/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration file and report its targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			enabled := 0
			for _, t := range cfg.Targets {
				if t.Enable {
					enabled++
				}
			}
			fmt.Printf("✅ Configuration OK: %d targets (%d enabled)\n", len(cfg.Targets), enabled)
			if cfg.Slack.BotToken == "" {
				fmt.Println("⚠️  slack.bot_token is not set; runs will abort")
			}
			return nil
		},
	}
}
