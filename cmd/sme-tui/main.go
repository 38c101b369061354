package main

import (
	"fmt"
	"os"

	"github.com/iamfaazi/savemyexam-downloader/internal/config"
	"github.com/iamfaazi/savemyexam-downloader/internal/tui"
	"github.com/spf13/cobra"
)

func main() {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:           "sme-tui",
		Short:         "Interactive Save My Exams downloader",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return tui.Run(settings, envFile)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file (default "+config.DefaultPath()+")")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "file holding ACCOUNT_EMAIL and ACCOUNT_PASSWORD")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
