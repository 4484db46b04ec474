package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/mailsense/internal/cli"
	"github.com/cloo-solutions/mailsense/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailsense",
		Short: "Mailsense CLI - AI-assisted email support",
		Long: `Mailsense CLI provides commands to triage support email against a running daemon.

Environment variables:
  MAILSENSE_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.FetchCmd())
	rootCmd.AddCommand(client.ListCmd())
	rootCmd.AddCommand(client.DraftCmd())
	rootCmd.AddCommand(client.SendCmd())
	rootCmd.AddCommand(client.AnalyticsCmd())

	cli.CheckHelpJSON(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
