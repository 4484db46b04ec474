package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/mailsense/internal/cli"
	"github.com/cloo-solutions/mailsense/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mailsensed",
		Short: "Mailsense daemon",
		Long:  "Mailsense daemon for ingesting support email and serving the API",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
