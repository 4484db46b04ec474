package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// FetchResponse mirrors the daemon's fetch trigger response.
type FetchResponse struct {
	Status string `json:"status"`
}

// FetchCmd creates the fetch command.
func FetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Trigger mailbox ingestion",
		Long:  "Asks the daemon to start a background fetch cycle against the mailbox.",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/fetch-emails", nil)
			if err != nil {
				return err
			}

			var result FetchResponse
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Println(result.Status)
			return nil
		},
	}
}
