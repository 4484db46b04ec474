package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DraftAPIResponse represents the draft generation response.
type DraftAPIResponse struct {
	MessageID    string `json:"message_id"`
	Draft        string `json:"draft"`
	Fallback     bool   `json:"fallback"`
	ContextCount int    `json:"context_count"`
}

// DraftCmd creates the draft command.
func DraftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "draft <email-id>",
		Short: "Generate a reply draft for an email",
		Long:  "Asks the daemon to draft a reply for the given email using the knowledge base.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/emails/"+args[0]+"/generate-response", nil)
			if err != nil {
				return err
			}

			var result DraftAPIResponse
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			fmt.Println(result.Draft)
			if result.Fallback {
				fmt.Println("\n(warning: generation fell back to the default reply)")
			}
			return nil
		},
	}
}
