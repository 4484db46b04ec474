package client

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// SendAPIRequest represents the send reply request body.
type SendAPIRequest struct {
	ReplyText string `json:"reply_text"`
}

// SendCmd creates the send command.
func SendCmd() *cobra.Command {
	var (
		text  string
		stdin bool
	)

	cmd := &cobra.Command{
		Use:   "send <email-id>",
		Short: "Send a reply and mark the email resolved",
		Long:  "Sends the reply text on the email's thread and marks it resolved. Use --stdin to pipe the draft in.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if stdin {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("failed to read reply from stdin: %w", err)
				}
				text = string(data)
			}
			if text == "" {
				return fmt.Errorf("reply text is required (use --text or --stdin)")
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			_, err = api.Post("/emails/"+args[0]+"/send", SendAPIRequest{ReplyText: text})
			if err != nil {
				return err
			}

			fmt.Println("reply sent")
			return nil
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "Reply text to send")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read reply text from stdin")

	return cmd
}
