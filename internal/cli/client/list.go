package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// ListItemResponse represents a single email in the list response.
type ListItemResponse struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	Subject    string `json:"subject"`
	ReceivedAt string `json:"received_at"`
	Sentiment  string `json:"sentiment,omitempty"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
}

// ListAPIResponse represents the list API response.
type ListAPIResponse struct {
	Items      []ListItemResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

// ListCmd creates the emails list command.
func ListCmd() *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List pending emails",
		Long:  "Lists pending emails ordered by priority, most recent first within each priority.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runList(cmd, limit, cursor, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")

	return cmd
}

func runList(cmd *cobra.Command, limit int, cursor string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		query.Set("cursor", cursor)
	}

	path := "/emails"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	resp, err := api.Get(path)
	if err != nil {
		return err
	}

	var result ListAPIResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(result.Items) == 0 {
		fmt.Println("No pending emails.")
		return nil
	}

	for _, item := range result.Items {
		sentiment := item.Sentiment
		if sentiment == "" {
			sentiment = "-"
		}
		fmt.Printf("%s  [%s] [%s]  %s  %s\n", item.ID, item.Priority, sentiment, item.Sender, item.Subject)
	}
	if result.HasMore {
		fmt.Printf("\nMore results available. Next cursor: %s\n", result.NextCursor)
	}
	return nil
}
