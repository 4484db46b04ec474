package client

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// AnalyticsAPIResponse represents the analytics response.
type AnalyticsAPIResponse struct {
	TotalEmails     int            `json:"total_emails"`
	PendingEmails   int            `json:"pending_emails"`
	ResolvedEmails  int            `json:"resolved_emails"`
	UrgentEmails    int            `json:"urgent_emails"`
	SentimentCounts map[string]int `json:"sentiment_counts"`
}

// AnalyticsCmd creates the analytics command.
func AnalyticsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show support activity for the last 24 hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/analytics")
			if err != nil {
				return err
			}

			var result AnalyticsAPIResponse
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

			fmt.Printf("Total emails (24h):    %d\n", result.TotalEmails)
			fmt.Printf("Resolved emails (24h): %d\n", result.ResolvedEmails)
			fmt.Printf("Pending emails:        %d\n", result.PendingEmails)
			fmt.Printf("Urgent pending:        %d\n", result.UrgentEmails)

			if len(result.SentimentCounts) > 0 {
				fmt.Println("Sentiment (24h):")
				labels := make([]string, 0, len(result.SentimentCounts))
				for label := range result.SentimentCounts {
					labels = append(labels, label)
				}
				sort.Strings(labels)
				for _, label := range labels {
					fmt.Printf("  %-10s %d\n", label, result.SentimentCounts[label])
				}
			}
			return nil
		},
	}
}
