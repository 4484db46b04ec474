package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/mailsense/internal/api"
	"github.com/cloo-solutions/mailsense/internal/service"
)

type AnalyticsService interface {
	Analytics(ctx context.Context) (*service.AnalyticsSummary, error)
}

type AnalyticsHandler struct {
	svc AnalyticsService
}

func NewAnalyticsHandler(svc AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{svc: svc}
}

type AnalyticsResponse struct {
	TotalEmails     int            `json:"total_emails"`
	PendingEmails   int            `json:"pending_emails"`
	ResolvedEmails  int            `json:"resolved_emails"`
	UrgentEmails    int            `json:"urgent_emails"`
	SentimentCounts map[string]int `json:"sentiment_counts"`
}

// Get summarizes support activity over the last 24 hours.
func (h *AnalyticsHandler) Get(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Analytics(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	counts := summary.SentimentCounts
	if counts == nil {
		counts = map[string]int{}
	}

	api.Success(w, http.StatusOK, &AnalyticsResponse{
		TotalEmails:     summary.Total,
		PendingEmails:   summary.Pending,
		ResolvedEmails:  summary.Resolved,
		UrgentEmails:    summary.UrgentPending,
		SentimentCounts: counts,
	})
}
