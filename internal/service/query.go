package service

import (
	"context"
	"time"

	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/cloo-solutions/mailsense/internal/pagination"
	"github.com/cloo-solutions/mailsense/internal/telemetry"
)

const (
	// DefaultPendingLimit is the page size used when the caller does not
	// specify one.
	DefaultPendingLimit = 50

	// MaxPendingLimit caps the page size a caller may request.
	MaxPendingLimit = 200

	// AnalyticsWindow is the rolling window summarized by Analytics.
	AnalyticsWindow = 24 * time.Hour
)

// MessagePageResult is one page of messages with cursor pagination info.
type MessagePageResult struct {
	Items      []*domain.Message
	NextCursor string
	HasMore    bool
}

// AnalyticsSummary aggregates activity over the last AnalyticsWindow.
// Pending and UrgentPending count the current backlog regardless of when
// the messages arrived; the remaining counters are windowed.
type AnalyticsSummary struct {
	Total           int
	Pending         int
	Resolved        int
	UrgentPending   int
	SentimentCounts map[string]int
}

// MessageReadRepository is the read surface QueryService depends on.
type MessageReadRepository interface {
	ListPending(ctx context.Context, cursor *pagination.Cursor, limit int) (*MessagePageResult, error)
	Analytics(ctx context.Context, since time.Time) (*AnalyticsSummary, error)
}

// QueryService serves read-only views over ingested messages.
type QueryService struct {
	repo MessageReadRepository
	now  func() time.Time
}

func NewQueryService(repo MessageReadRepository) *QueryService {
	return &QueryService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// NewQueryServiceWithClock creates a QueryService with an explicit clock
// (for testing).
func NewQueryServiceWithClock(repo MessageReadRepository, now func() time.Time) *QueryService {
	return &QueryService{repo: repo, now: now}
}

// ListPending returns pending messages ordered by priority, then most
// recently received.
func (s *QueryService) ListPending(ctx context.Context, cursor string, limit int) (*MessagePageResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.ListPending", telemetry.SpanAttributes{
		Operation: "list_pending",
	})
	defer span.End()

	if limit <= 0 {
		limit = DefaultPendingLimit
	}
	if limit > MaxPendingLimit {
		limit = MaxPendingLimit
	}

	var decoded *pagination.Cursor
	if cursor != "" {
		var err error
		decoded, err = pagination.DecodeCursor(cursor)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
	}

	page, err := s.repo.ListPending(ctx, decoded, limit)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return page, nil
}

// Analytics summarizes support activity over the last 24 hours.
func (s *QueryService) Analytics(ctx context.Context) (*AnalyticsSummary, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Analytics", telemetry.SpanAttributes{
		Operation: "analytics",
	})
	defer span.End()

	since := s.now().Add(-AnalyticsWindow)
	summary, err := s.repo.Analytics(ctx, since)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return summary, nil
}
