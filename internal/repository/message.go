package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/cloo-solutions/mailsense/internal/pagination"
	"github.com/cloo-solutions/mailsense/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	db dbtx
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: pool}
}

func NewMessageRepositoryWithTx(tx pgx.Tx) *MessageRepository {
	return &MessageRepository{db: tx}
}

func (r *MessageRepository) Create(ctx context.Context, m *domain.Message) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO messages (id, external_id, sender, subject, body, received_at, sentiment, priority, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.ExternalID, m.Sender, m.Subject, m.Body, m.ReceivedAt,
		nullableString(m.Sentiment), m.Priority, m.Status, m.CreatedAt,
	)
	return err
}

func (r *MessageRepository) ExistsByExternalID(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE external_id = $1)`,
		externalID,
	).Scan(&exists)
	return exists, err
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*domain.Message, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, external_id, sender, subject, body, received_at, sentiment, priority, status, created_at
		 FROM messages WHERE id = $1`,
		id,
	)
	m, err := scanMessageRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *MessageRepository) ListPending(ctx context.Context, cursor *pagination.Cursor, limit int) (*service.MessagePageResult, error) {
	if limit <= 0 {
		limit = service.DefaultPendingLimit
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, external_id, sender, subject, body, received_at, sentiment, priority, status, created_at
			 FROM messages
			 WHERE status = $1 AND (priority, received_at, id) < ($2, $3, $4)
			 ORDER BY priority DESC, received_at DESC, id DESC
			 LIMIT $5`,
			domain.MessageStatusPending, cursor.Priority, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, external_id, sender, subject, body, received_at, sentiment, priority, status, created_at
			 FROM messages
			 WHERE status = $1
			 ORDER BY priority DESC, received_at DESC, id DESC
			 LIMIT $2`,
			domain.MessageStatusPending, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanMessageRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, string(last.Priority), last.ReceivedAt)
	}

	return &service.MessagePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *MessageRepository) MarkResolved(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE messages SET status = $1 WHERE id = $2`,
		domain.MessageStatusResolved, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

// Analytics computes the summary counts. The window applies to total,
// resolved, and the sentiment distribution; pending and urgent-pending count
// the live queue regardless of age.
func (r *MessageRepository) Analytics(ctx context.Context, since time.Time) (*service.AnalyticsSummary, error) {
	summary := &service.AnalyticsSummary{
		SentimentCounts: map[string]int{},
	}

	err := r.db.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE received_at >= $1),
		   COUNT(*) FILTER (WHERE status = $2),
		   COUNT(*) FILTER (WHERE status = $3 AND received_at >= $1),
		   COUNT(*) FILTER (WHERE status = $2 AND priority = $4)
		 FROM messages`,
		since, domain.MessageStatusPending, domain.MessageStatusResolved, domain.PriorityUrgent,
	).Scan(&summary.Total, &summary.Pending, &summary.Resolved, &summary.UrgentPending)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT sentiment, COUNT(*)
		 FROM messages
		 WHERE received_at >= $1 AND sentiment IS NOT NULL
		 GROUP BY sentiment`,
		since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var label string
		var count int
		if err := rows.Scan(&label, &count); err != nil {
			return nil, err
		}
		summary.SentimentCounts[label] = count
	}

	return summary, rows.Err()
}

func scanMessageRow(row pgx.Row) (*domain.Message, error) {
	var m domain.Message
	var sentiment *string
	err := row.Scan(&m.ID, &m.ExternalID, &m.Sender, &m.Subject, &m.Body,
		&m.ReceivedAt, &sentiment, &m.Priority, &m.Status, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if sentiment != nil {
		m.Sentiment = *sentiment
	}
	return &m, nil
}

func scanMessageRows(rows pgx.Rows) ([]*domain.Message, error) {
	var results []*domain.Message
	for rows.Next() {
		var m domain.Message
		var sentiment *string
		if err := rows.Scan(&m.ID, &m.ExternalID, &m.Sender, &m.Subject, &m.Body,
			&m.ReceivedAt, &sentiment, &m.Priority, &m.Status, &m.CreatedAt); err != nil {
			return nil, err
		}
		if sentiment != nil {
			m.Sentiment = *sentiment
		}
		results = append(results, &m)
	}
	return results, rows.Err()
}
