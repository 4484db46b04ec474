package repository

import (
	"context"
	"encoding/json"

	"github.com/cloo-solutions/mailsense/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// DraftLogRepository stores draft-generation logs for evaluation.
type DraftLogRepository struct {
	pool *pgxpool.Pool
}

func NewDraftLogRepository(pool *pgxpool.Pool) *DraftLogRepository {
	return &DraftLogRepository{pool: pool}
}

func (r *DraftLogRepository) CreateDraftLog(ctx context.Context, entry service.DraftLogEntry) (string, error) {
	distancesJSON, _ := json.Marshal(entry.Distances)

	var queryEmbedding *pgvector.Vector
	if len(entry.QueryEmbedding) > 0 {
		vec := pgvector.NewVector(entry.QueryEmbedding)
		queryEmbedding = &vec
	}

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO draft_logs (message_id, context_count, distances, fallback, duration_ms, query_embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		entry.MessageID,
		entry.ContextCount,
		distancesJSON,
		entry.Fallback,
		entry.DurationMs,
		queryEmbedding,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
