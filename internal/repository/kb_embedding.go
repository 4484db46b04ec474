package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// KBEmbeddingRepository caches corpus question embeddings so restarts don't
// re-embed an unchanged knowledge base. Entries are keyed by the SHA-256 of
// the question text; the cache is purely derived data.
type KBEmbeddingRepository struct {
	pool *pgxpool.Pool
}

func NewKBEmbeddingRepository(pool *pgxpool.Pool) *KBEmbeddingRepository {
	return &KBEmbeddingRepository{pool: pool}
}

func questionSHA(question string) string {
	sum := sha256.Sum256([]byte(question))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached embedding for a question, or nil when absent.
func (r *KBEmbeddingRepository) Get(ctx context.Context, question string) ([]float32, error) {
	var vec pgvector.Vector
	err := r.pool.QueryRow(ctx,
		`SELECT embedding FROM kb_embeddings WHERE question_sha = $1`,
		questionSHA(question),
	).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return vec.Slice(), nil
}

// Put stores an embedding for a question, replacing any previous value.
func (r *KBEmbeddingRepository) Put(ctx context.Context, question string, embedding []float32) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO kb_embeddings (question_sha, question, embedding, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (question_sha) DO UPDATE SET embedding = EXCLUDED.embedding`,
		questionSHA(question), question, pgvector.NewVector(embedding), time.Now().UTC(),
	)
	return err
}
