package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/cloo-solutions/mailsense/internal/domain"
)

// DefaultTopK is the default number of neighbors returned per lookup.
const DefaultTopK = 2

// Embedder maps text to fixed-length vectors.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingCache lets the index reuse embeddings computed in earlier runs.
// Both methods are best-effort: the index works without a cache.
type EmbeddingCache interface {
	Get(ctx context.Context, question string) ([]float32, error)
	Put(ctx context.Context, question string, embedding []float32) error
}

// Index is an in-memory nearest-neighbor index over the corpus questions.
// It is built once at process start and is read-only afterwards, so it is
// safe for concurrent lookups without locking.
type Index struct {
	embedder Embedder
	entries  []domain.KnowledgeEntry
	vectors  [][]float32
}

// BuildIndex embeds every corpus question and indexes the vectors. Questions
// present in the cache are not re-embedded. A nil or empty entries slice
// produces an empty index whose lookups report "unavailable" rather than
// failing.
func BuildIndex(ctx context.Context, embedder Embedder, cache EmbeddingCache, entries []domain.KnowledgeEntry) (*Index, error) {
	idx := &Index{embedder: embedder, entries: entries}
	if len(entries) == 0 {
		return idx, nil
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required to index %d entries", len(entries))
	}

	vectors := make([][]float32, len(entries))
	var missing []string
	var missingAt []int
	for i, entry := range entries {
		if cache != nil {
			cached, err := cache.Get(ctx, entry.Question)
			if err == nil && cached != nil {
				vectors[i] = cached
				continue
			}
		}
		missing = append(missing, entry.Question)
		missingAt = append(missingAt, i)
	}

	if len(missing) > 0 {
		embedded, err := embedder.GenerateEmbeddings(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to embed corpus questions: %w", err)
		}
		for j, vec := range embedded {
			vectors[missingAt[j]] = vec
			if cache != nil {
				if err := cache.Put(ctx, missing[j], vec); err != nil {
					// cache writes are best-effort
					continue
				}
			}
		}
	}

	idx.vectors = vectors
	return idx, nil
}

// Len returns the number of indexed entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Available reports whether the index holds any entries.
func (idx *Index) Available() bool {
	return len(idx.entries) > 0
}

// Search embeds the query and returns up to topK nearest entries by ascending
// Euclidean distance. Equal distances keep corpus insertion order. An empty
// index returns an unavailable result, never an error.
func (idx *Index) Search(ctx context.Context, query string, topK int) (*domain.SimilarityResult, error) {
	if !idx.Available() {
		return &domain.SimilarityResult{Available: false}, nil
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	queryVec, err := idx.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches := make([]domain.SimilarityMatch, len(idx.entries))
	for i, entry := range idx.entries {
		matches[i] = domain.SimilarityMatch{
			Entry:    entry,
			Distance: euclideanDistance(queryVec, idx.vectors[i]),
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}

	return &domain.SimilarityResult{Available: true, Matches: matches, QueryEmbedding: queryVec}, nil
}

func euclideanDistance(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}
