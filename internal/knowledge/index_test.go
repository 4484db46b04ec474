package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns canned vectors keyed by input text.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   []string
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		f.calls = append(f.calls, text)
		vec, ok := f.vectors[text]
		if !ok {
			return nil, errors.New("no vector for " + text)
		}
		out[i] = vec
	}
	return out, nil
}

// memoryCache is an in-memory EmbeddingCache.
type memoryCache struct {
	entries map[string][]float32
	puts    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]float32{}}
}

func (c *memoryCache) Get(ctx context.Context, question string) ([]float32, error) {
	return c.entries[question], nil
}

func (c *memoryCache) Put(ctx context.Context, question string, embedding []float32) error {
	c.entries[question] = embedding
	c.puts++
	return nil
}

func testEntries() []domain.KnowledgeEntry {
	return []domain.KnowledgeEntry{
		{Question: "reset password", Answer: "use the link"},
		{Question: "cancel subscription", Answer: "open billing"},
		{Question: "export data", Answer: "use the export page"},
	}
}

func testVectors() map[string][]float32 {
	return map[string][]float32{
		"reset password":      {1, 0, 0},
		"cancel subscription": {0, 1, 0},
		"export data":         {0, 0, 1},
	}
}

func TestBuildIndex(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds every question", func(t *testing.T) {
		embedder := &fakeEmbedder{vectors: testVectors()}

		idx, err := BuildIndex(ctx, embedder, nil, testEntries())

		require.NoError(t, err)
		assert.True(t, idx.Available())
		assert.Equal(t, 3, idx.Len())
		assert.Len(t, embedder.calls, 3)
	})

	t.Run("empty corpus builds an unavailable index", func(t *testing.T) {
		idx, err := BuildIndex(ctx, nil, nil, nil)

		require.NoError(t, err)
		assert.False(t, idx.Available())
		assert.Equal(t, 0, idx.Len())
	})

	t.Run("reuses cached embeddings", func(t *testing.T) {
		cache := newMemoryCache()
		cache.entries["reset password"] = []float32{1, 0, 0}

		embedder := &fakeEmbedder{vectors: testVectors()}

		idx, err := BuildIndex(ctx, embedder, cache, testEntries())

		require.NoError(t, err)
		assert.Equal(t, 3, idx.Len())
		assert.NotContains(t, embedder.calls, "reset password")
		// the two misses were written back
		assert.Equal(t, 2, cache.puts)
	})

	t.Run("fails when embedding the corpus fails", func(t *testing.T) {
		embedder := &fakeEmbedder{err: errors.New("provider down")}

		idx, err := BuildIndex(ctx, embedder, nil, testEntries())

		require.Error(t, err)
		assert.Nil(t, idx)
	})
}

func TestIndex_Search(t *testing.T) {
	ctx := context.Background()

	buildTestIndex := func(t *testing.T, queryVec []float32) *Index {
		t.Helper()
		vectors := testVectors()
		vectors["query"] = queryVec
		idx, err := BuildIndex(ctx, &fakeEmbedder{vectors: vectors}, nil, testEntries())
		require.NoError(t, err)
		return idx
	}

	t.Run("returns the nearest entries by euclidean distance", func(t *testing.T) {
		idx := buildTestIndex(t, []float32{0.9, 0.1, 0})

		result, err := idx.Search(ctx, "query", 2)

		require.NoError(t, err)
		assert.True(t, result.Available)
		require.Len(t, result.Matches, 2)
		assert.Equal(t, "reset password", result.Matches[0].Entry.Question)
		assert.Equal(t, "cancel subscription", result.Matches[1].Entry.Question)
		assert.Less(t, result.Matches[0].Distance, result.Matches[1].Distance)
		assert.Equal(t, []float32{0.9, 0.1, 0}, result.QueryEmbedding)
	})

	t.Run("ties keep corpus insertion order", func(t *testing.T) {
		// equidistant from all three entries
		idx := buildTestIndex(t, []float32{0, 0, 0})

		result, err := idx.Search(ctx, "query", 3)

		require.NoError(t, err)
		require.Len(t, result.Matches, 3)
		assert.Equal(t, "reset password", result.Matches[0].Entry.Question)
		assert.Equal(t, "cancel subscription", result.Matches[1].Entry.Question)
		assert.Equal(t, "export data", result.Matches[2].Entry.Question)
	})

	t.Run("truncates to topK", func(t *testing.T) {
		idx := buildTestIndex(t, []float32{1, 0, 0})

		result, err := idx.Search(ctx, "query", 1)

		require.NoError(t, err)
		assert.Len(t, result.Matches, 1)
	})

	t.Run("defaults topK when non-positive", func(t *testing.T) {
		idx := buildTestIndex(t, []float32{1, 0, 0})

		result, err := idx.Search(ctx, "query", 0)

		require.NoError(t, err)
		assert.Len(t, result.Matches, DefaultTopK)
	})

	t.Run("returns all entries when topK exceeds corpus size", func(t *testing.T) {
		idx := buildTestIndex(t, []float32{1, 0, 0})

		result, err := idx.Search(ctx, "query", 10)

		require.NoError(t, err)
		assert.Len(t, result.Matches, 3)
	})

	t.Run("empty index reports unavailable without error", func(t *testing.T) {
		idx, err := BuildIndex(ctx, nil, nil, nil)
		require.NoError(t, err)

		result, err := idx.Search(ctx, "anything", 2)

		require.NoError(t, err)
		assert.False(t, result.Available)
		assert.Empty(t, result.Matches)
	})

	t.Run("fails when the query cannot be embedded", func(t *testing.T) {
		idx, err := BuildIndex(ctx, &fakeEmbedder{vectors: testVectors()}, nil, testEntries())
		require.NoError(t, err)

		result, err := idx.Search(ctx, "unknown query", 2)

		require.Error(t, err)
		assert.Nil(t, result)
	})
}

func TestEuclideanDistance(t *testing.T) {
	assert.InDelta(t, 5.0, euclideanDistance([]float32{0, 0}, []float32{3, 4}), 1e-6)
	assert.InDelta(t, 0.0, euclideanDistance([]float32{1, 2}, []float32{1, 2}), 1e-6)
}
