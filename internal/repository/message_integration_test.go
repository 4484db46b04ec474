//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/cloo-solutions/mailsense/internal/pagination"
	"github.com/cloo-solutions/mailsense/internal/service"
	"github.com/cloo-solutions/mailsense/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStoredMessage(receivedAt time.Time, priority domain.Priority, sentiment string) *domain.Message {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Message{
		ID:         uuid.NewString(),
		ExternalID: "ext-" + uuid.NewString(),
		Sender:     "user@example.com",
		Subject:    "Subject",
		Body:       "Body text.",
		ReceivedAt: receivedAt.Truncate(time.Microsecond),
		Sentiment:  sentiment,
		Priority:   priority,
		Status:     domain.MessageStatusPending,
		CreatedAt:  now,
	}
}

func TestMessageRepositoryIntegration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewMessageRepository(pool)

	t.Run("create and get round trip", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		msg := newStoredMessage(time.Now().UTC(), domain.PriorityUrgent, "Negative")
		require.NoError(t, repo.Create(ctx, msg))

		got, err := repo.GetByID(ctx, msg.ID)
		require.NoError(t, err)
		assert.Equal(t, msg.ExternalID, got.ExternalID)
		assert.Equal(t, domain.PriorityUrgent, got.Priority)
		assert.Equal(t, "Negative", got.Sentiment)
		assert.Equal(t, domain.MessageStatusPending, got.Status)
	})

	t.Run("empty sentiment stores as null and reads back empty", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		msg := newStoredMessage(time.Now().UTC(), domain.PriorityNotUrgent, "")
		require.NoError(t, repo.Create(ctx, msg))

		got, err := repo.GetByID(ctx, msg.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Sentiment)
	})

	t.Run("get unknown id returns not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})

	t.Run("exists by external id", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		msg := newStoredMessage(time.Now().UTC(), domain.PriorityNotUrgent, "")
		require.NoError(t, repo.Create(ctx, msg))

		exists, err := repo.ExistsByExternalID(ctx, msg.ExternalID)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByExternalID(ctx, "ext-never-seen")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("list pending orders urgent first then most recent", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		base := time.Now().UTC().Add(-time.Hour)
		oldUrgent := newStoredMessage(base, domain.PriorityUrgent, "")
		newUrgent := newStoredMessage(base.Add(30*time.Minute), domain.PriorityUrgent, "")
		newNormal := newStoredMessage(base.Add(45*time.Minute), domain.PriorityNotUrgent, "")

		for _, m := range []*domain.Message{newNormal, oldUrgent, newUrgent} {
			require.NoError(t, repo.Create(ctx, m))
		}

		page, err := repo.ListPending(ctx, nil, 10)
		require.NoError(t, err)
		require.Len(t, page.Items, 3)
		assert.Equal(t, newUrgent.ID, page.Items[0].ID)
		assert.Equal(t, oldUrgent.ID, page.Items[1].ID)
		assert.Equal(t, newNormal.ID, page.Items[2].ID)
		assert.False(t, page.HasMore)
	})

	t.Run("list pending excludes resolved messages", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		pending := newStoredMessage(time.Now().UTC(), domain.PriorityNotUrgent, "")
		resolved := newStoredMessage(time.Now().UTC(), domain.PriorityUrgent, "")
		require.NoError(t, repo.Create(ctx, pending))
		require.NoError(t, repo.Create(ctx, resolved))
		require.NoError(t, repo.MarkResolved(ctx, resolved.ID))

		page, err := repo.ListPending(ctx, nil, 10)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, pending.ID, page.Items[0].ID)
	})

	t.Run("cursor pages walk the full queue without overlap", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		base := time.Now().UTC().Add(-time.Hour)
		for i := 0; i < 5; i++ {
			require.NoError(t, repo.Create(ctx, newStoredMessage(base.Add(time.Duration(i)*time.Minute), domain.PriorityNotUrgent, "")))
		}

		seen := map[string]bool{}

		page, err := repo.ListPending(ctx, nil, 2)
		require.NoError(t, err)
		require.True(t, page.HasMore)
		for _, m := range page.Items {
			seen[m.ID] = true
		}

		for page.HasMore {
			cursor, err := pagination.DecodeCursor(page.NextCursor)
			require.NoError(t, err)

			page, err = repo.ListPending(ctx, cursor, 2)
			require.NoError(t, err)
			for _, m := range page.Items {
				assert.False(t, seen[m.ID], "id %s returned twice", m.ID)
				seen[m.ID] = true
			}
		}

		assert.Len(t, seen, 5)
	})

	t.Run("mark resolved on unknown id returns not found", func(t *testing.T) {
		err := repo.MarkResolved(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})

	t.Run("analytics windows totals but not the backlog", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		now := time.Now().UTC()
		since := now.Add(-24 * time.Hour)

		recentPending := newStoredMessage(now.Add(-time.Hour), domain.PriorityUrgent, "Negative")
		recentResolved := newStoredMessage(now.Add(-2*time.Hour), domain.PriorityNotUrgent, "Positive")
		oldPending := newStoredMessage(now.Add(-48*time.Hour), domain.PriorityUrgent, "Negative")

		for _, m := range []*domain.Message{recentPending, recentResolved, oldPending} {
			require.NoError(t, repo.Create(ctx, m))
		}
		require.NoError(t, repo.MarkResolved(ctx, recentResolved.ID))

		summary, err := repo.Analytics(ctx, since)
		require.NoError(t, err)

		// windowed counters only see the two recent messages
		assert.Equal(t, 2, summary.Total)
		assert.Equal(t, 1, summary.Resolved)
		assert.Equal(t, 1, summary.SentimentCounts["Negative"])
		assert.Equal(t, 1, summary.SentimentCounts["Positive"])

		// backlog counters see the old pending message too
		assert.Equal(t, 2, summary.Pending)
		assert.Equal(t, 2, summary.UrgentPending)
	})
}

func TestTxRunnerIntegration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	runner := NewTxRunner(pool)
	repo := NewMessageRepository(pool)

	t.Run("commits all writes together", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		first := newStoredMessage(time.Now().UTC(), domain.PriorityNotUrgent, "")
		second := newStoredMessage(time.Now().UTC(), domain.PriorityUrgent, "")

		err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
			if err := repos.Messages().Create(ctx, first); err != nil {
				return err
			}
			return repos.Messages().Create(ctx, second)
		})
		require.NoError(t, err)

		page, err := repo.ListPending(ctx, nil, 10)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
	})

	t.Run("rolls back every write when the callback fails", func(t *testing.T) {
		require.NoError(t, testutil.TruncateAll(ctx, pool))

		first := newStoredMessage(time.Now().UTC(), domain.PriorityNotUrgent, "")

		err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
			if err := repos.Messages().Create(ctx, first); err != nil {
				return err
			}
			// duplicate external id violates the unique constraint
			dup := newStoredMessage(time.Now().UTC(), domain.PriorityNotUrgent, "")
			dup.ExternalID = first.ExternalID
			return repos.Messages().Create(ctx, dup)
		})
		require.Error(t, err)

		page, err := repo.ListPending(ctx, nil, 10)
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})
}

func TestKBEmbeddingRepositoryIntegration(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewKBEmbeddingRepository(pool)

	vector := make([]float32, 1536)
	vector[0] = 0.5
	vector[1535] = -0.25

	t.Run("put and get round trip", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, "how do I reset my password?", vector))

		got, err := repo.Get(ctx, "how do I reset my password?")
		require.NoError(t, err)
		require.Len(t, got, 1536)
		assert.InDelta(t, 0.5, got[0], 1e-6)
		assert.InDelta(t, -0.25, got[1535], 1e-6)
	})

	t.Run("get returns nil for unknown questions", func(t *testing.T) {
		got, err := repo.Get(ctx, "never cached")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("put replaces an existing embedding", func(t *testing.T) {
		updated := make([]float32, 1536)
		updated[0] = 1.0
		require.NoError(t, repo.Put(ctx, "how do I reset my password?", updated))

		got, err := repo.Get(ctx, "how do I reset my password?")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, got[0], 1e-6)
	})
}
