package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSentimentClient is a mock implementation of SentimentClient
type MockSentimentClient struct {
	mock.Mock
}

func (m *MockSentimentClient) Classify(ctx context.Context, text string) (string, float64, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Get(1).(float64), args.Error(2)
}

func (m *MockSentimentClient) MaxInputLen() int {
	args := m.Called()
	return args.Int(0)
}

func TestClassifier_Priority(t *testing.T) {
	classifier := NewClassifier(nil)

	t.Run("flags each urgent keyword", func(t *testing.T) {
		for _, keyword := range []string{"urgent", "critical", "immediately", "down", "cannot access", "billing error"} {
			got := classifier.Priority("subject line mentions " + keyword + " somewhere")
			assert.Equal(t, domain.PriorityUrgent, got, "keyword %q", keyword)
		}
	})

	t.Run("matches case-insensitively", func(t *testing.T) {
		assert.Equal(t, domain.PriorityUrgent, classifier.Priority("URGENT: server issue"))
		assert.Equal(t, domain.PriorityUrgent, classifier.Priority("I Cannot Access my account"))
	})

	t.Run("matches inside larger words", func(t *testing.T) {
		// substring match is intentional: "showdown" contains "down"
		assert.Equal(t, domain.PriorityUrgent, classifier.Priority("the final showdown"))
	})

	t.Run("returns not urgent otherwise", func(t *testing.T) {
		assert.Equal(t, domain.PriorityNotUrgent, classifier.Priority("question about my invoice"))
		assert.Equal(t, domain.PriorityNotUrgent, classifier.Priority(""))
	})
}

func TestClassifier_Sentiment(t *testing.T) {
	ctx := context.Background()

	t.Run("returns unavailable when no client is configured", func(t *testing.T) {
		classifier := NewClassifier(nil)

		label, err := classifier.Sentiment(ctx, "some text")

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSentimentUnavailable)
		assert.Empty(t, label)
		assert.False(t, classifier.HasSentiment())
	})

	t.Run("capitalizes the returned label", func(t *testing.T) {
		mockClient := new(MockSentimentClient)
		mockClient.On("MaxInputLen").Return(512)
		mockClient.On("Classify", mock.Anything, "happy text").Return("POSITIVE", 0.98, nil)

		classifier := NewClassifier(mockClient)

		label, err := classifier.Sentiment(ctx, "happy text")

		require.NoError(t, err)
		assert.Equal(t, "Positive", label)
		mockClient.AssertExpectations(t)
	})

	t.Run("truncates input to the model maximum", func(t *testing.T) {
		mockClient := new(MockSentimentClient)
		mockClient.On("MaxInputLen").Return(10)
		mockClient.On("Classify", mock.Anything, strings.Repeat("a", 10)).Return("negative", 0.7, nil)

		classifier := NewClassifier(mockClient)

		label, err := classifier.Sentiment(ctx, strings.Repeat("a", 100))

		require.NoError(t, err)
		assert.Equal(t, "Negative", label)
		mockClient.AssertExpectations(t)
	})

	t.Run("wraps classification failures", func(t *testing.T) {
		mockClient := new(MockSentimentClient)
		mockClient.On("MaxInputLen").Return(512)
		mockClient.On("Classify", mock.Anything, mock.Anything).Return("", 0.0, errors.New("inference endpoint 503"))

		classifier := NewClassifier(mockClient)

		label, err := classifier.Sentiment(ctx, "text")

		require.Error(t, err)
		assert.Empty(t, label)

		var domainErr *domain.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, domain.ErrCodeUnavailable, domainErr.Code)
	})
}

func TestTruncateRunes(t *testing.T) {
	t.Run("counts runes not bytes", func(t *testing.T) {
		assert.Equal(t, "héll", truncateRunes("héllo", 4))
	})

	t.Run("leaves short strings alone", func(t *testing.T) {
		assert.Equal(t, "short", truncateRunes("short", 512))
	})

	t.Run("ignores non-positive limits", func(t *testing.T) {
		assert.Equal(t, "text", truncateRunes("text", 0))
	})
}
