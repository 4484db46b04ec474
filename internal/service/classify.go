package service

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/mailsense/internal/domain"
)

// urgentKeywords trips the Urgent priority when any of them appears anywhere
// in the subject+body concatenation, case-insensitively.
var urgentKeywords = []string{
	"urgent",
	"critical",
	"immediately",
	"down",
	"cannot access",
	"billing error",
}

// SentimentClient is the external text-classification capability.
type SentimentClient interface {
	Classify(ctx context.Context, text string) (label string, score float64, err error)
	MaxInputLen() int
}

// Classifier computes priority and sentiment signals for a message.
type Classifier struct {
	sentiment SentimentClient
}

// NewClassifier creates a Classifier. sentiment may be nil when the
// capability is unconfigured; messages are then stored without a sentiment
// label.
func NewClassifier(sentiment SentimentClient) *Classifier {
	return &Classifier{sentiment: sentiment}
}

// HasSentiment reports whether the sentiment capability is configured.
func (c *Classifier) HasSentiment() bool {
	return c.sentiment != nil
}

// Priority returns Urgent when any urgent keyword occurs in text,
// NotUrgent otherwise. Pure and deterministic.
func (c *Classifier) Priority(text string) domain.Priority {
	lower := strings.ToLower(text)
	for _, keyword := range urgentKeywords {
		if strings.Contains(lower, keyword) {
			return domain.PriorityUrgent
		}
	}
	return domain.PriorityNotUrgent
}

// Sentiment classifies text via the external capability and returns the top
// label in canonical capitalized form. Input is truncated to the model's
// maximum length first. Failures propagate so the caller can decide whether
// to skip the message.
func (c *Classifier) Sentiment(ctx context.Context, text string) (string, error) {
	if c.sentiment == nil {
		return "", domain.ErrSentimentUnavailable
	}

	label, _, err := c.sentiment.Classify(ctx, truncateRunes(text, c.sentiment.MaxInputLen()))
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeUnavailable, "sentiment classification failed", err)
	}

	return capitalize(label), nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// capitalize normalizes a label to first-rune-upper, rest-lower
// ("POSITIVE" -> "Positive").
func capitalize(s string) string {
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}
