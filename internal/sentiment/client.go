// Package sentiment calls a hosted text-classification inference endpoint.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultMaxInputLen is the maximum input length the classification
	// model accepts; longer inputs must be truncated before submission.
	DefaultMaxInputLen = 512

	defaultTimeout = 30 * time.Second
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoClassification is returned when the endpoint returns no labels
	ErrNoClassification = errors.New("no classification returned")
)

// Classification is a single label with its confidence score.
type Classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Client calls a hosted inference endpoint that scores text polarity.
// The endpoint accepts {"inputs": "<text>"} and answers with a ranked
// label list per input.
type Client struct {
	endpoint   string
	token      string
	maxLen     int
	httpClient *http.Client
}

type Option func(*Client)

// WithMaxInputLen overrides the model's maximum input length.
func WithMaxInputLen(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxLen = n
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a classification client for the given endpoint.
// Token may be empty for unauthenticated endpoints.
func NewClient(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		token:    token,
		maxLen:   DefaultMaxInputLen,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxInputLen returns the maximum input length the model supports.
func (c *Client) MaxInputLen() int {
	return c.maxLen
}

// Classify submits text and returns the top-ranked label with its score.
// The caller is responsible for truncating text to MaxInputLen.
func (c *Client) Classify(ctx context.Context, text string) (*Classification, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	payload, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classification request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classification endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	// The endpoint answers [[{label, score}, ...]] for single inputs.
	var nested [][]Classification
	if err := json.Unmarshal(body, &nested); err == nil {
		if len(nested) == 0 || len(nested[0]) == 0 {
			return nil, ErrNoClassification
		}
		return &nested[0][0], nil
	}

	// Some deployments answer a flat [{label, score}, ...].
	var flat []Classification
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("failed to decode classification response: %w", err)
	}
	if len(flat) == 0 {
		return nil, ErrNoClassification
	}
	return &flat[0], nil
}
