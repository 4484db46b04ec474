package sentiment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Classify(t *testing.T) {
	ctx := context.Background()

	t.Run("parses nested label lists", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

			var payload map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "great product", payload["inputs"])

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[[{"label":"POSITIVE","score":0.98},{"label":"NEGATIVE","score":0.02}]]`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "test-token")

		result, err := client.Classify(ctx, "great product")

		require.NoError(t, err)
		assert.Equal(t, "POSITIVE", result.Label)
		assert.InDelta(t, 0.98, result.Score, 1e-9)
	})

	t.Run("parses flat label lists", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"label":"NEGATIVE","score":0.91}]`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "")

		result, err := client.Classify(ctx, "terrible")

		require.NoError(t, err)
		assert.Equal(t, "NEGATIVE", result.Label)
	})

	t.Run("omits the auth header without a token", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			w.Write([]byte(`[[{"label":"POSITIVE","score":0.5}]]`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "")

		_, err := client.Classify(ctx, "text")
		require.NoError(t, err)
	})

	t.Run("rejects empty text", func(t *testing.T) {
		client := NewClient("http://unused", "")

		_, err := client.Classify(ctx, "")

		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("fails on non-200 responses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "model loading", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewClient(server.URL, "")

		_, err := client.Classify(ctx, "text")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})

	t.Run("fails when no labels come back", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[[]]`))
		}))
		defer server.Close()

		client := NewClient(server.URL, "")

		_, err := client.Classify(ctx, "text")

		assert.ErrorIs(t, err, ErrNoClassification)
	})
}

func TestClient_MaxInputLen(t *testing.T) {
	assert.Equal(t, DefaultMaxInputLen, NewClient("http://x", "").MaxInputLen())
	assert.Equal(t, 128, NewClient("http://x", "", WithMaxInputLen(128)).MaxInputLen())
}
