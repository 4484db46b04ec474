package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 2, 12, 30, 45, 123456789, time.UTC)
	encoded := EncodeCursor("msg-1", "Urgent", ts)
	require.NotEmpty(t, encoded)

	decoded, err := DecodeCursor(encoded)

	require.NoError(t, err)
	assert.Equal(t, "msg-1", decoded.LastID)
	assert.Equal(t, "Urgent", decoded.Priority)
	assert.True(t, decoded.Timestamp.Equal(ts))
}

func TestEncodeCursor_EmptyID(t *testing.T) {
	assert.Empty(t, EncodeCursor("", "Urgent", time.Now()))
}

func TestDecodeCursor(t *testing.T) {
	t.Run("empty cursor decodes to nil", func(t *testing.T) {
		decoded, err := DecodeCursor("")
		require.NoError(t, err)
		assert.Nil(t, decoded)
	})

	t.Run("rejects invalid base64", func(t *testing.T) {
		_, err := DecodeCursor("%%%not-base64%%%")
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("only-one-field"))
		_, err := DecodeCursor(encoded)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("rejects bad timestamps", func(t *testing.T) {
		encoded := base64.StdEncoding.EncodeToString([]byte("id|Urgent|not-a-time"))
		_, err := DecodeCursor(encoded)
		assert.ErrorIs(t, err, ErrInvalidCursor)
	})

	t.Run("priority values may contain spaces", func(t *testing.T) {
		ts := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
		decoded, err := DecodeCursor(EncodeCursor("id-1", "Not Urgent", ts))
		require.NoError(t, err)
		assert.Equal(t, "Not Urgent", decoded.Priority)
	})
}
