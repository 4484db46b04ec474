package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCorpus(t *testing.T) {
	t.Run("parses question answer pairs", func(t *testing.T) {
		raw := `Q: How do I reset my password?
A: Use the reset link on the login page.

Q: How do I cancel my subscription?
A: Open billing settings and click cancel.
`
		entries := ParseCorpus(raw)

		require.Len(t, entries, 2)
		assert.Equal(t, "How do I reset my password?", entries[0].Question)
		assert.Equal(t, "Use the reset link on the login page.", entries[0].Answer)
		assert.Equal(t, "How do I cancel my subscription?", entries[1].Question)
		assert.Equal(t, "Open billing settings and click cancel.", entries[1].Answer)
	})

	t.Run("preserves corpus order", func(t *testing.T) {
		raw := "Q: first\nA: 1\nQ: second\nA: 2\nQ: third\nA: 3\n"
		entries := ParseCorpus(raw)

		require.Len(t, entries, 3)
		assert.Equal(t, "first", entries[0].Question)
		assert.Equal(t, "second", entries[1].Question)
		assert.Equal(t, "third", entries[2].Question)
	})

	t.Run("skips blocks without an answer marker", func(t *testing.T) {
		raw := "Q: orphan question without answer\nQ: complete\nA: yes\n"
		entries := ParseCorpus(raw)

		require.Len(t, entries, 1)
		assert.Equal(t, "complete", entries[0].Question)
	})

	t.Run("returns nil for text without entries", func(t *testing.T) {
		assert.Nil(t, ParseCorpus(""))
		assert.Nil(t, ParseCorpus("just some prose with no markers"))
	})

	t.Run("answers may span multiple lines", func(t *testing.T) {
		raw := "Q: multi\nA: line one\nline two\n"
		entries := ParseCorpus(raw)

		require.Len(t, entries, 1)
		assert.Equal(t, "line one\nline two", entries[0].Answer)
	})
}

func TestLoadCorpus(t *testing.T) {
	t.Run("reads entries from disk", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "kb.txt")
		require.NoError(t, os.WriteFile(path, []byte("Q: q1\nA: a1\n"), 0o644))

		entries, err := LoadCorpus(path)

		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "q1", entries[0].Question)
	})

	t.Run("missing file yields no entries and no error", func(t *testing.T) {
		entries, err := LoadCorpus(filepath.Join(t.TempDir(), "absent.txt"))

		require.NoError(t, err)
		assert.Nil(t, entries)
	})
}
