// Package knowledge builds and queries the in-memory similarity index over
// the static question/answer corpus.
package knowledge

import (
	"os"
	"strings"

	"github.com/cloo-solutions/mailsense/internal/domain"
)

// ParseCorpus parses a Q:/A: delimited corpus. Each entry starts with "Q:"
// followed by the question text up to "A:", then the answer text up to the
// next "Q:" or end of input. Entries missing an "A:" marker are skipped.
func ParseCorpus(raw string) []domain.KnowledgeEntry {
	blocks := strings.Split(raw, "Q:")
	if len(blocks) <= 1 {
		return nil
	}

	entries := make([]domain.KnowledgeEntry, 0, len(blocks)-1)
	for _, block := range blocks[1:] {
		question, answer, found := strings.Cut(block, "A:")
		if !found {
			continue
		}
		entries = append(entries, domain.KnowledgeEntry{
			Question: strings.TrimSpace(question),
			Answer:   strings.TrimSpace(answer),
		})
	}
	return entries
}

// LoadCorpus reads and parses the corpus file. A missing file is not an
// error: it returns nil entries so the index builds empty.
func LoadCorpus(path string) ([]domain.KnowledgeEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return ParseCorpus(string(raw)), nil
}
