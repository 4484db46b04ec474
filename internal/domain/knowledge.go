package domain

// KnowledgeEntry is a question/answer pair loaded from the static corpus at
// process start. Entries are immutable after load and owned by the index.
type KnowledgeEntry struct {
	Question string
	Answer   string
}

// SimilarityMatch pairs a corpus entry with its distance to a query vector.
// Lower distance means closer.
type SimilarityMatch struct {
	Entry    KnowledgeEntry
	Distance float32
}

// SimilarityResult is the outcome of a nearest-neighbor lookup. When the
// corpus was absent at build time, Available is false and Matches is empty.
// QueryEmbedding carries the embedded query vector for audit logging.
type SimilarityResult struct {
	Available      bool
	Matches        []SimilarityMatch
	QueryEmbedding []float32
}
