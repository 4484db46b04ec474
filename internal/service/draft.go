package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/cloo-solutions/mailsense/internal/knowledge"
	"github.com/cloo-solutions/mailsense/internal/telemetry"
)

const (
	// FallbackDraft is returned verbatim whenever generation fails, so the
	// caller always gets a usable reply body.
	FallbackDraft = "I am sorry, but I was unable to generate a response at this time. A human agent will get back to you shortly."

	// unconfiguredDraft is returned when no generation backend is configured.
	unconfiguredDraft = "The AI model is not configured. Please check the API key configuration."

	// noKnowledgeContext stands in for retrieved context when the corpus was
	// absent at startup.
	noKnowledgeContext = "No knowledge base found."
)

const promptTemplate = `You are a friendly and professional customer support assistant.
A customer has sent an email with a '%s' sentiment.

Here is the customer's email:
"%s"

Here is some relevant information from our knowledge base that might help answer their question:
Context:
"%s"

Based on the customer's email and the provided context, please draft an empathetic and helpful reply. If the context is not relevant, simply answer based on the email content.
`

// TextGenerator produces a completion for a composed prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// KnowledgeIndex is the retrieval surface the draft service queries.
type KnowledgeIndex interface {
	Search(ctx context.Context, query string, topK int) (*domain.SimilarityResult, error)
}

// MessageGetter loads a single message by id.
type MessageGetter interface {
	GetByID(ctx context.Context, id string) (*domain.Message, error)
}

// DraftLogEntry records one generation attempt for later evaluation.
type DraftLogEntry struct {
	MessageID      string
	ContextCount   int
	Distances      []float32
	Fallback       bool
	DurationMs     int64
	QueryEmbedding []float32
}

// DraftLogRepository persists generation logs. Writes are best-effort.
type DraftLogRepository interface {
	CreateDraftLog(ctx context.Context, entry DraftLogEntry) (string, error)
}

// DraftResult is a generated reply draft for one message.
type DraftResult struct {
	MessageID    string
	Draft        string
	Fallback     bool
	ContextCount int
}

// DraftService composes a retrieval-augmented prompt for a message and asks
// the generation backend for a reply draft. Retrieval and generation failures
// degrade to fixed fallback text instead of surfacing as errors.
type DraftService struct {
	messages  MessageGetter
	index     KnowledgeIndex
	generator TextGenerator
	draftLogs DraftLogRepository
	now       func() time.Time
}

func NewDraftService(messages MessageGetter, index KnowledgeIndex, generator TextGenerator, draftLogs DraftLogRepository) *DraftService {
	return &DraftService{
		messages:  messages,
		index:     index,
		generator: generator,
		draftLogs: draftLogs,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GenerateForMessage drafts a reply for the message with the given id.
// Unknown ids return domain.ErrMessageNotFound; generation problems do not
// fail the call.
func (s *DraftService) GenerateForMessage(ctx context.Context, id string) (*DraftResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DraftService.GenerateForMessage", telemetry.SpanAttributes{
		MessageID: id,
		Operation: "generate_draft",
	})
	defer span.End()

	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	start := s.now()
	entry := DraftLogEntry{MessageID: msg.ID}

	contextBlock := noKnowledgeContext
	if s.index != nil {
		result, err := s.index.Search(ctx, msg.Body, knowledge.DefaultTopK)
		switch {
		case err != nil:
			log.Printf("draft: knowledge lookup failed for message %s: %v", msg.ID, err)
			telemetry.CaptureError(ctx, err)
			contextBlock = ""
		case result.Available:
			contextBlock = renderContext(result.Matches)
			entry.ContextCount = len(result.Matches)
			entry.QueryEmbedding = result.QueryEmbedding
			for _, m := range result.Matches {
				entry.Distances = append(entry.Distances, m.Distance)
			}
		}
	}

	draft, fallback := s.generate(ctx, msg, contextBlock)

	entry.Fallback = fallback
	entry.DurationMs = s.now().Sub(start).Milliseconds()
	if s.draftLogs != nil {
		if _, err := s.draftLogs.CreateDraftLog(ctx, entry); err != nil {
			log.Printf("draft: failed to log generation for message %s: %v", msg.ID, err)
		}
	}

	return &DraftResult{
		MessageID:    msg.ID,
		Draft:        draft,
		Fallback:     fallback,
		ContextCount: entry.ContextCount,
	}, nil
}

func (s *DraftService) generate(ctx context.Context, msg *domain.Message, contextBlock string) (draft string, fallback bool) {
	if s.generator == nil {
		return unconfiguredDraft, true
	}

	prompt := ComposePrompt(msg.Sentiment, msg.Body, contextBlock)
	out, err := s.generator.GenerateText(ctx, prompt)
	if err != nil {
		log.Printf("draft: generation failed for message %s: %v", msg.ID, err)
		telemetry.CaptureError(ctx, err)
		return FallbackDraft, true
	}
	if out = strings.TrimSpace(out); out == "" {
		return FallbackDraft, true
	}
	return out, false
}

// ComposePrompt renders the generation prompt for one message. An empty
// sentiment renders as Unknown.
func ComposePrompt(sentiment, body, contextBlock string) string {
	if sentiment == "" {
		sentiment = "Unknown"
	}
	return fmt.Sprintf(promptTemplate, sentiment, body, contextBlock)
}

func renderContext(matches []domain.SimilarityMatch) string {
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n\n", m.Entry.Question, m.Entry.Answer)
	}
	return b.String()
}
