package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/cloo-solutions/mailsense/internal/telemetry"
	"github.com/google/uuid"
)

// receivedAtLayout matches RFC 2822 style Date headers
// ("Mon, 2 Jan 2006 15:04:05 -0700").
const receivedAtLayout = "Mon, 2 Jan 2006 15:04:05 -0700"

// MailboxClient is the mailbox provider the pipeline fetches from.
type MailboxClient interface {
	ListMessageIDs(ctx context.Context, query string) ([]string, error)
	GetMessage(ctx context.Context, id string) (*domain.InboundMessage, error)
}

// MessageWriteRepository is the write surface used inside a batch transaction.
type MessageWriteRepository interface {
	Create(ctx context.Context, m *domain.Message) error
}

// MessageDedupeRepository answers existence checks against prior runs.
type MessageDedupeRepository interface {
	ExistsByExternalID(ctx context.Context, externalID string) (bool, error)
}

// TxRepositories exposes repositories bound to one transaction.
type TxRepositories interface {
	Messages() MessageWriteRepository
}

// TxRunnerInterface runs a function inside a single transaction.
type TxRunnerInterface interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestResult summarizes one fetch cycle.
type IngestResult struct {
	Listed   int
	Stored   int
	Skipped  int // already ingested in a prior run
	Failed   int // fetch or classification failures, logged and left behind
	Duration time.Duration
}

// IngestionPipeline fetches matching mailbox messages, dedupes them by
// external id, classifies the new ones, and commits each cycle's accepted
// messages in a single transaction.
type IngestionPipeline struct {
	mailbox    MailboxClient
	dedupe     MessageDedupeRepository
	txRunner   TxRunnerInterface
	classifier *Classifier
	query      string
	uuidGen    UUIDGenerator
	now        func() time.Time
}

func NewIngestionPipeline(
	mailbox MailboxClient,
	dedupe MessageDedupeRepository,
	txRunner TxRunnerInterface,
	classifier *Classifier,
	query string,
) *IngestionPipeline {
	return &IngestionPipeline{
		mailbox:    mailbox,
		dedupe:     dedupe,
		txRunner:   txRunner,
		classifier: classifier,
		query:      query,
		uuidGen:    &DefaultUUIDGenerator{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// NewIngestionPipelineWithDeps creates a pipeline with explicit uuid and
// clock dependencies (for testing).
func NewIngestionPipelineWithDeps(
	mailbox MailboxClient,
	dedupe MessageDedupeRepository,
	txRunner TxRunnerInterface,
	classifier *Classifier,
	query string,
	uuidGen UUIDGenerator,
	now func() time.Time,
) *IngestionPipeline {
	return &IngestionPipeline{
		mailbox:    mailbox,
		dedupe:     dedupe,
		txRunner:   txRunner,
		classifier: classifier,
		query:      query,
		uuidGen:    uuidGen,
		now:        now,
	}
}

// Run executes one fetch cycle. A listing failure aborts before any write;
// per-message fetch or sentiment failures skip that message and continue.
// All accepted messages commit together at the end of the cycle.
func (p *IngestionPipeline) Run(ctx context.Context) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionPipeline.Run", telemetry.SpanAttributes{
		Operation: "ingest",
	})
	defer span.End()

	start := p.now()

	ids, err := p.mailbox.ListMessageIDs(ctx, p.query)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to list mailbox messages: %w", err)
	}

	result := &IngestResult{Listed: len(ids)}
	var accepted []*domain.Message
	seen := make(map[string]bool, len(ids))

	for _, externalID := range ids {
		if seen[externalID] {
			continue
		}
		seen[externalID] = true

		exists, err := p.dedupe.ExistsByExternalID(ctx, externalID)
		if err != nil {
			span.SetError(err)
			return nil, fmt.Errorf("dedupe check failed for %s: %w", externalID, err)
		}
		if exists {
			result.Skipped++
			continue
		}

		msg, err := p.processOne(ctx, externalID)
		if err != nil {
			result.Failed++
			log.Printf("ingest: skipping message %s: %v", externalID, err)
			telemetry.CaptureError(ctx, err)
			continue
		}
		accepted = append(accepted, msg)
	}

	if len(accepted) > 0 {
		err := p.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			for _, m := range accepted {
				if err := repos.Messages().Create(ctx, m); err != nil {
					return fmt.Errorf("failed to store message %s: %w", m.ExternalID, err)
				}
			}
			return nil
		})
		if err != nil {
			span.SetError(err)
			return nil, err
		}
	}

	result.Stored = len(accepted)
	result.Duration = p.now().Sub(start)
	return result, nil
}

func (p *IngestionPipeline) processOne(ctx context.Context, externalID string) (*domain.Message, error) {
	inbound, err := p.mailbox.GetMessage(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	priority := p.classifier.Priority(inbound.Subject + " " + inbound.Body)

	var sentimentLabel string
	if p.classifier.HasSentiment() {
		sentimentLabel, err = p.classifier.Sentiment(ctx, inbound.Body)
		if err != nil {
			return nil, fmt.Errorf("sentiment classification failed: %w", err)
		}
	}

	now := p.now()
	msg := domain.NewMessage(
		p.uuidGen.NewString(),
		externalID,
		inbound.Sender,
		inbound.Subject,
		inbound.Body,
		parseReceivedAt(inbound.DateHeader, now),
		sentimentLabel,
		priority,
		now,
	)

	if err := domain.ValidateMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// parseReceivedAt parses an RFC 2822 style Date header, stripping any
// trailing "(comment)" first. Unparsable dates fall back to now.
func parseReceivedAt(header string, now time.Time) time.Time {
	value := header
	if i := strings.Index(value, " ("); i >= 0 {
		value = value[:i]
	}
	value = strings.TrimSpace(value)

	parsed, err := time.Parse(receivedAtLayout, value)
	if err != nil {
		return now
	}
	return parsed.UTC()
}
