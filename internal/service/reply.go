package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/cloo-solutions/mailsense/internal/telemetry"
)

// ReplySender delivers a reply on the original mailbox thread.
type ReplySender interface {
	SendReply(ctx context.Context, externalID, replyText string) error
}

// MessageResolver marks a message as handled.
type MessageResolver interface {
	MarkResolved(ctx context.Context, id string) error
}

// ReplyService sends a reply for a message and marks it resolved. The status
// change only happens after the provider accepts the send, so a delivery
// failure leaves the message pending.
type ReplyService struct {
	messages MessageGetter
	resolver MessageResolver
	sender   ReplySender
}

func NewReplyService(messages MessageGetter, resolver MessageResolver, sender ReplySender) *ReplyService {
	return &ReplyService{
		messages: messages,
		resolver: resolver,
		sender:   sender,
	}
}

// SendReply sends replyText on the thread of the message with the given id.
// Unknown ids return domain.ErrMessageNotFound. Re-sending for an already
// resolved message is allowed and leaves the status resolved.
func (s *ReplyService) SendReply(ctx context.Context, id, replyText string) error {
	ctx, span := telemetry.StartSpan(ctx, "ReplyService.SendReply", telemetry.SpanAttributes{
		MessageID: id,
		Operation: "send_reply",
	})
	defer span.End()

	if replyText == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "reply text is required")
	}

	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		span.SetError(err)
		return err
	}

	if s.sender == nil {
		span.SetError(domain.ErrMailboxUnavailable)
		return domain.ErrMailboxUnavailable
	}

	if err := s.sender.SendReply(ctx, msg.ExternalID, replyText); err != nil {
		span.SetError(err)
		return domain.NewDomainErrorWithCause(
			domain.ErrCodeUnavailable,
			fmt.Sprintf("failed to send reply for message %s", msg.ID),
			err,
		)
	}

	if err := s.resolver.MarkResolved(ctx, msg.ID); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}
