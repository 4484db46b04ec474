package domain

import (
	"fmt"
	"time"
)

// Priority represents the coarse urgency label derived from keyword presence.
type Priority string

const (
	PriorityUrgent    Priority = "Urgent"
	PriorityNotUrgent Priority = "Not Urgent"
)

// MessageStatus represents the lifecycle status of a stored message.
type MessageStatus string

const (
	MessageStatusPending  MessageStatus = "pending"
	MessageStatusResolved MessageStatus = "resolved"
)

// Message represents a support email persisted after ingestion.
// ExternalID is the mailbox-provider-assigned id and is the dedupe key:
// at most one Message exists per ExternalID.
type Message struct {
	ID         string
	ExternalID string
	Sender     string
	Subject    string
	Body       string
	ReceivedAt time.Time
	Sentiment  string // empty when classification was unavailable
	Priority   Priority
	Status     MessageStatus
	CreatedAt  time.Time
}

// NewMessage creates a pending Message as produced by the ingestion pipeline.
func NewMessage(
	id, externalID, sender, subject, body string,
	receivedAt time.Time,
	sentiment string,
	priority Priority,
	createdAt time.Time,
) *Message {
	return &Message{
		ID:         id,
		ExternalID: externalID,
		Sender:     sender,
		Subject:    subject,
		Body:       body,
		ReceivedAt: receivedAt,
		Sentiment:  sentiment,
		Priority:   priority,
		Status:     MessageStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateMessage validates a Message instance.
func ValidateMessage(m *Message) error {
	if m == nil {
		return fmt.Errorf("message cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("message ID is required")
	}

	if m.ExternalID == "" {
		return fmt.Errorf("message ExternalID is required")
	}

	if m.ReceivedAt.IsZero() {
		return fmt.Errorf("message ReceivedAt is required")
	}

	if !isValidPriority(m.Priority) {
		return fmt.Errorf("message Priority is invalid: %s", m.Priority)
	}

	if !isValidMessageStatus(m.Status) {
		return fmt.Errorf("message Status is invalid: %s", m.Status)
	}

	return nil
}

func isValidPriority(p Priority) bool {
	switch p {
	case PriorityUrgent, PriorityNotUrgent:
		return true
	}
	return false
}

func isValidMessageStatus(s MessageStatus) bool {
	switch s {
	case MessageStatusPending, MessageStatusResolved:
		return true
	}
	return false
}
