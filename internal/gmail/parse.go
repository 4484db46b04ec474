package gmail

import (
	"encoding/base64"
	"strings"

	"github.com/cloo-solutions/mailsense/internal/domain"
	gmail "google.golang.org/api/gmail/v1"
)

// ParseMessage flattens a full Gmail message into the provider-independent
// shape the ingestion pipeline consumes.
func ParseMessage(msg *gmail.Message) *domain.InboundMessage {
	parsed := &domain.InboundMessage{ExternalID: msg.Id}
	if msg.Payload == nil {
		return parsed
	}

	parsed.Sender = headerValueDefault(msg.Payload, "From", "Unknown Sender")
	parsed.Subject = headerValueDefault(msg.Payload, "Subject", "No Subject")
	parsed.DateHeader = headerValue(msg.Payload, "Date")
	parsed.Body = strings.TrimSpace(ExtractBody(msg.Payload))

	return parsed
}

// ExtractBody returns the message's plain-text body. It prefers the first
// text/plain part found by depth-first traversal, recursing into
// multipart/alternative containers, and falls back to the top-level body
// when the message has no parts.
func ExtractBody(payload *gmail.MessagePart) string {
	if body := firstPlainTextPart(payload.Parts); body != "" {
		return body
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBody(payload.Body.Data)
	}
	return ""
}

func firstPlainTextPart(parts []*gmail.MessagePart) string {
	for _, part := range parts {
		switch part.MimeType {
		case "text/plain":
			if part.Body != nil && part.Body.Data != "" {
				return decodeBody(part.Body.Data)
			}
		case "multipart/alternative":
			return firstPlainTextPart(part.Parts)
		}
	}
	return ""
}

// decodeBody decodes base64url body data. Gmail emits unpadded RFC 4648
// base64url, but some clients pad or use standard base64.
func decodeBody(data string) string {
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.StdEncoding,
	} {
		if decoded, err := enc.DecodeString(data); err == nil {
			return string(decoded)
		}
	}
	return ""
}

func headerValue(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func headerValueDefault(payload *gmail.MessagePart, name, fallback string) string {
	if v := headerValue(payload, name); v != "" {
		return v
	}
	return fallback
}
