// Package gmail adapts the Gmail API to the mailbox contract the ingestion
// pipeline and reply dispatch depend on.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cloo-solutions/mailsense/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Client wraps the Gmail Users service.
type Client struct {
	svc *gmail.UsersService
}

// NewClient creates a Gmail client from an OAuth client-secrets file and a
// previously cached token file.
func NewClient(ctx context.Context, credentialsFile, tokenFile string) (*Client, error) {
	secrets, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(secrets, gmail.GmailReadonlyScope, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	token, err := readToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("no cached OAuth token at %s: %w", tokenFile, err)
	}

	httpClient := oauthCfg.Client(ctx, token)
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Client{svc: svc.Users}, nil
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, err
	}
	return &token, nil
}

// ListMessageIDs lists the ids of all messages matching the query, following
// continuation pages until none remain.
func (c *Client) ListMessageIDs(ctx context.Context, query string) ([]string, error) {
	var ids []string
	pageToken := ""

	for {
		req := c.svc.Messages.List("me").Q(query)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		res, err := req.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		for _, m := range res.Messages {
			ids = append(ids, m.Id)
		}
		if res.NextPageToken == "" {
			return ids, nil
		}
		pageToken = res.NextPageToken
	}
}

// GetMessage fetches a full message and flattens it into the
// provider-independent inbound shape.
func (c *Client) GetMessage(ctx context.Context, id string) (*domain.InboundMessage, error) {
	msg, err := c.svc.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return ParseMessage(msg), nil
}

// SendReply sends replyText as a threaded reply to the message with the given
// external id, preserving subject and threading headers.
func (c *Client) SendReply(ctx context.Context, externalID, replyText string) error {
	original, err := c.svc.Messages.Get("me", externalID).Format("metadata").
		MetadataHeaders("From", "Subject", "Message-ID").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get original message: %w", err)
	}

	to := headerValue(original.Payload, "From")
	subject := headerValue(original.Payload, "Subject")
	messageID := headerValue(original.Payload, "Message-ID")

	replySubject := subject
	if !strings.HasPrefix(strings.ToLower(replySubject), "re:") {
		replySubject = "Re: " + replySubject
	}

	var b strings.Builder
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + replySubject + "\r\n")
	if messageID != "" {
		b.WriteString("In-Reply-To: " + messageID + "\r\n")
		b.WriteString("References: " + messageID + "\r\n")
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(replyText)

	raw := base64.URLEncoding.EncodeToString([]byte(b.String()))

	_, err = c.svc.Messages.Send("me", &gmail.Message{
		Raw:      raw,
		ThreadId: original.ThreadId,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}
