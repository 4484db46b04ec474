package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cloo-solutions/mailsense/internal/api"
	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/cloo-solutions/mailsense/internal/service"
	"github.com/go-chi/chi/v5"
)

type IngestTrigger interface {
	Trigger(ctx context.Context) bool
}

type MessageQueryService interface {
	ListPending(ctx context.Context, cursor string, limit int) (*service.MessagePageResult, error)
}

type DraftGenerationService interface {
	GenerateForMessage(ctx context.Context, id string) (*service.DraftResult, error)
}

type ReplySendService interface {
	SendReply(ctx context.Context, id, replyText string) error
}

type MessageHandler struct {
	ingest IngestTrigger
	query  MessageQueryService
	drafts DraftGenerationService
	reply  ReplySendService
}

func NewMessageHandler(ingest IngestTrigger, query MessageQueryService, drafts DraftGenerationService, reply ReplySendService) *MessageHandler {
	return &MessageHandler{
		ingest: ingest,
		query:  query,
		drafts: drafts,
		reply:  reply,
	}
}

type MessageResponse struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	ReceivedAt string `json:"received_at"`
	Sentiment  string `json:"sentiment,omitempty"`
	Priority   string `json:"priority"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

type MessageListResponse struct {
	Items      []*MessageResponse `json:"items"`
	NextCursor string             `json:"next_cursor,omitempty"`
	HasMore    bool               `json:"has_more"`
}

type DraftResponse struct {
	MessageID    string `json:"message_id"`
	Draft        string `json:"draft"`
	Fallback     bool   `json:"fallback"`
	ContextCount int    `json:"context_count"`
}

type SendReplyRequest struct {
	ReplyText string `json:"reply_text"`
}

type FetchResponse struct {
	Status string `json:"status"`
}

func messageToResponse(m *domain.Message) *MessageResponse {
	return &MessageResponse{
		ID:         m.ID,
		Sender:     m.Sender,
		Subject:    m.Subject,
		Body:       m.Body,
		ReceivedAt: m.ReceivedAt.Format(time.RFC3339),
		Sentiment:  m.Sentiment,
		Priority:   string(m.Priority),
		Status:     string(m.Status),
		CreatedAt:  m.CreatedAt.Format(time.RFC3339),
	}
}

// Fetch starts a background ingestion cycle and returns immediately.
func (h *MessageHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	started := h.ingest.Trigger(r.Context())

	status := "fetch started"
	if !started {
		status = "fetch already in progress"
	}
	api.Success(w, http.StatusAccepted, &FetchResponse{Status: status})
}

// List returns pending messages, most important first.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	page, err := h.query.ListPending(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*MessageResponse, 0, len(page.Items))
	for _, m := range page.Items {
		items = append(items, messageToResponse(m))
	}

	api.Success(w, http.StatusOK, &MessageListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	})
}

// GenerateResponse drafts a reply for one message.
func (h *MessageHandler) GenerateResponse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	result, err := h.drafts.GenerateForMessage(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, &DraftResponse{
		MessageID:    result.MessageID,
		Draft:        result.Draft,
		Fallback:     result.Fallback,
		ContextCount: result.ContextCount,
	})
}

// Send delivers a reply on the message's thread and marks it resolved.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req SendReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ReplyText == "" {
		api.Error(w, http.StatusBadRequest, "reply_text is required")
		return
	}

	if err := h.reply.SendReply(r.Context(), id, req.ReplyText); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "reply sent"})
}
