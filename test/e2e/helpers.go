//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloo-solutions/mailsense/internal/api/handlers"
	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/cloo-solutions/mailsense/internal/jobs"
	"github.com/cloo-solutions/mailsense/internal/knowledge"
	"github.com/cloo-solutions/mailsense/internal/repository"
	"github.com/cloo-solutions/mailsense/internal/server"
	"github.com/cloo-solutions/mailsense/internal/service"
	"github.com/cloo-solutions/mailsense/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	Mailbox      *fakeMailbox
	Generator    *fakeGenerator
	BinaryDir    string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with a database container,
// a fake mailbox, and an in-process HTTP server.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	mailbox := newFakeMailbox()
	generator := &fakeGenerator{reply: "Thanks for reaching out. We have reset your account and you should be able to log in again."}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, ctx, pool, mailbox, generator, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		Mailbox:      mailbox,
		Generator:    generator,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// TriggerFetchAndWait posts /fetch-emails and polls the pending list until it
// holds at least want messages or the timeout elapses.
func (e *E2ETestEnv) TriggerFetchAndWait(want int, timeout time.Duration) {
	if _, err := e.Post("/fetch-emails", nil); err != nil {
		e.T.Fatalf("failed to trigger fetch: %v", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var count int
		if err := e.Pool.QueryRow(e.Ctx, "SELECT COUNT(*) FROM messages").Scan(&count); err == nil && count >= want {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	e.T.Fatalf("ingestion did not reach %d messages within %v", want, timeout)
}

// BuildBinaries builds the mailsense and mailsensed binaries
func (e *E2ETestEnv) BuildBinaries() {
	tmpDir, err := os.MkdirTemp("", "mailsense-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	for _, name := range []string{"mailsensed", "mailsense"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, name), "./cmd/"+name)
		cmd.Dir = "../.."
		if out, err := cmd.CombinedOutput(); err != nil {
			e.T.Fatalf("failed to build %s: %v\n%s", name, err, out)
		}
	}
}

// RunMailsense runs the mailsense CLI command against the test server.
func (e *E2ETestEnv) RunMailsense(args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "mailsense"), args...)
	cmd.Env = append(os.Environ(),
		fmt.Sprintf("MAILSENSE_API_URL=%s", e.ServerURL),
	)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest("POST", path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer wires repositories, services, and handlers the way serve does,
// with the mailbox, embedder, generator, and sentiment backends faked.
func startServer(t *testing.T, ctx context.Context, pool *pgxpool.Pool, mailbox *fakeMailbox, generator *fakeGenerator, port int) (string, func()) {
	messageRepo := repository.NewMessageRepository(pool)
	kbRepo := repository.NewKBEmbeddingRepository(pool)
	draftLogRepo := repository.NewDraftLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	index, err := knowledge.BuildIndex(ctx, &fakeEmbedder{}, kbRepo, corpusEntries())
	if err != nil {
		t.Fatalf("failed to build knowledge index: %v", err)
	}

	classifier := service.NewClassifier(&fakeSentiment{})
	pipeline := service.NewIngestionPipeline(mailbox, messageRepo, txRunner, classifier, "is:support")
	ingestRunner := jobs.NewIngestRunner(pipeline)
	querySvc := service.NewQueryService(messageRepo)
	draftSvc := service.NewDraftService(messageRepo, index, generator, draftLogRepo)
	replySvc := service.NewReplyService(messageRepo, messageRepo, mailbox)

	router := server.NewRouter(server.RouterConfig{
		MessageHandler:   handlers.NewMessageHandler(ingestRunner, querySvc, draftSvc, replySvc),
		AnalyticsHandler: handlers.NewAnalyticsHandler(querySvc),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ingestRunner.Wait()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func corpusEntries() []domain.KnowledgeEntry {
	return []domain.KnowledgeEntry{
		{Question: "How do I reset my password?", Answer: "Use the Forgot Password link on the login page."},
		{Question: "How do I request a refund?", Answer: "Refunds are issued within 5 business days of the request."},
		{Question: "Why was I charged twice?", Answer: "Duplicate charges are reversed automatically within 48 hours."},
	}
}

// SentReply records one reply sent through the fake mailbox.
type SentReply struct {
	ExternalID string
	Text       string
}

// fakeMailbox is an in-memory mailbox provider. Tests seed it with inbound
// messages and inspect the replies sent through it.
type fakeMailbox struct {
	mu       sync.Mutex
	order    []string
	messages map[string]*domain.InboundMessage
	sent     []SentReply
}

func newFakeMailbox() *fakeMailbox {
	return &fakeMailbox{messages: make(map[string]*domain.InboundMessage)}
}

func (m *fakeMailbox) Add(msg *domain.InboundMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.messages[msg.ExternalID]; !ok {
		m.order = append(m.order, msg.ExternalID)
	}
	m.messages[msg.ExternalID] = msg
}

func (m *fakeMailbox) ListMessageIDs(ctx context.Context, query string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.order))
	copy(ids, m.order)
	return ids, nil
}

func (m *fakeMailbox) GetMessage(ctx context.Context, id string) (*domain.InboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg, ok := m.messages[id]
	if !ok {
		return nil, fmt.Errorf("no such message: %s", id)
	}
	return msg, nil
}

func (m *fakeMailbox) SendReply(ctx context.Context, externalID, replyText string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, SentReply{ExternalID: externalID, Text: replyText})
	return nil
}

func (m *fakeMailbox) Sent() []SentReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentReply, len(m.sent))
	copy(out, m.sent)
	return out
}

// fakeEmbedder maps text onto a small keyword-count vector so nearest
// neighbors are deterministic without a real embedding model.
type fakeEmbedder struct{}

var embedderKeywords = []string{"password", "refund", "charged", "login"}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(embedderKeywords)+1)
	for i, kw := range embedderKeywords {
		vec[i] = float32(strings.Count(lower, kw))
	}
	vec[len(embedderKeywords)] = 1
	return vec, nil
}

func (f *fakeEmbedder) GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := f.GenerateEmbedding(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// fakeGenerator returns a canned reply, or an error when failing is set, so
// tests can drive both the success and the fallback path.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	failing bool
}

func (g *fakeGenerator) SetFailing(failing bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failing = failing
}

func (g *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return "", fmt.Errorf("model backend unavailable")
	}
	return g.reply, nil
}

// fakeSentiment labels text negative when it complains, positive otherwise.
type fakeSentiment struct{}

func (s *fakeSentiment) Classify(ctx context.Context, text string) (string, float64, error) {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "angry") || strings.Contains(lower, "unacceptable") || strings.Contains(lower, "error") {
		return "negative", 0.97, nil
	}
	return "positive", 0.91, nil
}

func (s *fakeSentiment) MaxInputLen() int {
	return 512
}
