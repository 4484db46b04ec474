package admin

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloo-solutions/mailsense/internal/api/handlers"
	"github.com/cloo-solutions/mailsense/internal/config"
	"github.com/cloo-solutions/mailsense/internal/database"
	"github.com/cloo-solutions/mailsense/internal/domain"
	"github.com/cloo-solutions/mailsense/internal/gmail"
	"github.com/cloo-solutions/mailsense/internal/jobs"
	"github.com/cloo-solutions/mailsense/internal/knowledge"
	"github.com/cloo-solutions/mailsense/internal/openai"
	"github.com/cloo-solutions/mailsense/internal/repository"
	"github.com/cloo-solutions/mailsense/internal/sentiment"
	"github.com/cloo-solutions/mailsense/internal/server"
	"github.com/cloo-solutions/mailsense/internal/service"
	"github.com/cloo-solutions/mailsense/internal/telemetry"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the mailsense API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
			Debug:            cfg.Debug,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	messageRepo := repository.NewMessageRepository(pool)
	kbEmbeddingRepo := repository.NewKBEmbeddingRepository(pool)
	draftLogRepo := repository.NewDraftLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	var openaiClient *openai.Client
	if cfg.HasOpenAI() {
		openaiClient = openai.NewClientWithConfig(openai.Config{
			APIKey:          cfg.OpenAIAPIKey,
			GenerationModel: cfg.GenerationModel,
		})
	}

	index, err := buildKnowledgeIndex(ctx, cfg, openaiClient, kbEmbeddingRepo)
	if err != nil {
		return err
	}

	var sentimentClient service.SentimentClient
	if cfg.HasSentiment() {
		sentimentClient = &SentimentAdapter{
			client: sentiment.NewClient(cfg.SentimentURL, cfg.SentimentToken),
		}
		log.Println("sentiment classification enabled")
	} else {
		log.Println("sentiment classification disabled: MAILSENSE_SENTIMENT_URL not set")
	}
	classifier := service.NewClassifier(sentimentClient)

	var mailbox MailboxAdapter
	gmailClient, err := gmail.NewClient(ctx, cfg.GmailCredentialsFile, cfg.GmailTokenFile)
	if err != nil {
		log.Printf("mailbox disabled: %v", err)
		mailbox = &NoOpMailbox{}
	} else {
		mailbox = gmailClient
		log.Println("mailbox connected")
	}

	pipeline := service.NewIngestionPipeline(mailbox, messageRepo, txRunner, classifier, cfg.GmailQuery)
	ingestRunner := jobs.NewIngestRunner(pipeline)

	querySvc := service.NewQueryService(messageRepo)
	var generator service.TextGenerator
	if openaiClient != nil {
		generator = openaiClient
	}
	draftSvc := service.NewDraftService(messageRepo, index, generator, draftLogRepo)
	replySvc := service.NewReplyService(messageRepo, messageRepo, mailbox)

	routerCfg := server.RouterConfig{
		MessageHandler:   handlers.NewMessageHandler(ingestRunner, querySvc, draftSvc, replySvc),
		AnalyticsHandler: handlers.NewAnalyticsHandler(querySvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	ingestRunner.Wait()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func buildKnowledgeIndex(ctx context.Context, cfg *config.Config, embedder *openai.Client, cache knowledge.EmbeddingCache) (*knowledge.Index, error) {
	entries, err := knowledge.LoadCorpus(cfg.KnowledgeBaseFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}
	if len(entries) == 0 {
		log.Printf("knowledge base not found at %s, drafts will run without context", cfg.KnowledgeBaseFile)
		return knowledge.BuildIndex(ctx, nil, nil, nil)
	}
	if embedder == nil {
		log.Println("knowledge base present but OPENAI_API_KEY not set, drafts will run without context")
		return knowledge.BuildIndex(ctx, nil, nil, nil)
	}

	index, err := knowledge.BuildIndex(ctx, embedder, cache, entries)
	if err != nil {
		return nil, fmt.Errorf("failed to build knowledge index: %w", err)
	}
	log.Printf("knowledge index ready with %d entries", index.Len())
	return index, nil
}

// MailboxAdapter is the combined mailbox surface the services need.
type MailboxAdapter interface {
	service.MailboxClient
	service.ReplySender
}

// SentimentAdapter bridges the sentiment HTTP client to the classifier.
type SentimentAdapter struct {
	client *sentiment.Client
}

func (a *SentimentAdapter) Classify(ctx context.Context, text string) (string, float64, error) {
	result, err := a.client.Classify(ctx, text)
	if err != nil {
		return "", 0, err
	}
	return result.Label, result.Score, nil
}

func (a *SentimentAdapter) MaxInputLen() int {
	return a.client.MaxInputLen()
}

// NoOpMailbox stands in when Gmail credentials are not configured.
type NoOpMailbox struct{}

func (m *NoOpMailbox) ListMessageIDs(ctx context.Context, query string) ([]string, error) {
	return nil, domain.ErrMailboxUnavailable
}

func (m *NoOpMailbox) GetMessage(ctx context.Context, id string) (*domain.InboundMessage, error) {
	return nil, domain.ErrMailboxUnavailable
}

func (m *NoOpMailbox) SendReply(ctx context.Context, externalID, replyText string) error {
	return domain.ErrMailboxUnavailable
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Println("migrations applied")
	return nil
}
