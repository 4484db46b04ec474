package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// OpenAI powers both question embeddings and draft generation.
	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	GenerationModel string `envconfig:"GENERATION_MODEL" default:"gpt-4o-mini"`

	// Sentiment inference endpoint (hosted text-classification capability).
	SentimentURL   string `envconfig:"SENTIMENT_URL"`
	SentimentToken string `envconfig:"SENTIMENT_TOKEN"`

	// Gmail OAuth client credentials and cached token, as file paths.
	GmailCredentialsFile string `envconfig:"GMAIL_CREDENTIALS_FILE" default:"credentials.json"`
	GmailTokenFile       string `envconfig:"GMAIL_TOKEN_FILE" default:"token.json"`
	GmailQuery           string `envconfig:"GMAIL_QUERY" default:"(Support OR Query OR Request OR Help) newer_than:1d"`

	// Knowledge base corpus file, Q:/A: delimited.
	KnowledgeBaseFile string `envconfig:"KB_FILE" default:"kb.txt"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("MAILSENSE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasSentiment() bool {
	return c.SentimentURL != ""
}
