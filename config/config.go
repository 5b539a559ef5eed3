package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration fields for the application. It is built
// once at process start and passed explicitly into each client and service;
// nothing reads the environment after LoadConfig returns.
type Config struct {
	StoreBaseURL        string
	StoreAPIKey         string
	OrchestratorBaseURL string
	OrchestratorAPIKey  string

	WebhookSecret string
	APIToken      string
	Port          string

	LogLevel  string
	LogFormat string

	RabbitURL      string
	RabbitExchange string

	JournalPath string

	QRDebugTerminal bool

	StoreTimeout        time.Duration
	OrchestratorTimeout time.Duration

	S3Enabled   bool
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PathStyle bool
	S3PublicURL string
}

// LoadConfig loads configuration from environment variables.
// It attempts to load a .env file if present; real environment variables
// take precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		StoreBaseURL:        os.Getenv("STORE_BASE_URL"),
		StoreAPIKey:         os.Getenv("STORE_API_KEY"),
		OrchestratorBaseURL: os.Getenv("ORCHESTRATOR_BASE_URL"),
		OrchestratorAPIKey:  os.Getenv("ORCHESTRATOR_API_KEY"),
		WebhookSecret:       os.Getenv("WEBHOOK_SECRET"),
		APIToken:            os.Getenv("API_TOKEN"),
		Port:                os.Getenv("PORT"),
		LogLevel:            os.Getenv("LOG_LEVEL"),
		LogFormat:           os.Getenv("LOG_FORMAT"),
		RabbitURL:           os.Getenv("RABBITMQ_URL"),
		RabbitExchange:      os.Getenv("RABBITMQ_EXCHANGE"),
		JournalPath:         os.Getenv("JOURNAL_PATH"),
		QRDebugTerminal:     boolEnv("QR_DEBUG_TERMINAL"),
		StoreTimeout:        durationEnv("STORE_TIMEOUT_SECONDS", 10*time.Second),
		OrchestratorTimeout: durationEnv("ORCHESTRATOR_TIMEOUT_SECONDS", 15*time.Second),
		S3Enabled:           boolEnv("S3_ENABLED"),
		S3Endpoint:          os.Getenv("S3_ENDPOINT"),
		S3Region:            os.Getenv("S3_REGION"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		S3AccessKey:         os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:         os.Getenv("S3_SECRET_KEY"),
		S3PathStyle:         boolEnv("S3_PATH_STYLE"),
		S3PublicURL:         os.Getenv("S3_PUBLIC_URL"),
	}

	if cfg.StoreBaseURL == "" {
		return nil, fmt.Errorf("STORE_BASE_URL is required")
	}
	if cfg.StoreAPIKey == "" {
		return nil, fmt.Errorf("STORE_API_KEY is required")
	}
	if cfg.OrchestratorBaseURL == "" {
		return nil, fmt.Errorf("ORCHESTRATOR_BASE_URL is required")
	}

	if cfg.RabbitExchange == "" {
		cfg.RabbitExchange = "crm.ui"
	}
	if cfg.JournalPath == "" {
		cfg.JournalPath = "bridge-journal.db"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	return cfg, nil
}

func boolEnv(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func durationEnv(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		log.Warn().Str("key", key).Str("value", raw).Msg("Invalid duration value, using default")
		return def
	}
	return time.Duration(secs) * time.Second
}
