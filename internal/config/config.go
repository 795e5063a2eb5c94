// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr          string
	DBPath              string
	GitHubWebhookSecret string
	SlackSigningSecret  string
	Workers             int
	QueueSize           int
	SettleDelay         time.Duration
	ArchiveAfter        time.Duration
	ReconcileInterval   time.Duration
}

// Load reads configuration from environment variables and returns a validated
// Config. A .env file in the working directory is loaded first when present.
// PRBRIDGE_GITHUB_WEBHOOK_SECRET and PRBRIDGE_SLACK_SIGNING_SECRET are
// required; without them inbound deliveries cannot be verified. Optional
// variables with defaults: PRBRIDGE_LISTEN_ADDR (127.0.0.1:8080),
// PRBRIDGE_DB_PATH (prbridge.db), PRBRIDGE_WORKERS (4),
// PRBRIDGE_QUEUE_SIZE (256), PRBRIDGE_SETTLE_DELAY (2s),
// PRBRIDGE_ARCHIVE_AFTER (72h), PRBRIDGE_RECONCILE_INTERVAL (15m).
func Load() (*Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	githubSecret := os.Getenv("PRBRIDGE_GITHUB_WEBHOOK_SECRET")
	if githubSecret == "" {
		return nil, fmt.Errorf("PRBRIDGE_GITHUB_WEBHOOK_SECRET is required")
	}

	slackSecret := os.Getenv("PRBRIDGE_SLACK_SIGNING_SECRET")
	if slackSecret == "" {
		return nil, fmt.Errorf("PRBRIDGE_SLACK_SIGNING_SECRET is required")
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("PRBRIDGE_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "prbridge.db"
	if v, ok := os.LookupEnv("PRBRIDGE_DB_PATH"); ok {
		dbPath = v
	}

	workers, err := intVar("PRBRIDGE_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	queueSize, err := intVar("PRBRIDGE_QUEUE_SIZE", 256)
	if err != nil {
		return nil, err
	}

	settleDelay, err := durationVar("PRBRIDGE_SETTLE_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}

	archiveAfter, err := durationVar("PRBRIDGE_ARCHIVE_AFTER", 72*time.Hour)
	if err != nil {
		return nil, err
	}

	reconcileInterval, err := durationVar("PRBRIDGE_RECONCILE_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, err
	}

	return &Config{
		ListenAddr:          listenAddr,
		DBPath:              dbPath,
		GitHubWebhookSecret: githubSecret,
		SlackSigningSecret:  slackSecret,
		Workers:             workers,
		QueueSize:           queueSize,
		SettleDelay:         settleDelay,
		ArchiveAfter:        archiveAfter,
		ReconcileInterval:   reconcileInterval,
	}, nil
}

func intVar(name string, fallback int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback, nil
	}

	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil || n < 1 {
		return 0, fmt.Errorf("%s has invalid value %q", name, v)
	}
	return n, nil
}

func durationVar(name string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", name, v, err)
	}
	return d, nil
}
