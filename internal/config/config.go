package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nucore/fincore-backend/internal/logger"
)

const (
	defaultPort              = "8080"
	defaultAPIToken          = "dev-token"
	defaultWorkflowTimeout   = 5 * time.Second
	defaultStalePendingAfter = 2 * time.Minute
	defaultMutatorRetries    = 3
)

// Config holds all runtime settings for the server
type Config struct {
	Port        string
	DatabaseDSN string
	APIToken    string
	// WorkflowTimeout bounds a single transaction workflow invocation;
	// a run that exceeds it leaves the transaction failed, never pending
	WorkflowTimeout time.Duration
	// StalePendingAfter is the age at which an untouched pending
	// transaction is reconciled to failed
	StalePendingAfter time.Duration
	// MutatorRetries bounds lock acquisition attempts before Conflict
	MutatorRetries int
	// SeedDemoData provisions a demo user's accounts on boot
	SeedDemoData bool
}

// Load reads the optional .env file and then the environment
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file found, using environment variables", nil)
	}

	return Config{
		Port:              getEnv("PORT", defaultPort),
		DatabaseDSN:       databaseDSN(),
		APIToken:          getEnv("API_TOKEN", defaultAPIToken),
		WorkflowTimeout:   getDuration("WORKFLOW_TIMEOUT", defaultWorkflowTimeout),
		StalePendingAfter: getDuration("STALE_PENDING_AFTER", defaultStalePendingAfter),
		MutatorRetries:    getInt("MUTATOR_RETRIES", defaultMutatorRetries),
		SeedDemoData:      getBool("SEED_DEMO_DATA", false),
	}
}

// databaseDSN prefers an explicit DB_CONN_STR and otherwise assembles the
// DSN from individual variables (Docker friendly)
func databaseDSN() string {
	if dsn := os.Getenv("DB_CONN_STR"); dsn != "" {
		return dsn
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "fincore")
	sslmode := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		logger.Error("invalid duration in environment, using default", err, logger.Fields{"key": key})
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		logger.Error("invalid integer in environment, using default", err, logger.Fields{"key": key})
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return b
}
