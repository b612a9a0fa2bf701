// Package demoenv bootstraps a pgxpool.Pool from environment variables,
// the way the teacher's internal/web-app/main.go does: defaulted
// DB_HOST/DB_PORT/DB_USER/DB_PASSWORD/DB_NAME, a pool config tuned from
// DB_MAX_CONNS/DB_MIN_CONNS, and a bounded connect-retry loop. It exists
// only for the cmd/* demo programs — the eventlog package itself never
// reads the environment.
package demoenv

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

// DSN builds the connection string from DB_HOST/DB_PORT/DB_USER/
// DB_PASSWORD/DB_NAME, defaulting to a local "eventlog" database.
func DSN() string {
	host := getenv("DB_HOST", "localhost")
	port := getenv("DB_PORT", "5432")
	user := getenv("DB_USER", "eventlog")
	password := getenv("DB_PASSWORD", "eventlog")
	name := getenv("DB_NAME", "eventlog")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
}

// Connect builds a tuned pgxpool.Pool for dsn and retries the initial
// connection attempt with a fixed delay, since demo programs are often
// started alongside a database container that is still coming up.
func Connect(ctx context.Context, dsn string, logger *zap.Logger) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	config.MaxConns = int32(getenvInt("DB_MAX_CONNS", 10))
	config.MinConns = int32(getenvInt("DB_MIN_CONNS", 2))
	config.MaxConnLifetime = 10 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	const maxRetries = 30
	const retryDelay = 2 * time.Second

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		logger.Warn("database connection attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < maxRetries {
			time.Sleep(retryDelay)
		}
	}
	return nil, fmt.Errorf("connect to database after %d attempts: %w", maxRetries, err)
}

// NewLogger returns a development zap.Logger, matching the verbosity
// the demo programs want on a terminal.
func NewLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger
}
