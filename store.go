package eventlog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// defaultStreamLimit is the default cap on load_stream results, per
// spec §4.2.
const defaultStreamLimit = 512

// Store is the durable core: append with optimistic concurrency, read by
// stream, read by global order. One *pgxpool.Pool backs it; every public
// method opens its own session (transaction or single query) and never
// holds the pool's mutex across a round trip the caller can't see.
type Store struct {
	pool   *pgxpool.Pool
	dsn    string // only used by Setup, to drive the golang-migrate migrator
	logger *zap.Logger
}

// StoreOption configures a Store at construction time.
type StoreOption func(*Store)

// WithLogger attaches a structured logger. The default is a no-op
// logger, matching the teacher's preference for cheap defaults over
// nil-checks scattered through the codebase.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// NewStore wraps pool in a Store, verifying connectivity up front. dsn is
// kept only so Setup can drive a separate database/sql connection for
// golang-migrate; it is never used for query traffic.
func NewStore(ctx context.Context, pool *pgxpool.Pool, dsn string, opts ...StoreOption) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return nil, &StoreError{Op: "NewStore", Err: fmt.Errorf("unable to connect to database: %w", err)}
	}

	s := &Store{pool: pool, dsn: dsn, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Setup declares the es_aggregate, es_event and es_event_subscription
// tables and their indexes, idempotently, via the embedded golang-migrate
// migration set.
func (s *Store) Setup(_ context.Context) error {
	if err := applyMigrations(s.dsn); err != nil {
		return err
	}
	s.logger.Info("eventlog schema ready")
	return nil
}

// Close releases the underlying connection pool. Safe to call once; the
// Store must not be used afterwards.
func (s *Store) Close() {
	s.pool.Close()
}
