package eventlog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	defaultBatchSize    = 32
	defaultPollInterval = 100 * time.Millisecond
	defaultPollLimit    = 30 * time.Second
)

// Client is the public façade binding the Store, the subscription
// Engine and a Registry together: Setup, Append, LoadStream, LoadAll,
// Subscribe. It owns no state of its own beyond the objects it wraps.
type Client struct {
	store    *Store
	engine   *Engine
	registry *Registry
	logger   *zap.Logger
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithClientLogger attaches a structured logger, propagated to both the
// Store and the subscription Engine.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient builds a Client over pool. dsn drives schema migrations
// only, exactly as NewStore documents. registry resolves
// event_type strings for callers that decode RecordedEvent.Data
// themselves; the Client never decodes payloads on their behalf.
func NewClient(ctx context.Context, pool *pgxpool.Pool, dsn string, registry *Registry, opts ...ClientOption) (*Client, error) {
	c := &Client{registry: registry, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	store, err := NewStore(ctx, pool, dsn, WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	c.store = store
	c.engine = NewEngine(pool, WithEngineLogger(c.logger))
	return c, nil
}

// Registry returns the Client's event-type registry.
func (c *Client) Registry() *Registry { return c.registry }

// Engine returns the Client's subscription engine, for callers that
// want to drive a single HandleBatch call directly instead of the
// polling Subscribe loop (e.g. tests asserting on one batch at a time).
func (c *Client) Engine() *Engine { return c.engine }

// Setup declares the schema, idempotently.
func (c *Client) Setup(ctx context.Context) error {
	return c.store.Setup(ctx)
}

// Append writes events to one aggregate's stream under optimistic
// concurrency control. See Store.Append.
func (c *Client) Append(ctx context.Context, aggregateType, aggregateID string, events []NewEvent, expectedVersion int64) ([]RecordedEvent, error) {
	return c.store.Append(ctx, aggregateType, aggregateID, events, expectedVersion)
}

// LoadStream reads one aggregate's stream. See Store.LoadStream.
func (c *Client) LoadStream(ctx context.Context, aggregateID string, opts LoadStreamOptions) ([]RecordedEvent, error) {
	return c.store.LoadStream(ctx, aggregateID, opts)
}

// LoadAll reads the global commit-ordered log. See Store.LoadAll.
func (c *Client) LoadAll(ctx context.Context, opts LoadAllOptions) ([]RecordedEvent, error) {
	return c.store.LoadAll(ctx, opts)
}

// Close releases the underlying connection pool.
func (c *Client) Close() {
	c.store.Close()
}

// SubscribeOptions configures Subscribe. Zero values fall back to
// defaultBatchSize, defaultPollInterval and defaultPollLimit.
type SubscribeOptions struct {
	BatchSize    int
	PollInterval time.Duration // backoff starting interval, doubled on each empty poll
	PollLimit    time.Duration // backoff cap
}

// Subscribe drives subscriptionName's poll loop against aggregateType
// until ctx is canceled or handler returns an error it cannot recover
// from. Each poll calls Engine.HandleBatch once; an empty result
// backs the wait off exponentially (capped at opts.PollLimit), and any
// non-empty result resets the wait to opts.PollInterval, per spec §4.7.
//
// A non-nil, non-context error from HandleBatch stops the loop and is
// returned to the caller — Subscribe does not retry handler failures
// itself; the caller's own supervision policy (e.g. restart with
// backoff) decides what happens next.
func (c *Client) Subscribe(ctx context.Context, subscriptionName, aggregateType string, opts SubscribeOptions, handler EventHandler) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	initial := opts.PollInterval
	if initial <= 0 {
		initial = defaultPollInterval
	}
	max := opts.PollLimit
	if max <= 0 {
		max = defaultPollLimit
	}

	bo := newPollBackoff(initial, max)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		processed, err := c.engine.HandleBatch(ctx, subscriptionName, aggregateType, batchSize, handler)
		if err != nil {
			return err
		}
		if processed > 0 {
			bo.reset()
			continue
		}

		timer := time.NewTimer(bo.next())
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
