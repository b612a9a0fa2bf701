package eventlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// EventHandler processes one dispatched event inside a nested
// transaction (savepoint). Returning an error rolls back the savepoint;
// the engine preserves any earlier progress in the same batch and
// surfaces the error to the caller wrapped in a *HandlerError.
type EventHandler func(ctx context.Context, tx pgx.Tx, event RecordedEvent) error

// Engine is the subscription engine: durable checkpoints, an exclusive
// lease per subscription, visibility-safe reads, and per-event nested
// transaction dispatch with checkpoint advance. See spec §4.4-§4.6.
type Engine struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithEngineLogger attaches a structured logger to the engine.
func WithEngineLogger(logger *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine builds a subscription Engine over pool.
func NewEngine(pool *pgxpool.Pool, opts ...EngineOption) *Engine {
	e := &Engine{pool: pool, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleBatch drives one outer transaction: upsert the subscription row
// if absent, acquire its lease, read visible events after the locked
// checkpoint for aggregateType, dispatch up to batchSize of them in
// order through handler, and advance the checkpoint as each succeeds.
// It returns the number of events the handler ran successfully for.
//
// If the lease is already held by another worker, HandleBatch commits
// (releasing nothing it never held) and returns (0, nil) — lease denial
// is not surfaced as an error, per spec §7.
func (e *Engine) HandleBatch(ctx context.Context, subscriptionName, aggregateType string, batchSize int, handler EventHandler) (int, error) {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return 0, &StoreError{Op: "HandleBatch", Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := ensureSubscription(ctx, tx, subscriptionName); err != nil {
		return 0, err
	}

	checkpoint, acquired, err := acquireLease(ctx, tx, subscriptionName)
	if err != nil {
		return 0, err
	}
	if !acquired {
		if err := tx.Commit(ctx); err != nil {
			return 0, &StoreError{Op: "HandleBatch", Err: fmt.Errorf("commit after denied lease: %w", err)}
		}
		return 0, nil
	}

	events, err := readAfter(ctx, tx, aggregateType, checkpoint, batchSize)
	if err != nil {
		return 0, err
	}

	succeeded := 0
	for _, event := range events {
		nested, err := tx.Begin(ctx)
		if err != nil {
			return succeeded, &StoreError{Op: "HandleBatch", Err: fmt.Errorf("open savepoint: %w", err)}
		}

		if handlerErr := handler(ctx, nested, event); handlerErr != nil {
			_ = nested.Rollback(ctx)

			wrapped := &HandlerError{
				StoreError: StoreError{Op: "HandleBatch", Err: handlerErr},
				EventID:    event.ID,
			}
			if succeeded > 0 {
				// Preserve progress made earlier in this batch before
				// surfacing the error: the outer commit covers every
				// checkpoint advance already applied.
				if err := tx.Commit(ctx); err != nil {
					return succeeded, &StoreError{Op: "HandleBatch", Err: fmt.Errorf("commit partial progress: %w", err)}
				}
			}
			return succeeded, wrapped
		}

		if err := advanceCheckpoint(ctx, tx, subscriptionName, event.TransactionID, event.ID); err != nil {
			_ = nested.Rollback(ctx)
			return succeeded, err
		}
		if err := nested.Commit(ctx); err != nil {
			return succeeded, &StoreError{Op: "HandleBatch", Err: fmt.Errorf("release savepoint: %w", err)}
		}
		succeeded++
	}

	if err := tx.Commit(ctx); err != nil {
		return succeeded, &StoreError{Op: "HandleBatch", Err: fmt.Errorf("commit: %w", err)}
	}
	e.logger.Debug("dispatched batch",
		zap.String("subscription", subscriptionName),
		zap.String("aggregate_type", aggregateType),
		zap.Int("processed", succeeded))
	return succeeded, nil
}

// ensureSubscription upserts the subscription row with the initial
// checkpoint (0, 0), matching "INSERT ... ON CONFLICT DO NOTHING"
// semantics with no rollback side effects (spec §9, open question 2).
func ensureSubscription(ctx context.Context, tx pgx.Tx, name string) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO es_event_subscription (subscription_name, last_transaction_id, last_event_id)
		 VALUES ($1, '0'::xid8, 0)
		 ON CONFLICT (subscription_name) DO NOTHING`,
		name,
	)
	if err != nil {
		return &StoreError{Op: "HandleBatch", Err: fmt.Errorf("ensure subscription: %w", err)}
	}
	return nil
}

// acquireLease locks the subscription row with SELECT ... FOR UPDATE
// SKIP LOCKED. acquired is false, with no error, when another worker
// currently holds the lease.
func acquireLease(ctx context.Context, tx pgx.Tx, name string) (checkpoint SubCheckpoint, acquired bool, err error) {
	var txIDText string
	var eventID int64
	err = tx.QueryRow(ctx,
		`SELECT last_transaction_id::text, last_event_id
		 FROM es_event_subscription
		 WHERE subscription_name = $1
		 FOR UPDATE SKIP LOCKED`,
		name,
	).Scan(&txIDText, &eventID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SubCheckpoint{}, false, nil
		}
		return SubCheckpoint{}, false, &StoreError{Op: "HandleBatch", Err: fmt.Errorf("acquire lease: %w", err)}
	}

	txID, err := strconv.ParseInt(txIDText, 10, 64)
	if err != nil {
		return SubCheckpoint{}, false, &StoreError{Op: "HandleBatch", Err: fmt.Errorf("parse checkpoint transaction id: %w", err)}
	}
	return SubCheckpoint{LastTransactionID: txID, LastEventID: eventID}, true, nil
}

// readAfter returns events for aggregateType whose (transaction_id, id)
// is lexicographically greater than checkpoint, ordered ascending on
// both, excluding events whose transaction is still in flight relative
// to the reader's snapshot. This is the visibility filter of spec §4.5:
// without it a reader could observe a later-committing transaction
// while an earlier one is still open, permanently skipping it once the
// checkpoint moves past.
func readAfter(ctx context.Context, tx pgx.Tx, aggregateType string, checkpoint SubCheckpoint, limit int) ([]RecordedEvent, error) {
	rows, err := tx.Query(ctx,
		`SELECT a.aggregate_type, e.id, e.transaction_id::text, e.aggregate_id, e.event_type, e.json_data, e.version
		 FROM es_event e
		 JOIN es_aggregate a ON a.id = e.aggregate_id
		 WHERE a.aggregate_type = $1
		   AND (e.transaction_id, e.id) > ($2::xid8, $3)
		   AND e.transaction_id < pg_snapshot_xmin(pg_current_snapshot())
		 ORDER BY e.transaction_id ASC, e.id ASC
		 LIMIT $4`,
		aggregateType, strconv.FormatInt(checkpoint.LastTransactionID, 10), checkpoint.LastEventID, limit,
	)
	if err != nil {
		return nil, &StoreError{Op: "HandleBatch", Err: fmt.Errorf("read after checkpoint: %w", err)}
	}
	defer rows.Close()

	out, err := scanRecordedEvents(rows)
	if err != nil {
		return nil, &StoreError{Op: "HandleBatch", Err: err}
	}
	return out, nil
}

// advanceCheckpoint updates the subscription's checkpoint in the outer
// transaction. It does not commit.
func advanceCheckpoint(ctx context.Context, tx pgx.Tx, name string, transactionID, eventID int64) error {
	_, err := tx.Exec(ctx,
		`UPDATE es_event_subscription
		 SET last_transaction_id = $1::xid8, last_event_id = $2
		 WHERE subscription_name = $3`,
		strconv.FormatInt(transactionID, 10), eventID, name,
	)
	if err != nil {
		return &StoreError{Op: "HandleBatch", Err: fmt.Errorf("advance checkpoint: %w", err)}
	}
	return nil
}
