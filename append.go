package eventlog

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique_violation.
const uniqueViolation = "23505"

// validateBatch enforces spec §4.1's precondition: non-empty, strictly
// contiguous versions starting right after expectedVersion.
func validateBatch(events []NewEvent, expectedVersion int64) error {
	if len(events) == 0 {
		return &InvalidBatchError{StoreError{Op: "Append", Err: errors.New("events batch must not be empty")}}
	}
	want := expectedVersion + 1
	for i, e := range events {
		if e.Version != want {
			return &InvalidBatchError{StoreError{
				Op:  "Append",
				Err: fmt.Errorf("event %d: expected version %d, got %d", i, want, e.Version),
			}}
		}
		want++
	}
	return nil
}

// Append writes events to aggregateID's stream under a single
// transaction: aggregate upsert, version CAS, event inserts, commit. See
// spec §4.1. expectedVersion is the caller's last-known version (0 for
// a brand new stream); the CAS fails with an *ExpectedVersionError if
// the aggregate's persisted version has moved since.
func (s *Store) Append(ctx context.Context, aggregateType, aggregateID string, events []NewEvent, expectedVersion int64) ([]RecordedEvent, error) {
	if err := validateBatch(events, expectedVersion); err != nil {
		return nil, err
	}
	newVersion := events[len(events)-1].Version

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &StoreError{Op: "Append", Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO es_aggregate (id, version, aggregate_type) VALUES ($1, 0, $2) ON CONFLICT (id) DO NOTHING`,
		aggregateID, aggregateType,
	); err != nil {
		return nil, &StoreError{Op: "Append", Err: fmt.Errorf("upsert aggregate: %w", err)}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE es_aggregate SET version = $1 WHERE id = $2 AND version = $3`,
		newVersion, aggregateID, expectedVersion,
	)
	if err != nil {
		return nil, &StoreError{Op: "Append", Err: fmt.Errorf("advance aggregate version: %w", err)}
	}
	if tag.RowsAffected() == 0 {
		return nil, &ExpectedVersionError{
			StoreError:      StoreError{Op: "Append", Err: errors.New("aggregate version has moved")},
			AggregateID:     aggregateID,
			ExpectedVersion: expectedVersion,
		}
	}

	recorded := make([]RecordedEvent, 0, len(events))
	for _, e := range events {
		var id int64
		var txIDText string
		err := tx.QueryRow(ctx,
			`INSERT INTO es_event (aggregate_id, version, event_type, json_data)
			 VALUES ($1, $2, $3, $4)
			 RETURNING id, transaction_id::text`,
			aggregateID, e.Version, e.EventType, []byte(e.Data),
		).Scan(&id, &txIDText)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return nil, &ExpectedVersionError{
					StoreError:      StoreError{Op: "Append", Err: fmt.Errorf("concurrent write on stream: %w", err)},
					AggregateID:     aggregateID,
					ExpectedVersion: expectedVersion,
				}
			}
			return nil, &StoreError{Op: "Append", Err: fmt.Errorf("insert event version %d: %w", e.Version, err)}
		}

		txID, err := strconv.ParseInt(txIDText, 10, 64)
		if err != nil {
			return nil, &StoreError{Op: "Append", Err: fmt.Errorf("parse transaction id: %w", err)}
		}

		recorded = append(recorded, RecordedEvent{
			ID:            id,
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			Version:       e.Version,
			EventType:     e.EventType,
			Data:          e.Data,
			TransactionID: txID,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &StoreError{Op: "Append", Err: fmt.Errorf("commit: %w", err)}
	}
	s.logger.Debug("appended events", zap.String("aggregate_id", aggregateID), zap.Int("count", len(events)))
	return recorded, nil
}
