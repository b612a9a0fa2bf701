package eventlog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// LoadStreamOptions configures LoadStream. The zero value reads versions
// 1..N in ascending order, up to defaultStreamLimit events.
type LoadStreamOptions struct {
	FromVersion int64 // exclusive lower bound; 0 means "from the start"
	ToVersion   *int64 // inclusive upper bound; nil means unbounded
	Limit       int    // 0 means defaultStreamLimit
	Reverse     bool
}

// LoadStream reads events for one aggregate, ordered by version, per
// spec §4.2. It is a single index seek on (aggregate_id, version).
func (s *Store) LoadStream(ctx context.Context, aggregateID string, opts LoadStreamOptions) ([]RecordedEvent, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultStreamLimit
	}
	order := "ASC"
	if opts.Reverse {
		order = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT a.aggregate_type, e.id, e.transaction_id::text, e.event_type, e.json_data, e.version
		FROM es_event e
		JOIN es_aggregate a ON a.id = e.aggregate_id
		WHERE e.aggregate_id = $1
		  AND e.version > $2
		  AND ($3::bigint IS NULL OR e.version <= $3)
		ORDER BY e.version %s
		LIMIT $4`, order)

	rows, err := s.pool.Query(ctx, query, aggregateID, opts.FromVersion, opts.ToVersion, limit)
	if err != nil {
		return nil, &StoreError{Op: "LoadStream", Err: fmt.Errorf("query stream: %w", err)}
	}
	defer rows.Close()

	var out []RecordedEvent
	for rows.Next() {
		var aggregateType, eventType, txIDText string
		var id, version int64
		var data []byte
		if err := rows.Scan(&aggregateType, &id, &txIDText, &eventType, &data, &version); err != nil {
			return nil, &StoreError{Op: "LoadStream", Err: fmt.Errorf("scan row: %w", err)}
		}
		txID, err := strconv.ParseInt(txIDText, 10, 64)
		if err != nil {
			return nil, &StoreError{Op: "LoadStream", Err: fmt.Errorf("parse transaction id: %w", err)}
		}
		out = append(out, RecordedEvent{
			ID:            id,
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			Version:       version,
			EventType:     eventType,
			Data:          data,
			TransactionID: txID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "LoadStream", Err: err}
	}
	return out, nil
}

// LoadAllOptions configures LoadAll. Either ToTransactionID or Limit
// (or both) must be set, or LoadAll returns an *UnboundedReadError — a
// safety guard against accidental full-table scans, per spec §4.3.
type LoadAllOptions struct {
	FromTransactionID *int64 // exclusive lower bound; nil means unbounded below
	ToTransactionID    *int64 // inclusive upper bound
	Limit              int
	Reverse            bool
}

// LoadAll returns RecordedEvents globally ordered by transaction_id. It
// offers no visibility guarantee (see §4.5) and is a convenience read
// only — subscriptions must not use it.
func (s *Store) LoadAll(ctx context.Context, opts LoadAllOptions) ([]RecordedEvent, error) {
	if opts.ToTransactionID == nil && opts.Limit <= 0 {
		return nil, &UnboundedReadError{StoreError{
			Op:  "LoadAll",
			Err: fmt.Errorf("neither ToTransactionID nor Limit is set"),
		}}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultStreamLimit
	}
	order := "ASC"
	if opts.Reverse {
		order = "DESC"
	}

	var fromText, toText *string
	if opts.FromTransactionID != nil {
		v := strconv.FormatInt(*opts.FromTransactionID, 10)
		fromText = &v
	}
	if opts.ToTransactionID != nil {
		v := strconv.FormatInt(*opts.ToTransactionID, 10)
		toText = &v
	}

	query := fmt.Sprintf(`
		SELECT a.aggregate_type, e.id, e.transaction_id::text, e.aggregate_id, e.event_type, e.json_data, e.version
		FROM es_event e
		JOIN es_aggregate a ON a.id = e.aggregate_id
		WHERE ($1::text IS NULL OR e.transaction_id > $1::xid8)
		  AND ($2::text IS NULL OR e.transaction_id <= $2::xid8)
		ORDER BY e.transaction_id %s
		LIMIT $3`, order)

	rows, err := s.pool.Query(ctx, query, fromText, toText, limit)
	if err != nil {
		return nil, &StoreError{Op: "LoadAll", Err: fmt.Errorf("query all: %w", err)}
	}
	defer rows.Close()

	out, err := scanRecordedEvents(rows)
	if err != nil {
		return nil, &StoreError{Op: "LoadAll", Err: err}
	}
	return out, nil
}

// scanRecordedEvents scans rows in the (aggregate_type, id, tx_id,
// aggregate_id, event_type, json_data, version) column order shared by
// LoadAll and read_after.
func scanRecordedEvents(rows pgx.Rows) ([]RecordedEvent, error) {
	var out []RecordedEvent
	for rows.Next() {
		var aggregateType, aggregateID, eventType, txIDText string
		var id, version int64
		var data []byte
		if err := rows.Scan(&aggregateType, &id, &txIDText, &aggregateID, &eventType, &data, &version); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		txID, err := strconv.ParseInt(txIDText, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse transaction id: %w", err)
		}
		out = append(out, RecordedEvent{
			ID:            id,
			AggregateID:   aggregateID,
			AggregateType: aggregateType,
			Version:       version,
			EventType:     eventType,
			Data:          data,
			TransactionID: txID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
