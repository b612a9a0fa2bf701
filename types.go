// Package eventlog implements an event-sourcing store and subscription
// engine backed by PostgreSQL. Events are grouped into per-aggregate
// streams with optimistic concurrency on append; independent, named
// subscriptions consume the global commit-ordered event log exactly
// once, with at most one active worker per subscription at a time.
package eventlog

import "encoding/json"

// NewEvent is a caller-constructed event awaiting assignment of a store
// identity. Version is the 1-based position this event will occupy in
// its aggregate's stream: the first event of a stream has Version 1,
// which corresponds to an expected version of 0 on the Append call.
type NewEvent struct {
	AggregateID string
	Version     int64
	EventType   string
	Data        json.RawMessage
}

// RecordedEvent is a NewEvent plus everything the store assigned to it.
// Callers receive RecordedEvent values as immutable snapshots; the store
// owns the underlying rows.
type RecordedEvent struct {
	ID            int64
	AggregateID   string
	AggregateType string
	Version       int64
	EventType     string
	Data          json.RawMessage
	TransactionID int64
}

// SubCheckpoint is a subscription's durable cursor into the global event
// log. The pair is lexicographically non-decreasing over the
// subscription's lifetime.
type SubCheckpoint struct {
	LastTransactionID int64
	LastEventID       int64
}

// before reports whether the checkpoint is strictly before the given
// (transactionID, eventID) pair, the ordering used by read_after.
func (c SubCheckpoint) before(transactionID, eventID int64) bool {
	if c.LastTransactionID != transactionID {
		return c.LastTransactionID < transactionID
	}
	return c.LastEventID < eventID
}
