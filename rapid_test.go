package eventlog

import (
	"encoding/json"
	"testing"

	"pgregory.net/rapid"
)

// TestRapidContiguousBatchAlwaysValidates checks invariant 1 from the
// testable properties (stream contiguity): any batch whose versions run
// expectedVersion+1, expectedVersion+2, ... with no gap always passes
// validateBatch, regardless of length or starting point.
func TestRapidContiguousBatchAlwaysValidates(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		expectedVersion := rapid.Int64Range(0, 1_000_000).Draw(rt, "expectedVersion")
		n := rapid.IntRange(1, 20).Draw(rt, "batchSize")

		events := make([]NewEvent, n)
		for i := 0; i < n; i++ {
			events[i] = NewEvent{
				Version:   expectedVersion + int64(i) + 1,
				EventType: "Probe",
				Data:      json.RawMessage(`{}`),
			}
		}

		if err := validateBatch(events, expectedVersion); err != nil {
			rt.Fatalf("contiguous batch rejected: %v", err)
		}
	})
}

// TestRapidGapInBatchAlwaysRejected checks the converse: introducing a
// single gap anywhere in an otherwise-contiguous batch always fails
// validateBatch with an InvalidBatchError.
func TestRapidGapInBatchAlwaysRejected(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		expectedVersion := rapid.Int64Range(0, 1000).Draw(rt, "expectedVersion")
		n := rapid.IntRange(2, 20).Draw(rt, "batchSize")
		gapAt := rapid.IntRange(0, n-1).Draw(rt, "gapAt")

		events := make([]NewEvent, n)
		version := expectedVersion + 1
		for i := 0; i < n; i++ {
			if i == gapAt {
				version++ // skip one version, breaking contiguity
			}
			events[i] = NewEvent{Version: version, EventType: "Probe", Data: json.RawMessage(`{}`)}
			version++
		}

		err := validateBatch(events, expectedVersion)
		if !IsInvalidBatchError(err) {
			rt.Fatalf("expected InvalidBatchError for gapped batch, got %v", err)
		}
	})
}

// TestRapidCheckpointBeforeMatchesLexicographicOrder checks invariant 3
// (checkpoint monotonicity): SubCheckpoint.before must agree with plain
// lexicographic comparison of (transaction_id, event_id) pairs for any
// inputs, positive or not.
func TestRapidCheckpointBeforeMatchesLexicographicOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cpTx := rapid.Int64().Draw(rt, "cpTx")
		cpEvent := rapid.Int64().Draw(rt, "cpEvent")
		candTx := rapid.Int64().Draw(rt, "candTx")
		candEvent := rapid.Int64().Draw(rt, "candEvent")

		cp := SubCheckpoint{LastTransactionID: cpTx, LastEventID: cpEvent}
		got := cp.before(candTx, candEvent)

		want := cpTx < candTx || (cpTx == candTx && cpEvent < candEvent)
		if got != want {
			rt.Fatalf("before(%d,%d) on checkpoint (%d,%d) = %v, want %v", candTx, candEvent, cpTx, cpEvent, got, want)
		}
	})
}
