package eventlog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBatchRejectsEmpty(t *testing.T) {
	err := validateBatch(nil, 0)
	assert.True(t, IsInvalidBatchError(err))
}

func TestValidateBatchRejectsNonContiguous(t *testing.T) {
	events := []NewEvent{
		{Version: 1, EventType: "CatCreated", Data: json.RawMessage(`{}`)},
		{Version: 3, EventType: "CatUpdated", Data: json.RawMessage(`{}`)},
	}
	err := validateBatch(events, 0)
	assert.True(t, IsInvalidBatchError(err))
}

func TestValidateBatchRejectsWrongStart(t *testing.T) {
	events := []NewEvent{
		{Version: 5, EventType: "CatUpdated", Data: json.RawMessage(`{}`)},
	}
	err := validateBatch(events, 0)
	assert.True(t, IsInvalidBatchError(err))
}

func TestValidateBatchAcceptsContiguousFromExpected(t *testing.T) {
	events := []NewEvent{
		{Version: 6, EventType: "CatUpdated", Data: json.RawMessage(`{}`)},
		{Version: 7, EventType: "CatUpdated", Data: json.RawMessage(`{}`)},
	}
	assert.NoError(t, validateBatch(events, 5))
}
