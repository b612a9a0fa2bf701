package eventlog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoreError(t *testing.T) {
	tests := []struct {
		name     string
		err      StoreError
		expected string
	}{
		{
			name:     "with underlying error",
			err:      StoreError{Op: "Append", Err: errors.New("connection failed")},
			expected: "eventlog: Append: connection failed",
		},
		{
			name:     "without underlying error",
			err:      StoreError{Op: "Append"},
			expected: "eventlog: Append",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			if tt.err.Err != nil {
				assert.Equal(t, tt.err.Err, tt.err.Unwrap())
			}
		})
	}
}

func TestExpectedVersionErrorMatches(t *testing.T) {
	var err error = &ExpectedVersionError{
		StoreError:      StoreError{Op: "Append", Err: errors.New("version mismatch")},
		AggregateID:     "kitty-1",
		ExpectedVersion: 1,
	}

	assert.True(t, IsExpectedVersionError(err))
	assert.False(t, IsInvalidBatchError(err))
	assert.False(t, IsUnboundedReadError(err))
	assert.False(t, IsHandlerError(err))

	var target *ExpectedVersionError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "kitty-1", target.AggregateID)
	assert.Equal(t, int64(1), target.ExpectedVersion)
}

func TestHandlerErrorWrapsOriginal(t *testing.T) {
	original := errors.New("boom")
	err := &HandlerError{StoreError: StoreError{Op: "HandleBatch", Err: original}, EventID: 42}

	assert.True(t, IsHandlerError(err))
	assert.ErrorIs(t, err, original)
}

func TestInvalidBatchAndUnboundedReadDoNotCrossMatch(t *testing.T) {
	var invalid error = &InvalidBatchError{StoreError{Op: "Append", Err: errors.New("empty batch")}}
	var unbounded error = &UnboundedReadError{StoreError{Op: "LoadAll", Err: errors.New("no bound")}}

	assert.True(t, IsInvalidBatchError(invalid))
	assert.False(t, IsUnboundedReadError(invalid))

	assert.True(t, IsUnboundedReadError(unbounded))
	assert.False(t, IsInvalidBatchError(unbounded))
}
