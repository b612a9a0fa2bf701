package eventlog

import (
	"encoding/json"
	"fmt"
)

// Codec encodes and decodes a single event type's payload. Each domain
// event type registers its own Codec with a Registry under its
// event_type name.
type Codec interface {
	Encode(v any) (json.RawMessage, error)
	Decode(data json.RawMessage) (any, error)
}

// JSONCodec returns a Codec that marshals/unmarshals values of type T as
// JSON, generalized from mickamy-go-event-sourcing's JSONCodec[T]
// generic helper.
func JSONCodec[T any]() Codec {
	return jsonCodec[T]{}
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Encode(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("eventlog: encode: %w", err)
	}
	return data, nil
}

func (jsonCodec[T]) Decode(data json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("eventlog: decode: %w", err)
	}
	return v, nil
}
