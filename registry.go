package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownEventType is returned by Registry.Decode when no Codec has
// been registered under the given event_type name.
var ErrUnknownEventType = errors.New("eventlog: unknown event type")

// Registry resolves an event_type string to the Codec that knows how to
// decode its payload. It is an explicit value constructed at startup and
// threaded into a Client, per the "global mutable event-type registry"
// re-architecture: no process-wide mutable map backs it.
type Registry struct {
	mu     sync.RWMutex
	codecs map[string]Codec
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[string]Codec)}
}

// Register associates eventType with codec. A later call for the same
// eventType overwrites the earlier one.
func (r *Registry) Register(eventType string, codec Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codecs[eventType] = codec
}

// Encode looks up eventType's codec and encodes v with it.
func (r *Registry) Encode(eventType string, v any) (json.RawMessage, error) {
	r.mu.RLock()
	codec, ok := r.codecs[eventType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	return codec.Encode(v)
}

// Decode looks up eventType's codec and decodes data with it, returning
// ErrUnknownEventType if eventType was never registered.
func (r *Registry) Decode(eventType string, data json.RawMessage) (any, error) {
	r.mu.RLock()
	codec, ok := r.codecs[eventType]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, eventType)
	}
	return codec.Decode(data)
}

// Unknown is the open-schema value a LenientRegistry returns in place of
// failing to decode an unregistered event type. Consumers that only
// want raw bytes (e.g. a generic log-tailer) can still iterate.
type Unknown struct {
	EventType string
	Raw       json.RawMessage
}

// LenientRegistry wraps a Registry and swallows ErrUnknownEventType,
// returning an Unknown value instead. It is a decorator, not a
// replacement, mirroring meowmx's LenientEventRegistry.
type LenientRegistry struct {
	inner *Registry
}

// NewLenientRegistry wraps inner.
func NewLenientRegistry(inner *Registry) *LenientRegistry {
	return &LenientRegistry{inner: inner}
}

// Decode behaves like Registry.Decode, except an unregistered eventType
// yields an Unknown value and a nil error.
func (l *LenientRegistry) Decode(eventType string, data json.RawMessage) (any, error) {
	v, err := l.inner.Decode(eventType, data)
	if errors.Is(err, ErrUnknownEventType) {
		return Unknown{EventType: eventType, Raw: data}, nil
	}
	return v, err
}
