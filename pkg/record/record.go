// Package record maps JSON records returned by the remote API onto typed models
package record

import (
	"errors"
	"fmt"
	"time"
)

// CreatedTimeLayout is the timestamp format the API uses for createdTime
const CreatedTimeLayout = "2006-01-02T15:04:05.000Z0700"

// createdTimeExtended accepts offsets written with a colon, e.g. +08:00
const createdTimeExtended = "2006-01-02T15:04:05.000Z07:00"

var (
	// ErrNoCreatedTime is returned when the payload carries no createdTime
	ErrNoCreatedTime = errors.New("record has no createdTime")
)

// Payload is a decoded JSON object as returned by the API
type Payload = map[string]any

// Base owns a record's payload. Every model embeds it.
type Base struct {
	json Payload
}

// base satisfies the sealed half of Model
func (b *Base) base() *Base { return b }

// ID returns the server-assigned id. It is absent until the payload has one.
func (b *Base) ID() (string, bool) {
	if b.json == nil {
		return "", false
	}
	id, ok := b.json["id"].(string)
	return id, ok
}

// Payload returns the payload this record owns
func (b *Base) Payload() Payload {
	return b.json
}

// FieldValues returns the "fields" subtree of the payload
func (b *Base) FieldValues() map[string]any {
	fields, _ := b.json["fields"].(map[string]any)
	return fields
}

// CreatedTime parses the payload's createdTime
func (b *Base) CreatedTime() (time.Time, error) {
	raw, ok := b.json["createdTime"].(string)
	if !ok {
		return time.Time{}, ErrNoCreatedTime
	}
	t, err := time.Parse(CreatedTimeLayout, raw)
	if err != nil {
		if ext, extErr := time.Parse(createdTimeExtended, raw); extErr == nil {
			return ext, nil
		}
		return time.Time{}, fmt.Errorf("invalid createdTime %q: %w", raw, err)
	}
	return t, nil
}

// Model is implemented by every typed record. The unexported method is
// satisfied by embedding Base.
type Model interface {
	// Fields returns the descriptors declared by the model, one per field
	Fields() []Descriptor

	base() *Base
}

// Entity constrains generic code to comparable model types, in practice
// pointers to structs embedding Base
type Entity interface {
	Model
	comparable
}

// Bind installs p as m's payload and attaches every declared descriptor to
// the payload's "fields" subtree. Binding again replaces all views.
func Bind(m Model, p Payload) {
	b := m.base()
	b.json = p

	fields := b.FieldValues()
	for _, d := range m.Fields() {
		if d == nil {
			continue
		}
		d.Attach(fields)
	}
}

// BaseOf returns the Base embedded in m
func BaseOf(m Model) *Base {
	return m.base()
}

// Equal reports whether a and b refer to the same server-side record. Records
// without an id are never equal, not even to themselves.
func Equal(a, b Model) bool {
	aID, aOK := a.base().ID()
	bID, bOK := b.base().ID()
	if !aOK || !bOK {
		return false
	}
	return aID == bID
}

// Clone returns a deep copy of p so the copy can be owned by another record
func Clone(p Payload) Payload {
	if p == nil {
		return nil
	}
	return cloneValue(p).(Payload)
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
