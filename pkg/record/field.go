package record

import (
	"context"
	"math"

	"github.com/conduit-lang/airtable/pkg/relationships"
)

// Descriptor extracts one named value from a record's "fields" subtree
type Descriptor interface {
	// Key returns the field name the descriptor is bound to
	Key() string

	// Attach points the descriptor at fields. It holds a read-only view
	// and never outlives the owning record.
	Attach(fields map[string]any)
}

// Field decodes a scalar value. Only int and string targets are supported;
// any other T always decodes to absent.
type Field[T any] struct {
	key   string
	value any
}

// NewField creates a scalar descriptor bound to key
func NewField[T any](key string) *Field[T] {
	return &Field[T]{key: key}
}

// Key returns the field name
func (f *Field[T]) Key() string { return f.key }

// Attach implements Descriptor
func (f *Field[T]) Attach(fields map[string]any) {
	f.value = fields[f.key]
}

// Get returns the decoded value and whether it was present
func (f *Field[T]) Get() (T, bool) {
	var zero T
	switch any(zero).(type) {
	case int:
		n, ok := toInt(f.value)
		if !ok {
			return zero, false
		}
		return any(n).(T), true
	case string:
		s, ok := f.value.(string)
		if !ok {
			return zero, false
		}
		return any(s).(T), true
	default:
		return zero, false
	}
}

// toInt accepts the numeric shapes encoding/json can produce
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case interface{ Int64() (int64, error) }:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// Size is a thumbnail's pixel dimensions
type Size struct {
	Width  float64
	Height float64
}

// Attachment decodes the large thumbnail of the last attachment in a field
type Attachment struct {
	key  string
	url  string
	size Size
	ok   bool
}

// NewAttachment creates an attachment descriptor bound to key
func NewAttachment(key string) *Attachment {
	return &Attachment{key: key}
}

// Key returns the field name
func (a *Attachment) Key() string { return a.key }

// Attach implements Descriptor
func (a *Attachment) Attach(fields map[string]any) {
	a.url, a.size, a.ok = "", Size{}, false

	items, _ := fields[a.key].([]any)
	if len(items) == 0 {
		return
	}
	last, _ := items[len(items)-1].(map[string]any)
	thumbnails, _ := last["thumbnails"].(map[string]any)
	large, ok := thumbnails["large"].(map[string]any)
	if !ok {
		return
	}

	width, _ := large["width"].(float64)
	height, _ := large["height"].(float64)
	a.size = Size{Width: width, Height: height}
	a.url, _ = large["url"].(string)
	a.ok = true
}

// URL returns the large thumbnail URL
func (a *Attachment) URL() (string, bool) {
	if !a.ok || a.url == "" {
		return "", false
	}
	return a.url, true
}

// ThumbnailSize returns the large thumbnail dimensions
func (a *Attachment) ThumbnailSize() (Size, bool) {
	return a.size, a.ok
}

// Relationship holds the ordered ids of linked records. Nothing is fetched
// until Resolve is called.
type Relationship[T Entity] struct {
	key string
	raw []string
}

// NewRelationship creates a relationship descriptor bound to key
func NewRelationship[T Entity](key string) *Relationship[T] {
	return &Relationship[T]{key: key}
}

// Key returns the field name
func (r *Relationship[T]) Key() string { return r.key }

// Attach implements Descriptor
func (r *Relationship[T]) Attach(fields map[string]any) {
	r.raw = nil

	items, ok := fields[r.key].([]any)
	if !ok {
		return
	}
	r.raw = make([]string, 0, len(items))
	for _, item := range items {
		if id, ok := item.(string); ok {
			r.raw = append(r.raw, id)
		}
	}
}

// IDs returns a copy of the linked ids in payload order
func (r *Relationship[T]) IDs() []string {
	if r.raw == nil {
		return nil
	}
	ids := make([]string, len(r.raw))
	copy(ids, r.raw)
	return ids
}

// Count returns the number of linked ids
func (r *Relationship[T]) Count() int {
	return len(r.raw)
}

// HasKey reports whether id is linked
func (r *Relationship[T]) HasKey(id string) bool {
	for _, v := range r.raw {
		if v == id {
			return true
		}
	}
	return false
}

// Resolve fetches every linked record concurrently and returns them in
// payload order. Any failed fetch fails the whole resolution.
func (r *Relationship[T]) Resolve(ctx context.Context, f relationships.Fetcher[T]) ([]T, error) {
	return relationships.Resolve(ctx, f, r.IDs())
}
