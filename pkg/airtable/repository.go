package airtable

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/conduit-lang/airtable/pkg/record"
	"github.com/conduit-lang/airtable/pkg/relationships"
	"github.com/conduit-lang/airtable/pkg/transport"
)

// recordsKey is the list response field holding the records
const recordsKey = "records"

// ListOptions narrows a List call. Zero values are not sent.
type ListOptions struct {
	View   string
	Limit  int
	Offset string
}

func (o ListOptions) params() map[string]any {
	params := map[string]any{}
	if o.View != "" {
		params["view"] = o.View
	}
	if o.Limit > 0 {
		params["limit"] = o.Limit
	}
	if o.Offset != "" {
		params["offset"] = o.Offset
	}
	return params
}

// Repository exposes the table operations for one model type
type Repository[T record.Entity] struct {
	client *Client
	typ    record.Type[T]
	sfg    singleflight.Group
	logger *zap.Logger
}

// For binds typ to client
func For[T record.Entity](client *Client, typ record.Type[T]) *Repository[T] {
	return &Repository[T]{
		client: client,
		typ:    typ,
		logger: client.logger.With(zap.String("table", typ.Table)),
	}
}

// Type returns the model metadata
func (r *Repository[T]) Type() record.Type[T] {
	return r.typ
}

// ListRequest describes a List call without executing it
func (r *Repository[T]) ListRequest(opts ListOptions) transport.Request {
	return transport.Get(r.typ.Table, opts.params())
}

// GetRequest describes a Get call without executing it
func (r *Repository[T]) GetRequest(id string) transport.Request {
	return transport.Get(r.recordPath(id), nil)
}

// CreateRequest describes a Create call without executing it
func (r *Repository[T]) CreateRequest(fields map[string]any) transport.Request {
	return transport.Post(r.typ.Table, map[string]any{"fields": fields})
}

// UpdateRequest describes an Update call without executing it
func (r *Repository[T]) UpdateRequest(id string, fields map[string]any) transport.Request {
	return transport.Put(r.recordPath(id), map[string]any{"fields": fields})
}

// DeleteRequest describes a Delete call without executing it
func (r *Repository[T]) DeleteRequest(id string) transport.Request {
	return transport.Delete(r.recordPath(id), nil)
}

func (r *Repository[T]) recordPath(id string) string {
	return fmt.Sprintf("%s/%s", r.typ.Table, id)
}

// List returns the table's records in response order. A cached, non-empty
// list index is served entirely from the cache.
func (r *Repository[T]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	if r.typ.Cached() {
		if members, ok := r.client.cache.LoadIndex(ctx, r.typ.ListKey(), r.typ.ExpireAfter); ok {
			out := make([]T, 0, len(members))
			for _, m := range members {
				if m.Payload == nil {
					// SaveIDs only writes an index whose members are all cached
					// and never newer than them.
					panic(fmt.Sprintf("airtable: list index %q names uncached record %q", r.typ.ListKey(), m.ID))
				}
				out = append(out, r.typ.Decode(m.Payload))
			}
			r.logger.Debug("list served from cache", zap.Int("count", len(out)))
			return out, nil
		}
	}

	payload, err := r.client.transport.Do(ctx, r.ListRequest(opts))
	if err != nil {
		return []T{}, err
	}

	items, _ := payload[recordsKey].([]any)
	out := make([]T, 0, len(items))
	ids := make([]string, 0, len(items))
	complete := true
	for _, item := range items {
		p, ok := item.(map[string]any)
		if !ok {
			continue
		}
		m := r.fromNetwork(ctx, p)
		out = append(out, m)
		if id, ok := record.BaseOf(m).ID(); ok {
			ids = append(ids, id)
		} else {
			complete = false
		}
	}

	if r.typ.Cached() && complete {
		r.client.cache.SaveIDs(ctx, r.typ.ListKey(), ids)
	}
	return out, nil
}

// Get returns the record with id, from the cache when a fresh entry exists.
// Concurrent Gets for one id share a single request. A response that is
// not a JSON object yields the zero model and no error.
func (r *Repository[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T

	if r.typ.Cached() {
		if payload, ok := r.client.cache.Load(ctx, id, r.typ.ExpireAfter); ok {
			r.logger.Debug("record served from cache", zap.String("id", id))
			return r.typ.Decode(payload), nil
		}
	}

	v, err, shared := r.sfg.Do(id, func() (interface{}, error) {
		payload, err := r.client.transport.Do(ctx, r.GetRequest(id))
		if err != nil || payload == nil {
			return nil, err
		}
		r.save(ctx, payload)
		return payload, nil
	})
	if err != nil {
		return zero, err
	}
	payload, _ := v.(record.Payload)
	if payload == nil {
		return zero, nil
	}
	if shared {
		payload = record.Clone(payload)
	}
	return r.typ.Decode(payload), nil
}

// Create posts a new record. The result is not cached.
func (r *Repository[T]) Create(ctx context.Context, fields map[string]any) (T, error) {
	var zero T

	payload, err := r.client.transport.Do(ctx, r.CreateRequest(fields))
	if err != nil || payload == nil {
		return zero, err
	}
	return r.typ.Decode(payload), nil
}

// Update replaces the fields of record id. The response is a fresh copy of
// the record and is cached like a Get response.
func (r *Repository[T]) Update(ctx context.Context, id string, fields map[string]any) (T, error) {
	var zero T

	payload, err := r.client.transport.Do(ctx, r.UpdateRequest(id, fields))
	if err != nil || payload == nil {
		return zero, err
	}
	return r.fromNetwork(ctx, payload), nil
}

// Delete removes record id and returns the API's acknowledgement. Cached
// copies are left to expire.
func (r *Repository[T]) Delete(ctx context.Context, id string) (record.Payload, error) {
	return r.client.transport.Do(ctx, r.DeleteRequest(id))
}

// fromNetwork builds a model from a freshly fetched payload, caching the
// payload before binding
func (r *Repository[T]) fromNetwork(ctx context.Context, p record.Payload) T {
	r.save(ctx, p)
	return r.typ.Decode(p)
}

func (r *Repository[T]) save(ctx context.Context, p record.Payload) {
	if !r.typ.Cached() {
		return
	}
	r.client.cache.SaveRecord(ctx, payloadRecord(p))
}

// payloadRecord exposes a bare payload to the cache
type payloadRecord record.Payload

func (p payloadRecord) ID() (string, bool) {
	id, ok := p["id"].(string)
	return id, ok
}

func (p payloadRecord) Payload() map[string]any {
	return p
}

// ListAsync runs List in the background and delivers the result on the
// client's queue
func (r *Repository[T]) ListAsync(ctx context.Context, opts ListOptions, done func([]T, error)) {
	go func() {
		out, err := r.List(ctx, opts)
		r.client.queue.Submit(func() { done(out, err) })
	}()
}

// GetAsync runs Get in the background and delivers the result on the
// client's queue
func (r *Repository[T]) GetAsync(ctx context.Context, id string, done func(T, error)) {
	go func() {
		m, err := r.Get(ctx, id)
		r.client.queue.Submit(func() { done(m, err) })
	}()
}

// CreateAsync runs Create in the background and delivers the result on the
// client's queue
func (r *Repository[T]) CreateAsync(ctx context.Context, fields map[string]any, done func(T, error)) {
	go func() {
		m, err := r.Create(ctx, fields)
		r.client.queue.Submit(func() { done(m, err) })
	}()
}

// UpdateAsync runs Update in the background and delivers the result on the
// client's queue
func (r *Repository[T]) UpdateAsync(ctx context.Context, id string, fields map[string]any, done func(T, error)) {
	go func() {
		m, err := r.Update(ctx, id, fields)
		r.client.queue.Submit(func() { done(m, err) })
	}()
}

// DeleteAsync runs Delete in the background and delivers the result on the
// client's queue
func (r *Repository[T]) DeleteAsync(ctx context.Context, id string, done func(record.Payload, error)) {
	go func() {
		p, err := r.Delete(ctx, id)
		r.client.queue.Submit(func() { done(p, err) })
	}()
}

// ResolveAsync fetches every record rel links to and delivers them, in
// link order, on the client's queue. Any failed fetch fails the whole
// resolution with an empty result.
func (r *Repository[T]) ResolveAsync(ctx context.Context, rel *record.Relationship[T], done func([]T, error)) {
	relationships.ResolveAsync[T](ctx, r, rel.IDs(), r.client.queue, done)
}
