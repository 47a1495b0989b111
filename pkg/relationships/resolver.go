// Package relationships resolves linked record ids into records with a
// concurrent fan-out and an ordered join
package relationships

import (
	"context"
	"fmt"
	"sync"

	"github.com/conduit-lang/airtable/internal/metrics"
)

// Fetcher loads a single record by id
type Fetcher[T any] interface {
	Get(ctx context.Context, id string) (T, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc[T any] func(ctx context.Context, id string) (T, error)

// Get calls f
func (f FetcherFunc[T]) Get(ctx context.Context, id string) (T, error) {
	return f(ctx, id)
}

// Executor runs completion callbacks
type Executor interface {
	Submit(fn func())
}

// join collects the outcome of one resolution
type join[T comparable] struct {
	mu      sync.Mutex
	wg      sync.WaitGroup
	results map[string]T
	lastErr error
}

func (j *join[T]) record(id string, value T, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	var zero T
	if err != nil {
		j.lastErr = err
	}
	if value != zero {
		j.results[id] = value
	}
}

// Resolve fetches every id concurrently and returns the records in the order
// of ids. If any fetch fails, every fetched record is discarded and the last
// error observed is returned.
func Resolve[T comparable](ctx context.Context, f Fetcher[T], ids []string) ([]T, error) {
	if len(ids) == 0 {
		return []T{}, nil
	}

	metrics.ResolveFanout.Observe(float64(len(ids)))

	j := &join[T]{
		results: make(map[string]T, len(ids)),
	}
	for _, id := range ids {
		j.wg.Add(1)
		go func(id string) {
			defer j.wg.Done()
			value, err := f.Get(ctx, id)
			j.record(id, value, err)
		}(id)
	}
	j.wg.Wait()

	if j.lastErr != nil {
		return []T{}, j.lastErr
	}

	// Completion order is arbitrary; the order of ids is authoritative.
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		value, ok := j.results[id]
		if !ok {
			panic(fmt.Errorf("%w: id %q", ErrContractViolation, id))
		}
		out = append(out, value)
	}
	return out, nil
}

// ResolveAsync runs Resolve in the background and delivers the outcome to
// done exactly once on exec
func ResolveAsync[T comparable](ctx context.Context, f Fetcher[T], ids []string, exec Executor, done func([]T, error)) {
	go func() {
		records, err := Resolve(ctx, f, ids)
		exec.Submit(func() { done(records, err) })
	}()
}
