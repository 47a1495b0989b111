package record

import "time"

// Type describes how a model maps onto a remote table
type Type[T Entity] struct {
	// Name identifies the model in cache keys; defaults to Table
	Name string
	// Table is the remote path segment for the table
	Table string
	// New returns an empty model with its descriptors constructed
	New func() T
	// ExpireAfter is the cache TTL; zero opts the type out of caching
	ExpireAfter time.Duration
}

// Cached reports whether records of this type are cached
func (t Type[T]) Cached() bool {
	return t.ExpireAfter > 0
}

// TypeName returns the name used in cache keys
func (t Type[T]) TypeName() string {
	if t.Name != "" {
		return t.Name
	}
	return t.Table
}

// ListKey returns the cache key for the type's list index
func (t Type[T]) ListKey() string {
	return t.TypeName() + ".list"
}

// Decode builds a model from p and binds its descriptors
func (t Type[T]) Decode(p Payload) T {
	m := t.New()
	Bind(m, p)
	return m
}
