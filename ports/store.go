package ports

import (
	"context"
	"time"
)

// QueryStatus is the state of a cached query
type QueryStatus string

const (
	QueryIdle    QueryStatus = "idle"
	QueryPending QueryStatus = "pending"
	QuerySuccess QueryStatus = "success"
	QueryError   QueryStatus = "error"
)

// QueryEntry is a cached query result
type QueryEntry struct {
	Status    QueryStatus
	Data      any
	Err       error
	Fetching  bool
	UpdatedAt time.Time
}

// QueryStore is a key-addressed cache of query results
type QueryStore interface {
	// Get returns the entry for key; ok is false when nothing is cached
	Get(key string) (entry QueryEntry, ok bool)

	// Set stores data as a successful result
	Set(key string, data any)

	// Fetch runs load and records its outcome. A failed load keeps previously cached data
	// and status and only records the error. A load that finishes after its key was
	// removed is returned to the caller but not cached.
	Fetch(ctx context.Context, key string, load func(ctx context.Context) (any, error)) (any, error)

	// Remove drops the entry for key
	Remove(key string)

	// RemovePrefix drops every entry whose key starts with prefix
	RemovePrefix(prefix string)
}

// Query keys shared by the dashboard services
const (
	KeyAuthMe          = "auth/me"
	KeyPuroAccount     = "users/puro-account"
	KeyOrdersGrouped   = "orders/grouped"
	KeyVintagePrefix   = "tokens/vintage/"
	KeyVintageRegistry = "tokens/vintage-registry"
)

// VintageKey returns the asset query key of an owner
func VintageKey(owner string) string {
	return KeyVintagePrefix + owner
}
