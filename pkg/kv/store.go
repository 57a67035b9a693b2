package kv

import "context"

// Store is the asynchronous key-value port all engine state goes through.
//
// Implementations must treat values as opaque bytes and must be safe for
// concurrent use. Get returns ErrKeyNotFound for absent keys; callers in
// the engine translate both absence and read failures into "empty state"
// (fail-open), so implementations should not paper over errors themselves.
type Store interface {
	// Get retrieves the value stored under key.
	// Returns ErrKeyNotFound if no value exists.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the value stored under key. Deleting an absent key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close(ctx context.Context) error
}
