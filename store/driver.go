package store

import "context"

// Driver is the key-value storage backend for cross-invocation state.
// Values are small strings; each typed shape is serialized by Store.
type Driver interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set writes the value for key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	Close() error
}
