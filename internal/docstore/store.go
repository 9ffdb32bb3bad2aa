// Package docstore persists serialized documents in a key-value backend.
// It is the persistence collaborator of the mapper: it stores and loads
// whole documents by model and identifier and offers no querying.
package docstore

import (
	"context"
	"errors"
	"time"
)

// Store defines the interface for all document backends
type Store interface {
	// Get retrieves a payload from the store
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a payload
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a payload from the store
	Delete(ctx context.Context, key string) error

	// Clear removes all payloads under the store prefix
	Clear(ctx context.Context) error

	// Exists checks if a key exists in the store
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases the backend's resources
	Close() error
}

// Config holds common configuration for store backends
type Config struct {
	// TTL expires stored payloads; zero keeps them forever
	TTL time.Duration
	// Prefix is prepended to all keys
	Prefix string
}

// DefaultConfig returns a default store configuration
func DefaultConfig() Config {
	return Config{
		Prefix: "docmap:",
	}
}

// NotFoundError is returned when a key is not present in the store
type NotFoundError struct {
	Key string
}

func (e NotFoundError) Error() string {
	return "document not found: " + e.Key
}

// IsNotFound checks if an error is a missing-key error
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}
