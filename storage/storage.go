package storage

import (
	"context"
	"errors"
)

var (
	// ErrBackend wraps IO, permission and network failures of a backend.
	ErrBackend = errors.New("session storage backend failure")
	// ErrNotFound is returned by Read and LastModified for absent ids.
	ErrNotFound = errors.New("session not found in storage")
	// ErrCorrupt is returned when a stored blob fails integrity checks.
	ErrCorrupt = errors.New("session blob corrupt")
)

// Storage persists opaque session blobs keyed by session id.
//
// Implementations in this package are safe for concurrent use.
type Storage interface {
	// Has reports whether a blob is stored for id.
	Has(ctx context.Context, id string) (bool, error)
	// Read returns the blob for id, or ErrNotFound.
	Read(ctx context.Context, id string) ([]byte, error)
	// Write stores blob under id, replacing any previous blob.
	Write(ctx context.Context, id string, blob []byte) error
	// Delete removes the blob for id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
	// LastModified returns the unix time of the last write for id, or ErrNotFound.
	LastModified(ctx context.Context, id string) (int64, error)
	// List returns the ids of every stored blob.
	List(ctx context.Context) ([]string, error)
	// Flush removes every stored blob. When only some removals fail, the
	// returned error joins each failure.
	Flush(ctx context.Context) error
}
