// Package storage persists the budget as a single serialized snapshot
// under one key of a key/value store.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore is a key/value store of opaque snapshots.
type SnapshotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}
