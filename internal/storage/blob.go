// Package storage provides the synchronous key-value primitive the ledger is
// persisted through: one fixed key holding one JSON document.
package storage

import (
	"context" // Context for backend calls
	"errors"  // Error construction
	"sync"    // Value locking
)

// ErrBlobMissing is returned by Get when the key has never been written.
var ErrBlobMissing = errors.New("storage: blob not found")

// Blob is a single persisted byte value.
type Blob interface {
	Get(ctx context.Context) ([]byte, error)
	Set(ctx context.Context, value []byte) error
}

// MemoryBlob keeps the value in process memory.
type MemoryBlob struct {
	mu    sync.RWMutex // Guards value
	value []byte       // Stored document, nil when unset
}

// NewMemoryBlob returns an empty in-memory blob.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{}
}

func (b *MemoryBlob) Get(_ context.Context) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.value == nil {
		return nil, ErrBlobMissing // Never written
	}
	return append([]byte(nil), b.value...), nil // Copy out
}

func (b *MemoryBlob) Set(_ context.Context, value []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.value = append([]byte(nil), value...) // Copy in
	return nil
}
