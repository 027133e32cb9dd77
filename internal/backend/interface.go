// Package backend opens the snapshot store chosen by STORAGE_BACKEND and,
// when a broker is configured, the ledger publisher next to it.
package backend

import (
	"context"

	"salvadanaio/internal/services"
	"salvadanaio/internal/storage"
)

type (
	CleanupFunc func() error
	ReadyFunc   func(ctx context.Context) error
)

// BackendResult is what a Factory hands to the budget service.
type BackendResult struct {
	Store     storage.SnapshotStore
	Publisher services.LedgerPublisher // nil unless AMQPURL is set
	Lease     services.Leaser          // guards the store against a second writer
	Ready     ReadyFunc
	Cleanup   CleanupFunc
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type         BackendType
	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// BackendTypes lists the accepted STORAGE_BACKEND values.
var BackendTypes = []BackendType{SQLiteBackend, MemoryBackend}

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool {
	return bt == SQLiteBackend || bt == MemoryBackend
}
