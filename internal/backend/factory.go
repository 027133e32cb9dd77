package backend

import (
	"context"
	"errors"
	"fmt"

	"salvadanaio/internal/amqp"
	"salvadanaio/internal/log"
	"salvadanaio/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the store for config.Type. An unreachable broker only
// disables ledger publishing.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var result *BackendResult
	var err error
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		result = f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without ledger publishing", log.FieldError, err)
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			result.Publisher = client
			storeCleanup := result.Cleanup
			result.Cleanup = func() error {
				return errors.Join(client.Close(), storeCleanup())
			}
		}
	}

	return result, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := storage.NewSQLiteStore(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}

	version, dirty, err := storage.SchemaVersion(config.SQLiteDBPath)
	if err != nil {
		store.Close()
		return nil, err
	}
	if dirty {
		store.Close()
		return nil, fmt.Errorf("sqlite schema version %d is dirty; fix the database and rerun migrations", version)
	}

	f.logger.InfoContext(ctx, "Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", version)

	return &BackendResult{
		Store:   store,
		Lease:   store,
		Ready:   store.Ping,
		Cleanup: store.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() *BackendResult {
	f.logger.Info("Initialized memory backend; the budget is lost on exit")

	store := storage.NewMemoryStore()
	return &BackendResult{
		Store:   store,
		Lease:   store,
		Ready:   func(context.Context) error { return nil },
		Cleanup: func() error { return nil },
	}
}
