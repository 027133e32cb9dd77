package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salvadanaio/internal/config"
	"salvadanaio/internal/core"
	"salvadanaio/internal/log"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	_, err = FromAppConfig(&config.Config{StorageBackend: "sheets"})
	assert.ErrorContains(t, err, "invalid backend type")

	cfg, err := FromAppConfig(&config.Config{StorageBackend: "sqlite", SQLiteDBPath: "x.db", AMQPQueue: "q"})
	require.NoError(t, err)
	assert.Equal(t, SQLiteBackend, cfg.Type)
	assert.Equal(t, "x.db", cfg.SQLiteDBPath)
	assert.Equal(t, "q", cfg.AMQPQueue)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "memory", config: Config{Type: MemoryBackend}},
		{name: "sqlite", config: Config{Type: SQLiteBackend, SQLiteDBPath: "db"}},
		{name: "sqlite without path", config: Config{Type: SQLiteBackend}, wantErr: true},
		{name: "unknown type", config: Config{Type: "redis"}, wantErr: true},
		{name: "amqp without queue", config: Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFactory_Memory(t *testing.T) {
	res, err := NewFactory(log.Discard()).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	require.NoError(t, err)
	assert.NotNil(t, res.Store)
	assert.Nil(t, res.Publisher)
	assert.NotNil(t, res.Lease)
	assert.NoError(t, res.Ready(context.Background()))
	assert.NoError(t, res.Cleanup())
}

func TestFactory_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")
	res, err := NewFactory(log.Discard()).CreateBackend(context.Background(), Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Cleanup() })

	require.NoError(t, res.Store.Put(context.Background(), "k", []byte("v")))
	got, err := res.Store.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
	assert.NoError(t, res.Ready(context.Background()))
}

func TestFactory_SQLiteLeaseIsSharedAcrossProcesses(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "budget.db")
	f := NewFactory(log.Discard())

	daemon, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = daemon.Cleanup() })
	cli, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Cleanup() })

	require.NoError(t, daemon.Lease.Acquire(ctx, "budget", "daemon", time.Minute))
	assert.ErrorIs(t, cli.Lease.Acquire(ctx, "budget", "cli", time.Minute), core.ErrLeaseHeld)
}

func TestBackendTypes(t *testing.T) {
	for _, bt := range BackendTypes {
		assert.True(t, bt.IsValid(), bt.String())
	}
	assert.False(t, BackendType("sheets").IsValid())
}
