package backend

import (
	"errors"
	"fmt"

	"salvadanaio/internal/config"
)

// FromAppConfig picks the storage and broker settings out of cfg.
func FromAppConfig(cfg *config.Config) (Config, error) {
	if cfg == nil {
		return Config{}, errors.New("backend: nil app config")
	}
	bt := BackendType(cfg.StorageBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("backend: invalid backend type %q (want one of %v)", cfg.StorageBackend, BackendTypes)
	}
	return Config{
		Type:         bt,
		SQLiteDBPath: cfg.SQLiteDBPath,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
		AMQPQueue:    cfg.AMQPQueue,
	}, nil
}

func (c Config) Validate() error {
	switch {
	case !c.Type.IsValid():
		return fmt.Errorf("backend: invalid backend type %q", c.Type)
	case c.Type == SQLiteBackend && c.SQLiteDBPath == "":
		return errors.New("backend: sqlite needs a database path")
	case c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == ""):
		return errors.New("backend: AMQP_URL needs both an exchange and a queue")
	}
	return nil
}
