package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key has no stored value.
	ErrNotFound = errors.New("no value stored for key")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown history backend")
)

// KV is the durable key-value storage underneath the history store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a KV backend.
type Config struct {
	Backend    string
	SQLitePath string
	Redis      RedisConfig
}

// Open creates the configured backend.
func Open(cfg Config) (KV, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendSQLite, "":
		kv, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return kv, nil
	case BackendRedis:
		return NewRedisKV(cfg.Redis), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
