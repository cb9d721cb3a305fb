package kv

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// Options selects and configures a substrate backend.
type Options struct {
	Backend string

	// Path is the SQLite file or Badger directory.
	Path string

	// RedisURL and RedisPrefix configure the redis backend.
	RedisURL    string
	RedisPrefix string

	// Passphrase enables value encryption when non-empty.
	Passphrase string
}

// Open creates the Store described by opts.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		store Store
		err   error
	)

	switch opts.Backend {
	case BackendMemory, "":
		store = NewMemoryStore()
	case BackendSQLite:
		store, err = OpenSQLite(DefaultSQLiteConfig(opts.Path))
	case BackendBadger:
		store, err = OpenBadger(opts.Path)
	case BackendRedis:
		store, err = OpenRedis(ctx, opts.RedisURL, opts.RedisPrefix, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("storage opened", "backend", opts.Backend, "path", opts.Path, "encrypted", opts.Passphrase != "")

	if opts.Passphrase == "" {
		return store, nil
	}

	encrypted, err := NewEncryptedStore(ctx, store, DefaultEncryptionConfig(opts.Passphrase))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return encrypted, nil
}
