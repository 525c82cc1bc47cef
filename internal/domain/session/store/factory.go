// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// Options selects and configures a session store backend.
type Options struct {
	Backend    string
	Retention  time.Duration
	Redis      RedisConfig
	BadgerPath string
}

// Open creates a Store based on the backend configuration.
func Open(opts Options, logger zerolog.Logger) (Store, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendMemory
	}

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return NewRedisStore(opts.Redis, opts.Retention, logger)
	case BackendBadger:
		return OpenBadgerStore(opts.BadgerPath, opts.Retention, logger)
	default:
		return nil, fmt.Errorf("unknown session store backend: %s", backend)
	}
}
