// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ledger

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendSqlite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Options selects and configures a ledger backend.
type Options struct {
	Backend       string
	SqlitePath    string
	PostgresDSN   string
	MongoURI      string
	MongoDatabase string
}

// Open creates a Ledger based on the backend configuration.
func Open(ctx context.Context, opts Options) (Ledger, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendMemory
	}

	switch backend {
	case BackendMemory:
		return NewMemoryLedger(), nil
	case BackendSqlite:
		if opts.SqlitePath == "" {
			return nil, fmt.Errorf("sqlite ledger requires a path")
		}
		return NewSqliteLedger(opts.SqlitePath)
	case BackendPostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres ledger requires a dsn")
		}
		return NewPostgresLedger(ctx, opts.PostgresDSN)
	case BackendMongo:
		if opts.MongoURI == "" {
			return nil, fmt.Errorf("mongo ledger requires a uri")
		}
		db := opts.MongoDatabase
		if db == "" {
			db = "qrattend"
		}
		return NewMongoLedger(ctx, opts.MongoURI, db)
	default:
		return nil, fmt.Errorf("unknown attendance ledger backend: %s", backend)
	}
}
