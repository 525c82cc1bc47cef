// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package store holds the QR session stores backing the session registry.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ManuGH/qrattend/internal/domain/session/model"
)

var (
	// ErrNotFound is returned by Take when no entry exists for the id.
	ErrNotFound = errors.New("session store: not found")
	// ErrDuplicate is returned by Insert when the id is already present.
	ErrDuplicate = errors.New("session store: duplicate session id")
)

// Store is the owned session container used by the registry.
//
// Take must be atomic: for any id, at most one concurrent caller receives the
// entry, every other caller gets ErrNotFound.
type Store interface {
	Insert(ctx context.Context, s *model.Session) error
	Take(ctx context.Context, id string) (*model.Session, error)
	// Sweep deletes entries that expired before the given instant and returns how many were removed.
	// Stores with native expiry may return zero and rely on the backend.
	Sweep(ctx context.Context, before time.Time) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// entryTTL is how long a remote store keeps an entry: the session lifetime plus
// the retention window during which a late redemption still reports expiry.
func entryTTL(s *model.Session, retention time.Duration) time.Duration {
	ttl := s.ExpiresAt.Sub(s.CreatedAt) + retention
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
