// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/qrattend/internal/domain/session/model"
)

// MemoryStore is an in-process Store. It is the default for single-instance deployments.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*model.Session)}
}

func (m *MemoryStore) Insert(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.SessionID]; ok {
		return ErrDuplicate
	}
	m.sessions[s.SessionID] = s.Clone()
	return nil
}

func (m *MemoryStore) Take(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.sessions, id)
	return s, nil
}

func (m *MemoryStore) Sweep(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count := 0
	for id, s := range m.sessions {
		if s.ExpiresAt.Before(before) {
			delete(m.sessions, id)
			count++
		}
	}
	return count, nil
}

// Len returns the number of sessions currently held.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
