// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ledger

import (
	"context"
	"sync"

	"github.com/ManuGH/qrattend/internal/domain/attendance/model"
)

// MemoryLedger keeps records in process memory. Used for tests and demos.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []model.Record
	users   map[string]model.User
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{users: make(map[string]model.User)}
}

func (m *MemoryLedger) Append(_ context.Context, r *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *r)
	return nil
}

func (m *MemoryLedger) ByStudent(_ context.Context, studentID string) ([]model.StudentRecord, error) {
	return m.filter(func(r model.Record) bool { return r.StudentID == studentID }), nil
}

func (m *MemoryLedger) BySubject(_ context.Context, subject string) ([]model.StudentRecord, error) {
	return m.filter(func(r model.Record) bool { return r.Subject == subject }), nil
}

func (m *MemoryLedger) filter(keep func(model.Record) bool) []model.StudentRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []model.StudentRecord{}
	for _, r := range m.records {
		if keep(r) {
			out = append(out, r.WithStudent(m.users[r.StudentID]))
		}
	}
	return out
}

func (m *MemoryLedger) TeacherDaily(_ context.Context, teacherID string) ([]model.TeacherDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var mine []model.Record
	for _, r := range m.records {
		if r.TeacherID == teacherID {
			mine = append(mine, r)
		}
	}
	return model.GroupTeacherDays(mine), nil
}

func (m *MemoryLedger) GlobalDaily(context.Context) ([]model.GlobalDay, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.GroupGlobalDays(m.records), nil
}

func (m *MemoryLedger) PutUser(_ context.Context, u model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

// Len returns the number of stored records.
func (m *MemoryLedger) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

func (m *MemoryLedger) Ping(context.Context) error { return nil }

func (m *MemoryLedger) Close() error { return nil }
