// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package ledger stores attendance records and answers the report queries over them.
package ledger

import (
	"context"
	"fmt"

	"github.com/ManuGH/qrattend/internal/domain/attendance/model"
)

// Ledger is the append-only attendance store.
// Implementations wrap backend failures with model.ErrPersistence.
type Ledger interface {
	Append(ctx context.Context, r *model.Record) error
	ByStudent(ctx context.Context, studentID string) ([]model.StudentRecord, error)
	BySubject(ctx context.Context, subject string) ([]model.StudentRecord, error)
	TeacherDaily(ctx context.Context, teacherID string) ([]model.TeacherDay, error)
	GlobalDaily(ctx context.Context) ([]model.GlobalDay, error)

	// PutUser upserts a directory entry used to resolve student names and emails.
	PutUser(ctx context.Context, u model.User) error

	Ping(ctx context.Context) error
	Close() error
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrPersistence, op, err)
}
