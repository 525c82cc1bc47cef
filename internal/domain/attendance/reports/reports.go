// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package reports answers the attendance queries and enforces who may read which summary.
package reports

import (
	"context"

	"github.com/ManuGH/qrattend/internal/auth"
	"github.com/ManuGH/qrattend/internal/domain/attendance/ledger"
	"github.com/ManuGH/qrattend/internal/domain/attendance/model"
)

// Service is a thin authorization layer over a Ledger.
type Service struct {
	ledger ledger.Ledger
}

func New(l ledger.Ledger) *Service {
	return &Service{ledger: l}
}

// ByStudent lists every record for studentID in insertion order.
// Any authenticated caller may read it.
func (s *Service) ByStudent(ctx context.Context, studentID string) ([]model.StudentRecord, error) {
	return s.ledger.ByStudent(ctx, studentID)
}

// BySubject lists every record for subject in insertion order.
func (s *Service) BySubject(ctx context.Context, subject string) ([]model.StudentRecord, error) {
	return s.ledger.BySubject(ctx, subject)
}

// TeacherDailySummary counts teacherID's records per subject and day.
// Only the teacher themself may read it.
func (s *Service) TeacherDailySummary(ctx context.Context, caller *auth.Principal, teacherID string) ([]model.TeacherDay, error) {
	if caller == nil || caller.ID != teacherID {
		return nil, model.ErrForbidden
	}
	return s.ledger.TeacherDaily(ctx, teacherID)
}

// GlobalDailySummary counts all records per subject, teacher and day. Admin only.
func (s *Service) GlobalDailySummary(ctx context.Context, caller *auth.Principal) ([]model.GlobalDay, error) {
	if !caller.IsAdmin() {
		return nil, model.ErrForbidden
	}
	return s.ledger.GlobalDaily(ctx)
}
