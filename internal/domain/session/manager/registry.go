// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package manager owns the QR session lifecycle: generate, redeem once, expire.
package manager

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/qrattend/internal/domain/attendance/ledger"
	attmodel "github.com/ManuGH/qrattend/internal/domain/attendance/model"
	"github.com/ManuGH/qrattend/internal/domain/session/model"
	"github.com/ManuGH/qrattend/internal/domain/session/store"
	"github.com/ManuGH/qrattend/internal/events"
	xlog "github.com/ManuGH/qrattend/internal/log"
	"github.com/ManuGH/qrattend/internal/metrics"
	"github.com/ManuGH/qrattend/internal/qr"
	"github.com/ManuGH/qrattend/internal/telemetry"
)

const maxGenerateAttempts = 3

// Generated is the result of a successful Generate.
type Generated struct {
	SessionID string
	QR        string
	ExpiresAt time.Time
}

// Registry issues single-use QR sessions and turns redemptions into ledger records.
type Registry struct {
	store     store.Store
	ledger    ledger.Ledger
	encoder   *qr.Encoder
	publisher events.Publisher

	ttl    time.Duration
	now    func() time.Time
	newID  func() string
	logger zerolog.Logger
	tracer trace.Tracer
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithTTL overrides model.DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

func WithPublisher(p events.Publisher) Option {
	return func(r *Registry) {
		if p != nil {
			r.publisher = p
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithIDGenerator overrides the session and record id source.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// NewRegistry wires a registry over the given store, ledger and QR encoder.
func NewRegistry(st store.Store, l ledger.Ledger, enc *qr.Encoder, opts ...Option) *Registry {
	r := &Registry{
		store:     st,
		ledger:    l,
		encoder:   enc,
		publisher: events.Noop{},
		ttl:       model.DefaultTTL,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    xlog.WithComponent("registry"),
		tracer:    telemetry.Tracer("qrattend/registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TTL returns the session lifetime.
func (r *Registry) TTL() time.Duration { return r.ttl }

// Generate creates a session for subject and teacherID and renders its QR code.
func (r *Registry) Generate(ctx context.Context, subject, teacherID string) (*Generated, error) {
	ctx, span := r.tracer.Start(ctx, "session.generate",
		trace.WithAttributes(telemetry.SessionAttributes("", subject, teacherID)...))
	defer span.End()

	for attempt := 1; attempt <= maxGenerateAttempts; attempt++ {
		now := r.now()
		s := &model.Session{
			SessionID: r.newID(),
			Subject:   subject,
			TeacherID: teacherID,
			CreatedAt: now,
			ExpiresAt: now.Add(r.ttl),
		}

		png, err := r.encoder.DataURL(s.SessionID)
		if err != nil {
			span.SetStatus(codes.Error, "qr render failed")
			return nil, fmt.Errorf("generate session: %w", err)
		}

		err = r.store.Insert(ctx, s)
		if errors.Is(err, store.ErrDuplicate) {
			r.logger.Warn().Str(xlog.FieldSessionID, s.SessionID).Int("attempt", attempt).Msg("session id collision")
			continue
		}
		if err != nil {
			span.SetStatus(codes.Error, "store insert failed")
			return nil, fmt.Errorf("generate session: %w", err)
		}

		metrics.RecordSessionGenerated()
		span.SetAttributes(attribute.String(telemetry.SessionIDKey, s.SessionID))
		logger := xlog.WithContext(ctx, r.logger)
		logger.Info().
			Str(xlog.FieldEvent, "session.generated").
			Str(xlog.FieldSessionID, s.SessionID).
			Str(xlog.FieldSubject, subject).
			Str(xlog.FieldTeacherID, teacherID).
			Time(xlog.FieldExpiresAt, s.ExpiresAt).
			Msg("session generated")
		return &Generated{SessionID: s.SessionID, QR: png, ExpiresAt: s.ExpiresAt}, nil
	}

	span.SetStatus(codes.Error, "id collisions")
	return nil, fmt.Errorf("generate session: %w after %d attempts", store.ErrDuplicate, maxGenerateAttempts)
}

// Redeem consumes sessionID for studentID and appends the resulting record.
//
// The session is removed before any ledger write, so a ledger failure leaves it
// consumed and the caller must generate a new one.
func (r *Registry) Redeem(ctx context.Context, sessionID, studentID string) (*attmodel.Record, error) {
	ctx, span := r.tracer.Start(ctx, "session.redeem",
		trace.WithAttributes(
			attribute.String(telemetry.SessionIDKey, sessionID),
			attribute.String(telemetry.AttendanceStudentKey, studentID),
		))
	defer span.End()

	logger := xlog.WithContext(ctx, r.logger).With().
		Str(xlog.FieldSessionID, sessionID).
		Str(xlog.FieldStudentID, studentID).
		Logger()

	outcome := func(o string) {
		metrics.RecordRedemption(o)
		span.SetAttributes(attribute.String(telemetry.SessionOutcomeKey, o))
	}

	if !model.IsSafeSessionID(sessionID) {
		outcome(metrics.OutcomeInvalid)
		return nil, model.ErrInvalidSession
	}

	s, err := r.store.Take(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		outcome(metrics.OutcomeInvalid)
		logger.Debug().Str(xlog.FieldEvent, "session.invalid").Msg("unknown session")
		return nil, model.ErrInvalidSession
	}
	if err != nil {
		outcome(metrics.OutcomeFailed)
		span.SetStatus(codes.Error, "store take failed")
		return nil, fmt.Errorf("redeem session: %w", err)
	}

	now := r.now()
	if s.Expired(now) {
		outcome(metrics.OutcomeExpired)
		logger.Info().
			Str(xlog.FieldEvent, "session.expired").
			Time(xlog.FieldExpiresAt, s.ExpiresAt).
			Msg("expired session redeemed")
		return nil, model.ErrExpiredSession
	}

	rec := attmodel.NewRecord(r.newID(), s.TeacherID, studentID, s.Subject, now)
	if err := r.ledger.Append(ctx, rec); err != nil {
		outcome(metrics.OutcomeFailed)
		span.SetStatus(codes.Error, "ledger append failed")
		logger.Error().Err(err).Str(xlog.FieldEvent, "attendance.append_failed").Msg("attendance not recorded")
		return nil, err
	}
	metrics.RecordRecordWritten()
	outcome(metrics.OutcomeMarked)
	span.SetAttributes(attribute.String(telemetry.AttendanceRecordKey, rec.ID))
	logger.Info().
		Str(xlog.FieldEvent, "attendance.marked").
		Str(xlog.FieldRecordID, rec.ID).
		Str(xlog.FieldSubject, rec.Subject).
		Str(xlog.FieldTeacherID, rec.TeacherID).
		Msg("attendance marked")

	ev := events.AttendanceMarked{
		RecordID:  rec.ID,
		SessionID: sessionID,
		StudentID: studentID,
		TeacherID: rec.TeacherID,
		Subject:   rec.Subject,
		MarkedAt:  rec.Date,
	}
	if err := r.publisher.PublishAttendanceMarked(ctx, ev); err != nil {
		metrics.RecordEventPublishFailure(events.TypeAttendanceMarked)
		logger.Warn().Err(err).Str(xlog.FieldEvent, "event.publish_failed").Msg("attendance event not published")
	}
	return rec, nil
}
