// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ManuGH/qrattend/internal/domain/attendance/model"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS attendance (
		seq BIGINT GENERATED ALWAYS AS IDENTITY,
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		date TIMESTAMPTZ NOT NULL DEFAULT now(),
		status TEXT NOT NULL DEFAULT 'Present'
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_subject ON attendance(subject);
	CREATE INDEX IF NOT EXISTS idx_attendance_teacher ON attendance(teacher_id);

	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	);
`

const postgresDayExpr = `to_char(a.date AT TIME ZONE 'UTC', 'YYYY-MM-DD')`

// PostgresLedger stores attendance in PostgreSQL through a pgx pool.
type PostgresLedger struct {
	pool *pgxpool.Pool
}

// NewPostgresLedger connects to dsn and ensures the schema exists.
func NewPostgresLedger(ctx context.Context, dsn string) (*PostgresLedger, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("attendance ledger: postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("attendance ledger: postgres ping: %w", err)
	}
	l := &PostgresLedger{pool: pool}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("attendance ledger: postgres migration failed: %w", err)
	}
	return l, nil
}

func (l *PostgresLedger) Append(ctx context.Context, r *model.Record) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO attendance (id, teacher_id, student_id, subject, date, status) VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.TeacherID, r.StudentID, r.Subject, r.Date, r.Status,
	)
	if err != nil {
		return persistenceErr("append", err)
	}
	return nil
}

const postgresRecordSelect = `
	SELECT a.id, a.teacher_id, a.student_id, a.subject, a.date, a.status,
		COALESCE(u.name, ''), COALESCE(u.email, '')
	FROM attendance a
	LEFT JOIN users u ON u.id = a.student_id
`

func (l *PostgresLedger) ByStudent(ctx context.Context, studentID string) ([]model.StudentRecord, error) {
	return l.queryRecords(ctx, "by student", postgresRecordSelect+` WHERE a.student_id = $1 ORDER BY a.seq`, studentID)
}

func (l *PostgresLedger) BySubject(ctx context.Context, subject string) ([]model.StudentRecord, error) {
	return l.queryRecords(ctx, "by subject", postgresRecordSelect+` WHERE a.subject = $1 ORDER BY a.seq`, subject)
}

func (l *PostgresLedger) queryRecords(ctx context.Context, op, query string, args ...any) ([]model.StudentRecord, error) {
	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr(op, err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.StudentRecord, error) {
		var (
			r           model.Record
			name, email string
		)
		if err := row.Scan(&r.ID, &r.TeacherID, &r.StudentID, &r.Subject, &r.Date, &r.Status, &name, &email); err != nil {
			return model.StudentRecord{}, err
		}
		r.Date = r.Date.UTC()
		return r.WithStudent(model.User{ID: r.StudentID, Name: name, Email: email}), nil
	})
	if err != nil {
		return nil, persistenceErr(op, err)
	}
	if out == nil {
		out = []model.StudentRecord{}
	}
	return out, nil
}

func (l *PostgresLedger) TeacherDaily(ctx context.Context, teacherID string) ([]model.TeacherDay, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT a.subject, `+postgresDayExpr+` AS day, COUNT(*)
		FROM attendance a
		WHERE a.teacher_id = $1
		GROUP BY a.subject, day
		ORDER BY day DESC, a.subject ASC`, teacherID)
	if err != nil {
		return nil, persistenceErr("teacher daily", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.TeacherDay, error) {
		var d model.TeacherDay
		err := row.Scan(&d.Key.Subject, &d.Key.Date, &d.Count)
		return d, err
	})
	if err != nil {
		return nil, persistenceErr("teacher daily", err)
	}
	if out == nil {
		out = []model.TeacherDay{}
	}
	return out, nil
}

func (l *PostgresLedger) GlobalDaily(ctx context.Context) ([]model.GlobalDay, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT a.subject, a.teacher_id, `+postgresDayExpr+` AS day, COUNT(*)
		FROM attendance a
		GROUP BY a.subject, a.teacher_id, day
		ORDER BY day DESC, a.subject ASC, a.teacher_id ASC`)
	if err != nil {
		return nil, persistenceErr("global daily", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.GlobalDay, error) {
		var d model.GlobalDay
		err := row.Scan(&d.Key.Subject, &d.Key.Teacher, &d.Key.Date, &d.Count)
		return d, err
	})
	if err != nil {
		return nil, persistenceErr("global daily", err)
	}
	if out == nil {
		out = []model.GlobalDay{}
	}
	return out, nil
}

func (l *PostgresLedger) PutUser(ctx context.Context, u model.User) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO users (id, name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		u.ID, u.Name, u.Email)
	if err != nil {
		return persistenceErr("put user", err)
	}
	return nil
}

func (l *PostgresLedger) Ping(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

func (l *PostgresLedger) Close() error {
	l.pool.Close()
	return nil
}
