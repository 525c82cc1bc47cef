// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ManuGH/qrattend/internal/domain/attendance/model"
	"github.com/ManuGH/qrattend/internal/persistence/sqlite"
)

const sqliteSchemaVersion = 1

// sqliteDayExpr truncates the stored unix-millisecond date to a UTC calendar day.
const sqliteDayExpr = `strftime('%Y-%m-%d', a.date_ms / 1000, 'unixepoch')`

// SqliteLedger stores attendance in a local SQLite database.
type SqliteLedger struct {
	DB *sql.DB
}

// NewSqliteLedger opens the database at dbPath and applies the schema.
func NewSqliteLedger(dbPath string) (*SqliteLedger, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	l := &SqliteLedger{DB: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("attendance ledger: migration failed: %w", err)
	}
	return l, nil
}

func (l *SqliteLedger) migrate() error {
	var currentVersion int
	if err := l.DB.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= sqliteSchemaVersion {
		return nil
	}

	tx, err := l.DB.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		teacher_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		subject TEXT NOT NULL,
		date_ms INTEGER NOT NULL,
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
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

func (l *SqliteLedger) Append(ctx context.Context, r *model.Record) error {
	_, err := l.DB.ExecContext(ctx,
		`INSERT INTO attendance (id, teacher_id, student_id, subject, date_ms, status) VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.TeacherID, r.StudentID, r.Subject, r.Date.UnixMilli(), r.Status,
	)
	if err != nil {
		return persistenceErr("append", err)
	}
	return nil
}

const sqliteRecordSelect = `
	SELECT a.id, a.teacher_id, a.student_id, a.subject, a.date_ms, a.status,
		COALESCE(u.name, ''), COALESCE(u.email, '')
	FROM attendance a
	LEFT JOIN users u ON u.id = a.student_id
`

func (l *SqliteLedger) ByStudent(ctx context.Context, studentID string) ([]model.StudentRecord, error) {
	return l.queryRecords(ctx, "by student", sqliteRecordSelect+` WHERE a.student_id = ? ORDER BY a.rowid`, studentID)
}

func (l *SqliteLedger) BySubject(ctx context.Context, subject string) ([]model.StudentRecord, error) {
	return l.queryRecords(ctx, "by subject", sqliteRecordSelect+` WHERE a.subject = ? ORDER BY a.rowid`, subject)
}

func (l *SqliteLedger) queryRecords(ctx context.Context, op, query string, args ...any) ([]model.StudentRecord, error) {
	rows, err := l.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistenceErr(op, err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.StudentRecord{}
	for rows.Next() {
		var (
			r           model.Record
			dateMS      int64
			name, email string
		)
		if err := rows.Scan(&r.ID, &r.TeacherID, &r.StudentID, &r.Subject, &dateMS, &r.Status, &name, &email); err != nil {
			return nil, persistenceErr(op, err)
		}
		r.Date = time.UnixMilli(dateMS).UTC()
		out = append(out, r.WithStudent(model.User{ID: r.StudentID, Name: name, Email: email}))
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr(op, err)
	}
	return out, nil
}

func (l *SqliteLedger) TeacherDaily(ctx context.Context, teacherID string) ([]model.TeacherDay, error) {
	query := `
		SELECT a.subject, ` + sqliteDayExpr + ` AS day, COUNT(*)
		FROM attendance a
		WHERE a.teacher_id = ?
		GROUP BY a.subject, day
		ORDER BY day DESC, a.subject ASC`
	rows, err := l.DB.QueryContext(ctx, query, teacherID)
	if err != nil {
		return nil, persistenceErr("teacher daily", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.TeacherDay{}
	for rows.Next() {
		var d model.TeacherDay
		if err := rows.Scan(&d.Key.Subject, &d.Key.Date, &d.Count); err != nil {
			return nil, persistenceErr("teacher daily", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("teacher daily", err)
	}
	return out, nil
}

func (l *SqliteLedger) GlobalDaily(ctx context.Context) ([]model.GlobalDay, error) {
	query := `
		SELECT a.subject, a.teacher_id, ` + sqliteDayExpr + ` AS day, COUNT(*)
		FROM attendance a
		GROUP BY a.subject, a.teacher_id, day
		ORDER BY day DESC, a.subject ASC, a.teacher_id ASC`
	rows, err := l.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, persistenceErr("global daily", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.GlobalDay{}
	for rows.Next() {
		var d model.GlobalDay
		if err := rows.Scan(&d.Key.Subject, &d.Key.Teacher, &d.Key.Date, &d.Count); err != nil {
			return nil, persistenceErr("global daily", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, persistenceErr("global daily", err)
	}
	return out, nil
}

func (l *SqliteLedger) PutUser(ctx context.Context, u model.User) error {
	_, err := l.DB.ExecContext(ctx, `
		INSERT INTO users (id, name, email) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		u.ID, u.Name, u.Email)
	if err != nil {
		return persistenceErr("put user", err)
	}
	return nil
}

func (l *SqliteLedger) Ping(ctx context.Context) error {
	return l.DB.PingContext(ctx)
}

func (l *SqliteLedger) Close() error {
	return l.DB.Close()
}
