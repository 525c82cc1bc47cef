// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/qrattend/internal/domain/attendance/model"
)

type ledgerFactory func(t *testing.T) Ledger

func localBackends() map[string]ledgerFactory {
	return map[string]ledgerFactory{
		BackendMemory: func(t *testing.T) Ledger {
			return NewMemoryLedger()
		},
		BackendSqlite: func(t *testing.T) Ledger {
			l, err := NewSqliteLedger(filepath.Join(t.TempDir(), "attendance.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = l.Close() })
			return l
		},
	}
}

func utc(day string, hour, minute int) time.Time {
	d, err := time.Parse(model.DayLayout, day)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func seed(t *testing.T, l Ledger, records ...*model.Record) {
	t.Helper()
	for _, r := range records {
		require.NoError(t, l.Append(context.Background(), r))
	}
}

func TestLedger_Local(t *testing.T) {
	for name, open := range localBackends() {
		t.Run(name, func(t *testing.T) {
			runLedgerContract(t, open)
		})
	}
}

// runLedgerContract exercises behaviour every backend must share.
func runLedgerContract(t *testing.T, open ledgerFactory) {
	t.Run("ByStudentResolvesUsers", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		require.NoError(t, l.PutUser(ctx, model.User{ID: "S1", Name: "Ada", Email: "ada@example.edu"}))

		seed(t, l,
			model.NewRecord("r1", "T1", "S1", "Math", utc("2026-03-01", 9, 0)),
			model.NewRecord("r2", "T1", "S2", "Math", utc("2026-03-01", 9, 5)),
			model.NewRecord("r3", "T2", "S1", "Bio", utc("2026-03-02", 8, 0)),
		)

		got, err := l.ByStudent(ctx, "S1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "r1", got[0].ID)
		assert.Equal(t, "r3", got[1].ID)
		assert.Equal(t, model.User{ID: "S1", Name: "Ada", Email: "ada@example.edu"}, got[0].Student)
		assert.Equal(t, model.StatusPresent, got[0].Status)
		assert.True(t, got[0].Date.Equal(utc("2026-03-01", 9, 0)), "date = %s", got[0].Date)

		unknown, err := l.ByStudent(ctx, "S2")
		require.NoError(t, err)
		require.Len(t, unknown, 1)
		assert.Equal(t, "S2", unknown[0].Student.ID)
		assert.Empty(t, unknown[0].Student.Name)
	})

	t.Run("BySubject", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		seed(t, l,
			model.NewRecord("r1", "T1", "S1", "Math", utc("2026-03-01", 9, 0)),
			model.NewRecord("r2", "T1", "S2", "Math", utc("2026-03-01", 9, 5)),
			model.NewRecord("r3", "T2", "S1", "Bio", utc("2026-03-02", 8, 0)),
		)

		got, err := l.BySubject(ctx, "Math")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "r1", got[0].ID)
		assert.Equal(t, "r2", got[1].ID)
	})

	t.Run("EmptyResults", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)

		byStudent, err := l.ByStudent(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, byStudent)
		assert.Empty(t, byStudent)

		bySubject, err := l.BySubject(ctx, "nothing")
		require.NoError(t, err)
		assert.NotNil(t, bySubject)
		assert.Empty(t, bySubject)

		teacher, err := l.TeacherDaily(ctx, "T9")
		require.NoError(t, err)
		assert.NotNil(t, teacher)
		assert.Empty(t, teacher)

		global, err := l.GlobalDaily(ctx)
		require.NoError(t, err)
		assert.NotNil(t, global)
		assert.Empty(t, global)
	})

	t.Run("TeacherDaily", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		seed(t, l,
			model.NewRecord("r1", "T1", "S1", "Math", utc("2026-03-01", 9, 0)),
			model.NewRecord("r2", "T1", "S2", "Math", utc("2026-03-01", 23, 59)),
			model.NewRecord("r3", "T1", "S1", "Art", utc("2026-03-01", 10, 0)),
			model.NewRecord("r4", "T1", "S1", "Math", utc("2026-03-02", 0, 1)),
			model.NewRecord("r5", "T2", "S1", "Math", utc("2026-03-02", 0, 1)),
		)

		got, err := l.TeacherDaily(ctx, "T1")
		require.NoError(t, err)
		assert.Equal(t, []model.TeacherDay{
			{Key: model.TeacherDayKey{Subject: "Math", Date: "2026-03-02"}, Count: 1},
			{Key: model.TeacherDayKey{Subject: "Art", Date: "2026-03-01"}, Count: 1},
			{Key: model.TeacherDayKey{Subject: "Math", Date: "2026-03-01"}, Count: 2},
		}, got)
	})

	t.Run("GlobalDaily", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		seed(t, l,
			model.NewRecord("r1", "T2", "S1", "Math", utc("2026-03-01", 9, 0)),
			model.NewRecord("r2", "T1", "S2", "Math", utc("2026-03-01", 9, 0)),
			model.NewRecord("r3", "T1", "S3", "Math", utc("2026-03-01", 12, 0)),
			model.NewRecord("r4", "T2", "S1", "Bio", utc("2026-02-27", 9, 0)),
		)

		got, err := l.GlobalDaily(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.GlobalDay{
			{Key: model.GlobalDayKey{Subject: "Math", Teacher: "T1", Date: "2026-03-01"}, Count: 2},
			{Key: model.GlobalDayKey{Subject: "Math", Teacher: "T2", Date: "2026-03-01"}, Count: 1},
			{Key: model.GlobalDayKey{Subject: "Bio", Teacher: "T2", Date: "2026-02-27"}, Count: 1},
		}, got)

		var total int64
		for _, row := range got {
			total += row.Count
		}
		assert.Equal(t, int64(4), total)
	})

	t.Run("DayIsUTC", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		loc := time.FixedZone("UTC-5", -5*60*60)
		seed(t, l, model.NewRecord("r1", "T1", "S1", "Math", time.Date(2026, 3, 1, 23, 30, 0, 0, loc)))

		got, err := l.TeacherDaily(ctx, "T1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "2026-03-02", got[0].Key.Date)
	})

	t.Run("PutUserUpserts", func(t *testing.T) {
		ctx := context.Background()
		l := open(t)
		require.NoError(t, l.PutUser(ctx, model.User{ID: "S1", Name: "Ada"}))
		require.NoError(t, l.PutUser(ctx, model.User{ID: "S1", Name: "Ada Lovelace", Email: "ada@example.edu"}))
		seed(t, l, model.NewRecord("r1", "T1", "S1", "Math", utc("2026-03-01", 9, 0)))

		got, err := l.ByStudent(ctx, "S1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Ada Lovelace", got[0].Student.Name)
		assert.Equal(t, "ada@example.edu", got[0].Student.Email)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, open(t).Ping(context.Background()))
	})
}

func TestSqliteLedger_ClosedReportsPersistenceError(t *testing.T) {
	l, err := NewSqliteLedger(filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	err = l.Append(context.Background(), model.NewRecord("r1", "T1", "S1", "Math", time.Now()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrPersistence))

	_, err = l.GlobalDaily(context.Background())
	assert.ErrorIs(t, err, model.ErrPersistence)
}

func TestSqliteLedger_ReopenKeepsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.db")
	l, err := NewSqliteLedger(path)
	require.NoError(t, err)
	seed(t, l, model.NewRecord("r1", "T1", "S1", "Math", utc("2026-03-01", 9, 0)))
	require.NoError(t, l.Close())

	l, err = NewSqliteLedger(path)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	got, err := l.ByStudent(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "r1", got[0].ID)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	l, err := Open(ctx, Options{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryLedger{}, l)

	l, err = Open(ctx, Options{Backend: BackendSqlite, SqlitePath: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	assert.IsType(t, &SqliteLedger{}, l)
	require.NoError(t, l.Close())

	tests := []Options{
		{Backend: BackendSqlite},
		{Backend: BackendPostgres},
		{Backend: BackendMongo},
		{Backend: "cassandra"},
	}
	for _, opts := range tests {
		t.Run(opts.Backend, func(t *testing.T) {
			_, err := Open(ctx, opts)
			assert.Error(t, err)
		})
	}
}
