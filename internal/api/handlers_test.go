// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/qrattend/internal/auth"
	"github.com/ManuGH/qrattend/internal/domain/attendance/ledger"
	attmodel "github.com/ManuGH/qrattend/internal/domain/attendance/model"
	"github.com/ManuGH/qrattend/internal/domain/attendance/reports"
	"github.com/ManuGH/qrattend/internal/domain/session/manager"
	"github.com/ManuGH/qrattend/internal/domain/session/store"
	"github.com/ManuGH/qrattend/internal/health"
	"github.com/ManuGH/qrattend/internal/qr"
)

const testSecret = "api-test-secret"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type apiFixture struct {
	t      *testing.T
	clock  *testClock
	ledger *ledger.MemoryLedger
	srv    *Server
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)}
	l := ledger.NewMemoryLedger()
	st := store.NewMemoryStore()
	enc, err := qr.NewEncoder(128, "medium")
	require.NoError(t, err)

	reg := manager.NewRegistry(st, l, enc, manager.WithClock(clock.Now))
	v, err := auth.NewVerifier(testSecret, "")
	require.NoError(t, err)

	hm := health.NewManager("test")
	hm.RegisterChecker(health.NewPingChecker("ledger", l.Ping, true))

	srv, err := New(Config{EnableMetrics: true, CORSOrigins: []string{"*"}}, Deps{
		Registry:  reg,
		Reports:   reports.New(l),
		Directory: l,
		Verifier:  v,
		Health:    hm,
	})
	require.NoError(t, err)
	return &apiFixture{t: t, clock: clock, ledger: l, srv: srv}
}

func token(t *testing.T, p auth.Principal) string {
	t.Helper()
	tok, err := auth.Mint(testSecret, "", p, time.Hour, time.Now())
	require.NoError(t, err)
	return tok
}

var (
	teacher = auth.Principal{ID: "T1", Role: auth.RoleTeacher, Name: "Grace Hopper"}
	student = auth.Principal{ID: "S1", Role: auth.RoleStudent, Name: "Ada Lovelace", Email: "ada@example.edu"}
	admin   = auth.Principal{ID: "A1", Role: auth.RoleAdmin}
)

func (f *apiFixture) do(method, path string, caller *auth.Principal, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(f.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if caller != nil {
		req.Header.Set("Authorization", "Bearer "+token(f.t, *caller))
	}
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func (f *apiFixture) generate(prefix, subject, teacherID string) generateResponse {
	f.t.Helper()
	w := f.do(http.MethodPost, prefix+"/generate", &teacher, generateRequest{Subject: subject, TeacherID: teacherID})
	require.Equal(f.t, http.StatusOK, w.Code, w.Body.String())
	var resp generateResponse
	require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func msgOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var m msgResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m.Msg
}

func TestBanner(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Banner, w.Body.String())
}

func TestRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)
	for _, path := range []string{"/generate", MountPrefix + "/generate"} {
		w := f.do(http.MethodPost, path, nil, generateRequest{Subject: "Math", TeacherID: "T1"})
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := f.do(http.MethodGet, "/admin-summary", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerate(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.generate("", "Math", "T1")

	assert.NotEmpty(t, resp.SessionID)
	assert.True(t, strings.HasPrefix(resp.QR, "data:image/png;base64,"))
	assert.Equal(t, f.clock.Now().Add(2*time.Minute).UnixMilli(), resp.ExpiresAt)

	decoded, err := qr.DecodeDataURL(resp.QR)
	require.NoError(t, err)
	assert.NotEmpty(t, decoded)
}

func TestGenerate_BadRequests(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/generate", &teacher, `{"subject":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgInvalidBody, msgOf(t, w))

	w = f.do(http.MethodPost, "/generate", &teacher, generateRequest{Subject: "Math"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/generate", &teacher, generateRequest{Subject: "  ", TeacherID: "T1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMark_SingleUse(t *testing.T) {
	f := newAPIFixture(t)
	gen := f.generate(MountPrefix, "Math", "T1")

	f.clock.Advance(60 * time.Second)
	w := f.do(http.MethodPost, MountPrefix+"/mark", &student, markRequest{SessionID: gen.SessionID, StudentID: "S1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, MsgAttendanceMarked, msgOf(t, w))

	f.clock.Advance(time.Second)
	w = f.do(http.MethodPost, "/mark", &student, markRequest{SessionID: gen.SessionID, StudentID: "S2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgInvalidQR, msgOf(t, w))

	assert.Equal(t, 1, f.ledger.Len())
}

func TestMark_Expired(t *testing.T) {
	f := newAPIFixture(t)
	gen := f.generate("", "Math", "T1")

	f.clock.Advance(130 * time.Second)
	w := f.do(http.MethodPost, "/mark", &student, markRequest{SessionID: gen.SessionID, StudentID: "S1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgQRExpired, msgOf(t, w))
	assert.Zero(t, f.ledger.Len())
}

func TestMark_BadRequests(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodPost, "/mark", &student, markRequest{SessionID: "does-not-exist", StudentID: "S1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgInvalidQR, msgOf(t, w))

	w = f.do(http.MethodPost, "/mark", &student, markRequest{StudentID: "S1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgInvalidQR, msgOf(t, w))

	gen := f.generate("", "Math", "T1")
	w = f.do(http.MethodPost, "/mark", &student, markRequest{SessionID: gen.SessionID})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPost, "/mark", &student, "not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, MsgInvalidBody, msgOf(t, w))

	// The rejected requests above must not have consumed the session.
	w = f.do(http.MethodPost, "/mark", &student, markRequest{SessionID: gen.SessionID, StudentID: "S1"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReports_StudentAndSubject(t *testing.T) {
	f := newAPIFixture(t)

	gen := f.generate("", "Math", "T1")
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/mark", &student,
		markRequest{SessionID: gen.SessionID, StudentID: "S1"}).Code)

	// Marked by a teacher on behalf of S2, so no profile is learned for S2.
	gen = f.generate("", "Math", "T1")
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/mark", &teacher,
		markRequest{SessionID: gen.SessionID, StudentID: "S2"}).Code)

	w := f.do(http.MethodGet, "/student/S1", &teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []attmodel.StudentRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, attmodel.User{ID: "S1", Name: "Ada Lovelace", Email: "ada@example.edu"}, recs[0].Student)
	assert.Equal(t, "T1", recs[0].TeacherID)
	assert.Equal(t, attmodel.StatusPresent, recs[0].Status)

	w = f.do(http.MethodGet, MountPrefix+"/subject/Math", &student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	recs = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, "S1", recs[0].Student.ID)
	assert.Equal(t, attmodel.User{ID: "S2"}, recs[1].Student)

	w = f.do(http.MethodGet, "/student/nobody", &student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestReports_TeacherSummary(t *testing.T) {
	f := newAPIFixture(t)
	for i := 0; i < 2; i++ {
		gen := f.generate("", "Math", "T1")
		require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/mark", &student,
			markRequest{SessionID: gen.SessionID, StudentID: fmt.Sprintf("S%d", i)}).Code)
	}

	w := f.do(http.MethodGet, "/teacher-summary/T1", &teacher, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"_id":{"subject":"Math","date":"2025-03-14"},"count":2}]`, w.Body.String())

	other := auth.Principal{ID: "T2", Role: auth.RoleTeacher}
	w = f.do(http.MethodGet, "/teacher-summary/T1", &other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, MsgAccessDenied, msgOf(t, w))

	w = f.do(http.MethodGet, MountPrefix+"/teacher-summary/T1", &admin, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "admins read the global summary instead")
}

func TestReports_AdminSummary(t *testing.T) {
	f := newAPIFixture(t)
	gen := f.generate("", "Physics", "T9")
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/mark", &student,
		markRequest{SessionID: gen.SessionID, StudentID: "S1"}).Code)

	w := f.do(http.MethodGet, "/admin-summary", &teacher, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, MsgAdminOnly, msgOf(t, w))

	w = f.do(http.MethodGet, "/admin-summary", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"_id":{"subject":"Physics","teacher":"T9","date":"2025-03-14"},"count":1}]`, w.Body.String())
}

func TestReports_DecodeEscapedPathParams(t *testing.T) {
	f := newAPIFixture(t)
	gen := f.generate("", "C++ & Data/Structures", "T1")
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/mark", &student,
		markRequest{SessionID: gen.SessionID, StudentID: "S1"}).Code)

	w := f.do(http.MethodGet, "/subject/"+url.PathEscape("C++ & Data/Structures"), &student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []attmodel.StudentRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "C++ & Data/Structures", recs[0].Subject)

	w = f.do(http.MethodGet, MountPrefix+"/subject/C%2B%2B%20%26%20Data%2FStructures", &student, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"subject":"C++ \u0026 Data/Structures"`)

	slashed := auth.Principal{ID: "T/1", Role: auth.RoleTeacher}
	gen = f.generate("", "Math", "T/1")
	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/mark", &student,
		markRequest{SessionID: gen.SessionID, StudentID: "S1"}).Code)
	w = f.do(http.MethodGet, "/teacher-summary/T%2F1", &slashed, nil)
	require.Equal(t, http.StatusOK, w.Code, "escaped id matches the caller")
	assert.JSONEq(t, `[{"_id":{"subject":"Math","date":"2025-03-14"},"count":1}]`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/student/x", nil)
	req.URL.RawPath = "/student/%zz"
	req.Header.Set("Authorization", "Bearer "+token(t, student))
	rec := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgInvalidPath, msgOf(t, rec))
}

func TestProbesAndMetrics(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	f.generate("", "Math", "T1")
	w = f.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qrattend_sessions_generated_total")
	assert.Contains(t, w.Body.String(), "qrattend_http_request_duration_seconds")
}

func TestUnknownRoute(t *testing.T) {
	f := newAPIFixture(t)
	w := f.do(http.MethodGet, "/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type brokenRegistry struct{}

func (brokenRegistry) Generate(context.Context, string, string) (*manager.Generated, error) {
	return nil, errors.New("png encoder exploded")
}

func (brokenRegistry) Redeem(context.Context, string, string) (*attmodel.Record, error) {
	return nil, fmt.Errorf("%w: append: connection reset", attmodel.ErrPersistence)
}

type brokenReports struct{}

func (brokenReports) ByStudent(context.Context, string) ([]attmodel.StudentRecord, error) {
	return nil, fmt.Errorf("%w: by student: timeout", attmodel.ErrPersistence)
}

func (brokenReports) BySubject(context.Context, string) ([]attmodel.StudentRecord, error) {
	return nil, fmt.Errorf("%w: by subject: timeout", attmodel.ErrPersistence)
}

func (brokenReports) TeacherDailySummary(context.Context, *auth.Principal, string) ([]attmodel.TeacherDay, error) {
	return nil, fmt.Errorf("%w: teacher daily: timeout", attmodel.ErrPersistence)
}

func (brokenReports) GlobalDailySummary(context.Context, *auth.Principal) ([]attmodel.GlobalDay, error) {
	return nil, fmt.Errorf("%w: global daily: timeout", attmodel.ErrPersistence)
}

func TestFailuresAreGeneric500s(t *testing.T) {
	v, err := auth.NewVerifier(testSecret, "")
	require.NoError(t, err)
	srv, err := New(Config{}, Deps{Registry: brokenRegistry{}, Reports: brokenReports{}, Verifier: v})
	require.NoError(t, err)
	f := &apiFixture{t: t, srv: srv}

	tests := []struct {
		method, path string
		body         any
		want         string
	}{
		{http.MethodPost, "/generate", generateRequest{Subject: "Math", TeacherID: "T1"}, MsgGenerateFailed},
		{http.MethodPost, "/mark", markRequest{SessionID: "x", StudentID: "S1"}, MsgAttendanceFailed},
		{http.MethodGet, "/student/S1", nil, MsgReportError},
		{http.MethodGet, "/subject/Math", nil, MsgReportError},
		{http.MethodGet, "/teacher-summary/T1", nil, MsgSummaryError},
		{http.MethodGet, "/admin-summary", nil, MsgAdminSummaryError},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := f.do(tt.method, tt.path, &admin, tt.body)
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.Equal(t, tt.want, msgOf(t, w))
			assert.NotContains(t, w.Body.String(), "timeout")
			assert.NotContains(t, w.Body.String(), "exploded")
		})
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Config{}, Deps{})
	assert.Error(t, err)
}
