// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/qrattend/internal/auth"
	attmodel "github.com/ManuGH/qrattend/internal/domain/attendance/model"
	xlog "github.com/ManuGH/qrattend/internal/log"
	"github.com/ManuGH/qrattend/internal/metrics"
)

const maxBodyBytes = 1 << 16

type generateRequest struct {
	Subject   string `json:"subject"`
	TeacherID string `json:"teacherId"`
}

type generateResponse struct {
	QR        string `json:"qr"`
	SessionID string `json:"sessionId"`
	// ExpiresAt is unix milliseconds.
	ExpiresAt int64 `json:"expiresAt"`
}

type markRequest struct {
	SessionID string `json:"sessionId"`
	StudentID string `json:"studentId"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeMsg(w, http.StatusBadRequest, MsgInvalidBody)
		return false
	}
	return true
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Subject = strings.TrimSpace(req.Subject)
	req.TeacherID = strings.TrimSpace(req.TeacherID)
	if req.Subject == "" || req.TeacherID == "" {
		writeMsg(w, http.StatusBadRequest, "subject and teacherId are required")
		return
	}

	gen, err := s.registry.Generate(r.Context(), req.Subject, req.TeacherID)
	if err != nil {
		writeFailure(w, r, err, MsgAccessDenied, MsgGenerateFailed)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		QR:        gen.QR,
		SessionID: gen.SessionID,
		ExpiresAt: gen.ExpiresAt.UnixMilli(),
	})
}

// handleMark redeems a session. An absent sessionId is treated like an unknown one.
func (s *Server) handleMark(w http.ResponseWriter, r *http.Request) {
	var req markRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.StudentID = strings.TrimSpace(req.StudentID)
	if req.StudentID == "" {
		writeMsg(w, http.StatusBadRequest, "studentId is required")
		return
	}

	if _, err := s.registry.Redeem(r.Context(), req.SessionID, req.StudentID); err != nil {
		writeFailure(w, r, err, MsgAccessDenied, MsgAttendanceFailed)
		return
	}

	s.rememberCaller(r, req.StudentID)
	writeMsg(w, http.StatusOK, MsgAttendanceMarked)
}

// rememberCaller stores the caller's profile so reports can show the student's
// name and email. It only runs when the caller marked their own attendance.
func (s *Server) rememberCaller(r *http.Request, studentID string) {
	caller := auth.PrincipalFromContext(r.Context())
	if s.directory == nil || caller == nil || caller.ID != studentID {
		return
	}
	if caller.Name == "" && caller.Email == "" {
		return
	}
	u := attmodel.User{ID: caller.ID, Name: caller.Name, Email: caller.Email}
	if err := s.directory.PutUser(r.Context(), u); err != nil {
		logger := xlog.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Str(xlog.FieldStudentID, studentID).Msg("could not update user directory")
	}
}

// pathParam returns the decoded value of a route parameter. chi matches on the
// raw path when one is present, so "C%2B%2B" arrives still escaped.
func pathParam(w http.ResponseWriter, r *http.Request, key string) (string, bool) {
	v, err := url.PathUnescape(chi.URLParam(r, key))
	if err != nil {
		writeMsg(w, http.StatusBadRequest, MsgInvalidPath)
		return "", false
	}
	return v, true
}

func (s *Server) handleByStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathParam(w, r, "id")
	if !ok {
		return
	}
	records, err := s.reports.ByStudent(r.Context(), id)
	metrics.RecordReportQuery("student", resultLabel(err))
	if err != nil {
		writeFailure(w, r, err, MsgAccessDenied, MsgReportError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleBySubject(w http.ResponseWriter, r *http.Request) {
	name, ok := pathParam(w, r, "name")
	if !ok {
		return
	}
	records, err := s.reports.BySubject(r.Context(), name)
	metrics.RecordReportQuery("subject", resultLabel(err))
	if err != nil {
		writeFailure(w, r, err, MsgAccessDenied, MsgReportError)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTeacherSummary(w http.ResponseWriter, r *http.Request) {
	teacherID, ok := pathParam(w, r, "teacherId")
	if !ok {
		return
	}
	caller := auth.PrincipalFromContext(r.Context())
	rows, err := s.reports.TeacherDailySummary(r.Context(), caller, teacherID)
	metrics.RecordReportQuery("teacher_summary", resultLabel(err))
	if err != nil {
		writeFailure(w, r, err, MsgAccessDenied, MsgSummaryError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleAdminSummary(w http.ResponseWriter, r *http.Request) {
	caller := auth.PrincipalFromContext(r.Context())
	rows, err := s.reports.GlobalDailySummary(r.Context(), caller)
	metrics.RecordReportQuery("admin_summary", resultLabel(err))
	if err != nil {
		writeFailure(w, r, err, MsgAdminOnly, MsgAdminSummaryError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
