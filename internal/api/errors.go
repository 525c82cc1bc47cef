// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	attmodel "github.com/ManuGH/qrattend/internal/domain/attendance/model"
	sessmodel "github.com/ManuGH/qrattend/internal/domain/session/model"
	xlog "github.com/ManuGH/qrattend/internal/log"
)

// Messages returned in the {msg} body.
const (
	MsgAttendanceMarked  = "Attendance marked"
	MsgInvalidQR         = "Invalid QR"
	MsgQRExpired         = "QR expired"
	MsgAccessDenied      = "Access denied"
	MsgAdminOnly         = "Admin only"
	MsgGenerateFailed    = "QR generation failed"
	MsgAttendanceFailed  = "Attendance failed"
	MsgReportError       = "Report error"
	MsgSummaryError      = "Summary error"
	MsgAdminSummaryError = "Admin summary error"
	MsgInvalidBody       = "Invalid request body"
	MsgInvalidPath       = "Invalid path parameter"
)

type msgResponse struct {
	Msg string `json:"msg"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsg(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, msgResponse{Msg: msg})
}

// writeFailure maps err onto the error taxonomy. Session errors are 400,
// authorization errors 403, everything else a 500 carrying only fallback.
// forbiddenMsg is used for ErrForbidden.
func writeFailure(w http.ResponseWriter, r *http.Request, err error, forbiddenMsg, fallback string) {
	switch {
	case errors.Is(err, sessmodel.ErrInvalidSession):
		writeMsg(w, http.StatusBadRequest, MsgInvalidQR)
	case errors.Is(err, sessmodel.ErrExpiredSession):
		writeMsg(w, http.StatusBadRequest, MsgQRExpired)
	case errors.Is(err, attmodel.ErrForbidden):
		writeMsg(w, http.StatusForbidden, forbiddenMsg)
	default:
		logger := xlog.WithComponentFromContext(r.Context(), "api")
		logger.Error().
			Err(err).
			Bool("persistence", errors.Is(err, attmodel.ErrPersistence)).
			Str(xlog.FieldMethod, r.Method).
			Str(xlog.FieldPath, r.URL.Path).
			Msg(fallback)
		writeMsg(w, http.StatusInternalServerError, fallback)
	}
}

// resultLabel classifies err for the report metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, attmodel.ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
