// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldCallerID  = "caller_id"
	FieldTeacherID = "teacher_id"
	FieldStudentID = "student_id"
	FieldRecordID  = "record_id"

	// Domain fields
	FieldSubject   = "subject"
	FieldExpiresAt = "expires_at"
	FieldBackend   = "backend"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// HTTP fields
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldRoute      = "route"
	FieldStatus     = "status"
	FieldBytes      = "bytes"
	FieldDurationMS = "duration_ms"
	FieldRemoteAddr = "remote_addr"
)
