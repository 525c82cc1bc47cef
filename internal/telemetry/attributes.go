// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"
	HTTPRequestIDKey  = "http.request_id"

	SessionIDKey      = "session.id"
	SessionSubjectKey = "session.subject"
	SessionTeacherKey = "session.teacher_id"
	SessionOutcomeKey = "session.outcome"

	AttendanceStudentKey = "attendance.student_id"
	AttendanceRecordKey  = "attendance.record_id"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes describes a QR session. Empty values are omitted.
func SessionAttributes(sessionID, subject, teacherID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, sessionID))
	}
	if subject != "" {
		attrs = append(attrs, attribute.String(SessionSubjectKey, subject))
	}
	if teacherID != "" {
		attrs = append(attrs, attribute.String(SessionTeacherKey, teacherID))
	}
	return attrs
}
