// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package model defines attendance records and the report shapes built from them.
package model

import (
	"time"
)

// StatusPresent is the only status produced by QR redemption.
const StatusPresent = "Present"

// DayLayout is the calendar-day format used by the daily summaries.
const DayLayout = "2006-01-02"

// Record is one immutable attendance entry.
type Record struct {
	ID        string    `json:"_id"`
	TeacherID string    `json:"teacher"`
	StudentID string    `json:"student"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
}

// NewRecord builds a Present record dated at now.
func NewRecord(id, teacherID, studentID, subject string, now time.Time) *Record {
	return &Record{
		ID:        id,
		TeacherID: teacherID,
		StudentID: studentID,
		Subject:   subject,
		Date:      now.UTC(),
		Status:    StatusPresent,
	}
}

// User is the directory entry used to augment records with a display name and email.
type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// StudentRecord is a Record whose student reference has been resolved against the
// user directory. Student is the bare id when the user is unknown.
type StudentRecord struct {
	ID        string    `json:"_id"`
	TeacherID string    `json:"teacher"`
	Student   User      `json:"student"`
	Subject   string    `json:"subject"`
	Date      time.Time `json:"date"`
	Status    string    `json:"status"`
}

// WithStudent pairs r with the resolved student.
func (r Record) WithStudent(u User) StudentRecord {
	if u.ID == "" {
		u.ID = r.StudentID
	}
	return StudentRecord{
		ID:        r.ID,
		TeacherID: r.TeacherID,
		Student:   u,
		Subject:   r.Subject,
		Date:      r.Date,
		Status:    r.Status,
	}
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) string {
	return t.UTC().Format(DayLayout)
}
