// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package model defines the QR session record shared by the registry and its stores.
package model

import (
	"regexp"
	"time"
)

// DefaultTTL is how long a generated QR session stays redeemable.
const DefaultTTL = 2 * time.Minute

// Session is a short-lived, single-use attendance token bound to a subject and
// the teacher who issued it.
type Session struct {
	SessionID string    `json:"sessionId"`
	Subject   string    `json:"subject"`
	TeacherID string    `json:"teacherId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Expired reports whether the session is past its expiry at now.
// A session is still valid at exactly ExpiresAt.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Clone returns an independent copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

var sessionIDRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// IsSafeSessionID returns true if the ID is safe to use as a store key.
func IsSafeSessionID(id string) bool {
	return sessionIDRe.MatchString(id)
}
