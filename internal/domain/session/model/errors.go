// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "errors"

var (
	// ErrInvalidSession is returned when a session id is unknown to the registry.
	ErrInvalidSession = errors.New("invalid session")
	// ErrExpiredSession is returned when a session id is known but past its TTL.
	// The entry is removed before the error is returned.
	ErrExpiredSession = errors.New("session expired")
)
