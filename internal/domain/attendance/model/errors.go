// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import "errors"

var (
	// ErrForbidden is returned when the caller lacks the identity or role a report requires.
	ErrForbidden = errors.New("forbidden")
	// ErrPersistence marks failures of the external attendance store.
	ErrPersistence = errors.New("attendance store failure")
)
