// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"flag"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/ManuGH/qrattend/internal/auth"
	"github.com/ManuGH/qrattend/internal/config"
)

// runTokenCLI mints a bearer token for local testing. The signing secret comes
// from --secret or, failing that, from the loaded configuration.
func runTokenCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("qrattendd token", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "path to config file (YAML)")
	secret := fs.String("secret", "", "HS256 signing secret (defaults to auth.secret)")
	issuer := fs.String("issuer", "", "iss claim (defaults to auth.issuer)")
	id := fs.String("id", "", "user id (required)")
	role := fs.String("role", auth.RoleStudent, "role: student, teacher or admin")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	ttl := fs.Duration("ttl", 24*time.Hour, "token lifetime; 0 means no expiry")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *id == "" {
		fmt.Fprintln(stderr, "Error: --id is required")
		return 2
	}
	if !slices.Contains([]string{auth.RoleStudent, auth.RoleTeacher, auth.RoleAdmin}, *role) {
		fmt.Fprintf(stderr, "Error: invalid role %q\n", *role)
		return 2
	}

	if *secret == "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: no --secret given and configuration failed to load: %v\n", err)
			return 1
		}
		*secret = cfg.Auth.Secret
		if *issuer == "" {
			*issuer = cfg.Auth.Issuer
		}
	}

	tok, err := auth.Mint(*secret, *issuer, auth.Principal{
		ID:    *id,
		Role:  *role,
		Name:  *name,
		Email: *email,
	}, *ttl, time.Now())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, tok)
	return 0
}
