// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when the request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")
	// ErrInvalidToken is returned for tokens that fail signature, expiry or claim checks.
	ErrInvalidToken = errors.New("invalid bearer token")
)

const signingMethod = "HS256"

type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Role   string `json:"role"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// ExtractToken retrieves the bearer token from the Authorization header.
func ExtractToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Verifier checks HS256 bearer tokens issued by the identity provider.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewVerifier creates a Verifier. An empty issuer disables the issuer check.
func NewVerifier(secret, issuer string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: token secret is required")
	}
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Verify parses token and returns the principal it names.
func (v *Verifier) Verify(token string) (*Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{signingMethod}),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	if id == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return &Principal{ID: id, Role: c.Role, Name: c.Name, Email: c.Email}, nil
}

// Authenticate extracts and verifies the bearer token on r.
func (v *Verifier) Authenticate(r *http.Request) (*Principal, error) {
	return v.Verify(ExtractToken(r))
}

// Mint signs a token for p valid for ttl; a non-positive ttl mints a token
// without expiry. Used by the token subcommand and tests.
func Mint(secret, issuer string, p Principal, ttl time.Duration, now time.Time) (string, error) {
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  p.ID,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
		UserID: p.ID,
		Role:   p.Role,
		Name:   p.Name,
		Email:  p.Email,
	}
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
}
