// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api exposes the attendance HTTP surface.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/qrattend/internal/api/middleware"
	"github.com/ManuGH/qrattend/internal/auth"
	attmodel "github.com/ManuGH/qrattend/internal/domain/attendance/model"
	"github.com/ManuGH/qrattend/internal/domain/session/manager"
	"github.com/ManuGH/qrattend/internal/health"
)

// MountPrefix is where the attendance routes live besides the root.
const MountPrefix = "/api/attendance"

// Banner is the body of GET /.
const Banner = "QR attendance backend running"

// SessionRegistry issues and redeems QR sessions.
type SessionRegistry interface {
	Generate(ctx context.Context, subject, teacherID string) (*manager.Generated, error)
	Redeem(ctx context.Context, sessionID, studentID string) (*attmodel.Record, error)
}

// Reporter answers the read-side queries with their authorization rules applied.
type Reporter interface {
	ByStudent(ctx context.Context, studentID string) ([]attmodel.StudentRecord, error)
	BySubject(ctx context.Context, subject string) ([]attmodel.StudentRecord, error)
	TeacherDailySummary(ctx context.Context, caller *auth.Principal, teacherID string) ([]attmodel.TeacherDay, error)
	GlobalDailySummary(ctx context.Context, caller *auth.Principal) ([]attmodel.GlobalDay, error)
}

// UserDirectory records display names and emails learned from verified tokens.
type UserDirectory interface {
	PutUser(ctx context.Context, u attmodel.User) error
}

// Config holds the HTTP-level settings.
type Config struct {
	CORSOrigins    []string
	RateLimitRPM   int
	EnableMetrics  bool
	TracingService string // empty disables tracing
}

// Deps are the collaborators the handlers call into. Directory and Health are optional.
type Deps struct {
	Registry  SessionRegistry
	Reports   Reporter
	Directory UserDirectory
	Verifier  *auth.Verifier
	Health    *health.Manager
}

// Server owns the router for the attendance API.
type Server struct {
	cfg       Config
	registry  SessionRegistry
	reports   Reporter
	directory UserDirectory
	verifier  *auth.Verifier
	health    *health.Manager
	handler   http.Handler
}

// New validates deps and builds the router.
func New(cfg Config, deps Deps) (*Server, error) {
	switch {
	case deps.Registry == nil:
		return nil, errors.New("api: session registry is required")
	case deps.Reports == nil:
		return nil, errors.New("api: reports service is required")
	case deps.Verifier == nil:
		return nil, errors.New("api: token verifier is required")
	}

	s := &Server{
		cfg:       cfg,
		registry:  deps.Registry,
		reports:   deps.Reports,
		directory: deps.Directory,
		verifier:  deps.Verifier,
		health:    deps.Health,
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.CORSOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         s.cfg.EnableMetrics,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
		RateLimitRPM:          s.cfg.RateLimitRPM,
	})

	s.registerPublicRoutes(r)

	r.Group(s.registerAttendanceRoutes)
	r.Route(MountPrefix, s.registerAttendanceRoutes)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeMsg(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeMsg(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

func (s *Server) registerPublicRoutes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(Banner))
	})
	if s.health != nil {
		r.Get("/healthz", s.health.ServeHealth)
		r.Get("/readyz", s.health.ServeReady)
	}
	if s.cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}
}

func (s *Server) registerAttendanceRoutes(r chi.Router) {
	r.Use(middleware.Authenticate(s.verifier))

	r.Post("/generate", s.handleGenerate)
	r.Post("/mark", s.handleMark)
	r.Get("/student/{id}", s.handleByStudent)
	r.Get("/subject/{name}", s.handleBySubject)
	r.Get("/teacher-summary/{teacherId}", s.handleTeacherSummary)
	r.Get("/admin-summary", s.handleAdminSummary)
}
