// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/qrattend/internal/api"
	"github.com/ManuGH/qrattend/internal/auth"
	"github.com/ManuGH/qrattend/internal/config"
	"github.com/ManuGH/qrattend/internal/domain/attendance/ledger"
	"github.com/ManuGH/qrattend/internal/domain/attendance/reports"
	"github.com/ManuGH/qrattend/internal/domain/session/manager"
	"github.com/ManuGH/qrattend/internal/domain/session/store"
	"github.com/ManuGH/qrattend/internal/events"
	"github.com/ManuGH/qrattend/internal/health"
	xlog "github.com/ManuGH/qrattend/internal/log"
	"github.com/ManuGH/qrattend/internal/qr"
	"github.com/ManuGH/qrattend/internal/telemetry"
	"github.com/ManuGH/qrattend/internal/version"
)

// run wires every component from cfg and serves until ctx is cancelled.
func run(ctx context.Context, cfg config.AppConfig) error {
	logger := xlog.WithComponent("daemon")

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version.Version,
		Environment:    cfg.Telemetry.Environment,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("telemetry shutdown failed")
		}
	}()

	st, err := store.Open(store.Options{
		Backend:   cfg.Session.Backend,
		Retention: cfg.Session.Retention,
		Redis: store.RedisConfig{
			Addr:      cfg.Session.RedisAddr,
			Password:  cfg.Session.RedisPassword,
			DB:        cfg.Session.RedisDB,
			KeyPrefix: cfg.Session.RedisKeyPrefix,
		},
		BadgerPath: cfg.Session.BadgerPath,
	}, xlog.WithComponent("session-store"))
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	defer closeQuietly("session store", st.Close)

	l, err := ledger.Open(ctx, ledger.Options{
		Backend:       cfg.Ledger.Backend,
		SqlitePath:    cfg.Ledger.SqlitePath,
		PostgresDSN:   cfg.Ledger.PostgresDSN,
		MongoURI:      cfg.Ledger.MongoURI,
		MongoDatabase: cfg.Ledger.MongoDatabase,
	})
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	defer closeQuietly("ledger", l.Close)

	enc, err := qr.NewEncoder(cfg.QR.Size, cfg.QR.Recovery)
	if err != nil {
		return fmt.Errorf("qr encoder: %w", err)
	}

	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.NewPingChecker("ledger", l.Ping, true))
	hm.RegisterChecker(health.NewPingChecker("sessions", st.Ping, true))

	var publisher events.Publisher = events.Noop{}
	if cfg.Events.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue, xlog.WithComponent("events"))
		if err != nil {
			return fmt.Errorf("events: %w", err)
		}
		hm.RegisterChecker(health.NewPingChecker("events", p.Ping, false))
		publisher = p
	}
	defer closeQuietly("event publisher", publisher.Close)

	registry := manager.NewRegistry(st, l, enc,
		manager.WithPublisher(publisher),
		manager.WithLogger(xlog.WithComponent("registry")),
	)

	verifier, err := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	tracingService := ""
	if cfg.Telemetry.Enabled {
		tracingService = serviceName + "-api"
	}
	srv, err := api.New(api.Config{
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPM:   cfg.Server.RateLimitRPM,
		EnableMetrics:  cfg.Server.EnableMetrics,
		TracingService: tracingService,
	}, api.Deps{
		Registry:  registry,
		Reports:   reports.New(l),
		Directory: l,
		Verifier:  verifier,
		Health:    hm,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	sweeper := manager.NewSweeper(st, cfg.Session.SweepInterval, cfg.Session.Retention)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str(xlog.FieldEvent, "server.listening").
			Str("addr", cfg.Server.Addr).
			Msg(api.Banner)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str(xlog.FieldEvent, "server.shutdown").Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})
	return g.Wait()
}

func closeQuietly(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logger := xlog.WithComponent("daemon")
		logger.Warn().Err(err).Str("resource", name).Msg("close failed")
	}
}
