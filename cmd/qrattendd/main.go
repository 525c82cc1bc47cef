// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command qrattendd serves the QR attendance API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ManuGH/qrattend/internal/config"
	xlog "github.com/ManuGH/qrattend/internal/log"
	"github.com/ManuGH/qrattend/internal/version"
)

const serviceName = "qrattend"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "token":
			os.Exit(runTokenCLI(os.Args[2:], os.Stdout, os.Stderr))
		case "storage":
			os.Exit(runStorageCLI(os.Args[2:]))
		case "healthcheck":
			os.Exit(runHealthcheckCLI(os.Args[2:]))
		}
	}

	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	// Safe defaults until the configuration is loaded
	xlog.Configure(xlog.Config{
		Level:   "info",
		Service: serviceName,
		Version: version.Version,
	})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path := strings.TrimSpace(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(xlog.FieldEvent, "config.load_failed").
			Str("config_path", path).
			Msg("failed to load configuration")
	}

	xlog.Reconfigure(xlog.Config{
		Level:   cfg.Log.Level,
		Service: serviceName,
		Version: version.Version,
	})
	logger = xlog.WithComponent("daemon")

	source := "env+defaults"
	if path != "" {
		source = "file"
	}
	logger.Info().
		Str(xlog.FieldEvent, "config.loaded").
		Str("source", source).
		Str("session_backend", cfg.Session.Backend).
		Str("ledger_backend", cfg.Ledger.Backend).
		Msg("configuration loaded")

	if err := run(ctx, cfg); err != nil {
		logger.Fatal().Err(err).Str(xlog.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
	}
	logger.Info().Str(xlog.FieldEvent, "daemon.stopped").Msg("shutdown complete")
}
