// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/ManuGH/qrattend/internal/validate"
)

// EnvPrefix namespaces every qrattend environment variable.
const EnvPrefix = "QRATTEND_"

// Backend names accepted in configuration.
var (
	SessionBackends = []string{"memory", "redis", "badger"}
	LedgerBackends  = []string{"memory", "sqlite", "postgres", "mongo"}
)

// legacyEnv holds the unprefixed variables older deployments set.
type legacyEnv struct {
	Port      string `env:"PORT"`
	MongoURL  string `env:"MONGO_URL"`
	JWTSecret string `env:"JWT_SECRET"`
}

// Load builds the configuration: defaults, then the optional YAML file at path,
// then environment variables, then validation.
func Load(path string) (AppConfig, error) {
	return load(path, nil)
}

// load takes an explicit environment for tests; nil means the process environment.
func load(path string, environ map[string]string) (AppConfig, error) {
	cfg := Default()
	// Backends stay empty until the end so legacy variables can pick one.
	cfg.Session.Backend = ""
	cfg.Ledger.Backend = ""

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return AppConfig{}, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	var legacy legacyEnv
	if err := env.ParseWithOptions(&legacy, env.Options{Environment: environ}); err != nil {
		return AppConfig{}, fmt.Errorf("parse env: %w", err)
	}
	if legacy.Port != "" {
		cfg.Server.Addr = ":" + legacy.Port
	}
	if legacy.MongoURL != "" {
		cfg.Ledger.MongoURI = legacy.MongoURL
	}
	if legacy.JWTSecret != "" {
		cfg.Auth.Secret = legacy.JWTSecret
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return AppConfig{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.Session.Backend == "" {
		cfg.Session.Backend = "memory"
	}
	if cfg.Ledger.Backend == "" {
		cfg.Ledger.Backend = "memory"
		if cfg.Ledger.MongoURI != "" {
			cfg.Ledger.Backend = "mongo"
		}
	}

	if err := Validate(cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// loadFile decodes a YAML file into cfg. Unknown keys are rejected.
func loadFile(path string, cfg *AppConfig) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}
	return nil
}

// Validate checks cfg and reports every invalid field at once.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("server.addr", cfg.Server.Addr)
	v.Positive("server.read_timeout", cfg.Server.ReadTimeout)
	v.Positive("server.write_timeout", cfg.Server.WriteTimeout)
	v.Positive("server.shutdown_timeout", cfg.Server.ShutdownTimeout)
	v.Range("server.rate_limit_rpm", cfg.Server.RateLimitRPM, 0, 1_000_000)

	v.OneOf("log.level", strings.ToLower(cfg.Log.Level), []string{"trace", "debug", "info", "warn", "error"})

	v.NotEmpty("auth.secret", cfg.Auth.Secret)

	v.NonNegative("session.retention", cfg.Session.Retention)
	v.NonNegative("session.sweep_interval", cfg.Session.SweepInterval)
	v.OneOf("session.backend", cfg.Session.Backend, SessionBackends)
	if cfg.Session.Backend == "redis" {
		v.NotEmpty("session.redis_addr", cfg.Session.RedisAddr)
		v.Range("session.redis_db", cfg.Session.RedisDB, 0, 15)
	}

	v.OneOf("ledger.backend", cfg.Ledger.Backend, LedgerBackends)
	switch cfg.Ledger.Backend {
	case "sqlite":
		v.NotEmpty("ledger.sqlite_path", cfg.Ledger.SqlitePath)
	case "postgres":
		v.NotEmpty("ledger.postgres_dsn", cfg.Ledger.PostgresDSN)
	case "mongo":
		v.URL("ledger.mongo_uri", cfg.Ledger.MongoURI, []string{"mongodb", "mongodb+srv"})
		v.NotEmpty("ledger.mongo_database", cfg.Ledger.MongoDatabase)
	}

	if cfg.Events.AMQPURL != "" {
		v.URL("events.amqp_url", cfg.Events.AMQPURL, []string{"amqp", "amqps"})
	}

	v.Range("qr.size", cfg.QR.Size, 64, 2048)
	v.OneOf("qr.recovery", strings.ToLower(cfg.QR.Recovery), []string{"low", "medium", "high", "highest"})

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.Fraction("telemetry.sampling_rate", cfg.Telemetry.SamplingRate)
	}

	return v.Err()
}
