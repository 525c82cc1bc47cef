// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config loads qrattend configuration from YAML and the environment.
package config

import "time"

// AppConfig is the complete runtime configuration.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server" envPrefix:"SERVER_"`
	Log       LogConfig       `yaml:"log" envPrefix:"LOG_"`
	Auth      AuthConfig      `yaml:"auth" envPrefix:"AUTH_"`
	Session   SessionConfig   `yaml:"session" envPrefix:"SESSION_"`
	Ledger    LedgerConfig    `yaml:"ledger" envPrefix:"LEDGER_"`
	Events    EventsConfig    `yaml:"events" envPrefix:"EVENTS_"`
	QR        QRConfig        `yaml:"qr" envPrefix:"QR_"`
	Telemetry TelemetryConfig `yaml:"telemetry" envPrefix:"TELEMETRY_"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// CORSOrigins lists allowed browser origins; "*" allows any.
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`

	// RateLimitRPM caps requests per minute per client IP. Zero disables limiting.
	RateLimitRPM int `yaml:"rate_limit_rpm" env:"RATE_LIMIT_RPM"`

	EnableMetrics bool `yaml:"enable_metrics" env:"ENABLE_METRICS"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
}

type AuthConfig struct {
	// Secret is the HS256 key shared with the identity provider.
	Secret string `yaml:"secret" env:"SECRET"`
	// Issuer, when set, must match the iss claim.
	Issuer string `yaml:"issuer" env:"ISSUER"`
}

type SessionConfig struct {
	Backend string `yaml:"backend" env:"BACKEND"`

	// Retention keeps expired entries around so late redemptions report expiry.
	Retention     time.Duration `yaml:"retention" env:"RETENTION"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"SWEEP_INTERVAL"`

	RedisAddr      string `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPassword  string `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB        int    `yaml:"redis_db" env:"REDIS_DB"`
	RedisKeyPrefix string `yaml:"redis_key_prefix" env:"REDIS_KEY_PREFIX"`

	// BadgerPath is the on-disk directory; empty runs Badger in memory.
	BadgerPath string `yaml:"badger_path" env:"BADGER_PATH"`
}

type LedgerConfig struct {
	Backend       string `yaml:"backend" env:"BACKEND"`
	SqlitePath    string `yaml:"sqlite_path" env:"SQLITE_PATH"`
	PostgresDSN   string `yaml:"postgres_dsn" env:"POSTGRES_DSN"`
	MongoURI      string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase string `yaml:"mongo_database" env:"MONGO_DATABASE"`
}

type EventsConfig struct {
	// AMQPURL enables attendance.marked publishing when set.
	AMQPURL string `yaml:"amqp_url" env:"AMQP_URL"`
	Queue   string `yaml:"queue" env:"QUEUE"`
}

type QRConfig struct {
	Size     int    `yaml:"size" env:"SIZE"`
	Recovery string `yaml:"recovery" env:"RECOVERY"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	Exporter     string  `yaml:"exporter" env:"EXPORTER"`
	Endpoint     string  `yaml:"endpoint" env:"ENDPOINT"`
	SamplingRate float64 `yaml:"sampling_rate" env:"SAMPLING_RATE"`
	Environment  string  `yaml:"environment" env:"ENVIRONMENT"`
}

// Default returns the configuration used when nothing is overridden.
func Default() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Addr:            ":5000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitRPM:    600,
			EnableMetrics:   true,
		},
		Log: LogConfig{Level: "info"},
		Session: SessionConfig{
			Retention:      10 * time.Minute,
			SweepInterval:  time.Minute,
			RedisAddr:      "localhost:6379",
			RedisKeyPrefix: "qrattend:session:",
		},
		Ledger: LedgerConfig{
			SqlitePath:    "qrattend.db",
			MongoDatabase: "qrattend",
		},
		QR: QRConfig{Size: 256, Recovery: "medium"},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "development",
		},
	}
}
