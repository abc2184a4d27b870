package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/leadsheet/pkg/clean"
	"github.com/hazyhaar/leadsheet/pkg/ingest"
	"github.com/hazyhaar/leadsheet/pkg/lead"
	"github.com/hazyhaar/leadsheet/pkg/store"
)

type config struct {
	Addr     string        `yaml:"addr"`
	LogLevel string        `yaml:"log_level"`
	Store    storeConfig   `yaml:"store"`
	Ingest   ingestConfig  `yaml:"ingest"`
	Clean    clean.Options `yaml:"clean"`
	Upload   uploadConfig  `yaml:"upload"`
}

type storeConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type ingestConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	IntakeBucket string `yaml:"intake_bucket"`
	FreshStatus  string `yaml:"fresh_status"`
}

type uploadConfig struct {
	MaxBytes    int64  `yaml:"max_bytes"`
	CSVEncoding string `yaml:"csv_encoding"`
}

func defaultConfig() config {
	return config{
		Addr:     ":8420",
		LogLevel: "info",
		Store:    storeConfig{Driver: store.DriverSQLite, DSN: "leads.db"},
		Ingest: ingestConfig{
			ChunkSize:    ingest.DefaultChunkSize,
			IntakeBucket: lead.BucketIntake,
			FreshStatus:  lead.StatusFresh,
		},
		Clean:  clean.DefaultOptions(),
		Upload: uploadConfig{MaxBytes: 32 << 20, CSVEncoding: "utf-8"},
	}
}

// envFiles are loaded in order when present. godotenv never overrides a
// variable that is already set, so the first file wins.
var envFiles = []string{".env.local", ".env"}

// loadConfig reads the YAML file at path over the defaults, then applies
// LEADSHEET_* environment overrides. A missing file means defaults.
func loadConfig(path string, logger *slog.Logger) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logger.Info("no config file, using defaults", "path", path)
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return cfg, err
	}
	applyEnv(&cfg)

	if cfg.Store.Driver != store.DriverSQLite && cfg.Store.Driver != store.DriverPostgres {
		return cfg, fmt.Errorf("%w: %q", store.ErrUnknownDriver, cfg.Store.Driver)
	}
	if cfg.Ingest.ChunkSize <= 0 {
		return cfg, fmt.Errorf("ingest.chunk_size must be positive, got %d", cfg.Ingest.ChunkSize)
	}
	return cfg, nil
}

func loadEnvFiles(files []string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

func applyEnv(cfg *config) {
	for env, dst := range map[string]*string{
		"LEADSHEET_ADDR":         &cfg.Addr,
		"LEADSHEET_LOG_LEVEL":    &cfg.LogLevel,
		"LEADSHEET_STORE_DRIVER": &cfg.Store.Driver,
		"LEADSHEET_STORE_DSN":    &cfg.Store.DSN,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
