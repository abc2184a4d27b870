package main

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/leadsheet/pkg/lead"
	"github.com/hazyhaar/leadsheet/pkg/store"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LEADSHEET_ADDR", "LEADSHEET_LOG_LEVEL", "LEADSHEET_STORE_DRIVER", "LEADSHEET_STORE_DSN"} {
		t.Setenv(k, "")
	}
	old := envFiles
	envFiles = nil
	t.Cleanup(func() { envFiles = old })
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), discard())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":8420" || cfg.Store.Driver != store.DriverSQLite || cfg.Ingest.ChunkSize != 100 {
		t.Errorf("defaults = %+v", cfg)
	}
	if cfg.Ingest.IntakeBucket != lead.BucketIntake || cfg.Ingest.FreshStatus != lead.StatusFresh {
		t.Errorf("ingest defaults = %+v", cfg.Ingest)
	}
	if !cfg.Clean.RemoveEmpty || cfg.Clean.RemoveDashes {
		t.Errorf("clean defaults = %+v", cfg.Clean)
	}
}

func TestLoadConfig_YAMLKeepsUnsetDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := "addr: \":9000\"\nstore:\n  driver: postgres\n  dsn: postgres://leads@localhost/leads\nclean:\n  remove_dashes: true\n"
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(path, discard())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.Store.Driver != store.DriverPostgres {
		t.Errorf("cfg = %+v", cfg)
	}
	if !cfg.Clean.RemoveDashes || !cfg.Clean.RemoveApercu || cfg.Upload.MaxBytes != 32<<20 {
		t.Errorf("partial override lost defaults: %+v", cfg)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEADSHEET_ADDR", ":7000")
	t.Setenv("LEADSHEET_STORE_DSN", "/tmp/other.db")

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), discard())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":7000" || cfg.Store.DSN != "/tmp/other.db" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadConfig_EnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("LEADSHEET_LOG_LEVEL")
	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte("LEADSHEET_LOG_LEVEL=debug\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	envFiles = []string{envPath}
	t.Cleanup(func() { os.Unsetenv("LEADSHEET_LOG_LEVEL") })

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), discard())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogLevel != "debug" || parseLevel(cfg.LogLevel) != slog.LevelDebug {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
}

func TestLoadConfig_UnknownDriver(t *testing.T) {
	clearEnv(t)
	t.Setenv("LEADSHEET_STORE_DRIVER", "mysql")
	_, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), discard())
	if !errors.Is(err, store.ErrUnknownDriver) {
		t.Errorf("err = %v, want ErrUnknownDriver", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{"debug": slog.LevelDebug, "WARN": slog.LevelWarn, "error": slog.LevelError, "bogus": slog.LevelInfo, "": slog.LevelInfo}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
