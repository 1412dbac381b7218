package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if cfg.Timer.File != nil {
		t.Fatalf("expected empty config")
	}
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestLoadConfigDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := "[timer]\nfile = \"runs.csv\"\nport = 55354\nroute = true\n\n[stats]\niqr = true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Timer.File == nil || *cfg.Timer.File != "runs.csv" {
		t.Fatalf("unexpected file %v", cfg.Timer.File)
	}
	if cfg.Timer.Port == nil || *cfg.Timer.Port != 55354 {
		t.Fatalf("unexpected port %v", cfg.Timer.Port)
	}
	if cfg.Stats.IQR == nil || !*cfg.Stats.IQR {
		t.Fatalf("expected iqr")
	}
	if cfg.Timer.Host != nil {
		t.Fatalf("host should be unset")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[timer]\nfile = \"runs.csv\"\nhost = \"127.0.0.1\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SMTIMER_TIMER_FILE", "other.csv")
	t.Setenv("SMTIMER_STATS_WINDOW", "7")
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	logger, _ := test.NewNullLogger()
	cfg, err := Load(path, logger)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg.Timer.File != "other.csv" {
		t.Fatalf("env should win, got %s", *cfg.Timer.File)
	}
	if *cfg.Timer.Host != "127.0.0.1" {
		t.Fatalf("file value should survive, got %s", *cfg.Timer.Host)
	}
	if cfg.Stats.Window == nil || *cfg.Stats.Window != 7 {
		t.Fatalf("unexpected window %v", cfg.Stats.Window)
	}
}

func TestLoadEnvReadsDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("SMTIMER_TIMER_USB2SNES=true\n"), 0o644); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}
	t.Setenv("SMTIMER_TIMER_USB2SNES", "")
	_ = os.Unsetenv("SMTIMER_TIMER_USB2SNES")

	logger, _ := test.NewNullLogger()
	cfg, err := LoadEnv(logger, path)
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.Timer.Usb2Snes == nil || !*cfg.Timer.Usb2Snes {
		t.Fatalf("expected usb2snes from dotenv")
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "smtimer", "config.toml") {
		t.Fatalf("unexpected config path %s", got)
	}
	if got := DefaultLogPath(); got != filepath.Join("/data", "smtimer", "transitions.csv") {
		t.Fatalf("unexpected log path %s", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "smtimer", "smtimer.db") {
		t.Fatalf("unexpected db path %s", got)
	}
}
