package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// EnvPrefix prefixes every environment variable read by LoadEnv.
const EnvPrefix = "SMTIMER_"

// LoadEnv loads dotenv files into the environment, when present, and
// parses SMTIMER_* variables. Only variables that are set produce
// non-nil fields.
func LoadEnv(log logrus.FieldLogger, dotenv ...string) (FileConfig, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(dotenv) == 0 {
		dotenv = []string{".env"}
	}
	if err := godotenv.Load(dotenv...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no .env file loaded: %v", err)
		} else {
			return FileConfig{}, fmt.Errorf("failed to load .env: %w", err)
		}
	} else {
		log.Debug("loaded environment variables from .env file")
	}

	var cfg FileConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return FileConfig{}, fmt.Errorf("failed to parse config from environment: %w", err)
	}
	return cfg, nil
}

// Load reads the TOML file at path and overlays the environment on it.
func Load(path string, log logrus.FieldLogger) (FileConfig, error) {
	file, err := LoadConfig(path)
	if err != nil {
		return FileConfig{}, err
	}
	fromEnv, err := LoadEnv(log)
	if err != nil {
		return FileConfig{}, err
	}
	return Merge(file, fromEnv), nil
}
