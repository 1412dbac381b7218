// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Timer TimerConfig `toml:"timer" envPrefix:"TIMER_"`
	Stats StatsConfig `toml:"stats" envPrefix:"STATS_"`
}

// TimerConfig maps live timer settings.
type TimerConfig struct {
	File     *string `toml:"file" env:"FILE"`
	Rooms    *string `toml:"rooms" env:"ROOMS"`
	Doors    *string `toml:"doors" env:"DOORS"`
	DB       *string `toml:"db" env:"DB"`
	Route    *bool   `toml:"route" env:"ROUTE"`
	Usb2Snes *bool   `toml:"usb2snes" env:"USB2SNES"`
	Host     *string `toml:"host" env:"HOST"`
	Port     *int    `toml:"port" env:"PORT"`
	Listen   *string `toml:"listen" env:"LISTEN"`
	Metrics  *bool   `toml:"metrics" env:"METRICS"`
	DebugLog *string `toml:"debug-log" env:"DEBUG_LOG"`
}

// StatsConfig maps offline statistics settings.
type StatsConfig struct {
	IQR        *bool   `toml:"iqr" env:"IQR"`
	MostRecent *bool   `toml:"most-recent" env:"MOST_RECENT"`
	Splits     *string `toml:"splits" env:"SPLITS"`
	Window     *int    `toml:"window" env:"WINDOW"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Merge returns base with every value set in over replacing it.
func Merge(base, over FileConfig) FileConfig {
	t, o := &base.Timer, over.Timer
	pick(&t.File, o.File)
	pick(&t.Rooms, o.Rooms)
	pick(&t.Doors, o.Doors)
	pick(&t.DB, o.DB)
	pick(&t.Route, o.Route)
	pick(&t.Usb2Snes, o.Usb2Snes)
	pick(&t.Host, o.Host)
	pick(&t.Port, o.Port)
	pick(&t.Listen, o.Listen)
	pick(&t.Metrics, o.Metrics)
	pick(&t.DebugLog, o.DebugLog)

	st, ost := &base.Stats, over.Stats
	pick(&st.IQR, ost.IQR)
	pick(&st.MostRecent, ost.MostRecent)
	pick(&st.Splits, ost.Splits)
	pick(&st.Window, ost.Window)
	return base
}

func pick[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}
