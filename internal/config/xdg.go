// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultLogPath returns the default transition log.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), "smtimer", "transitions.csv")
}

// DefaultRoomsPath returns the default room table. The built-in table is
// used when it does not exist.
func DefaultRoomsPath() string {
	return filepath.Join(XDGConfigHome(), "smtimer", "rooms.json")
}

// DefaultDoorsPath returns the default door table.
func DefaultDoorsPath() string {
	return filepath.Join(XDGConfigHome(), "smtimer", "doors.json")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), "smtimer", "smtimer.db")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "smtimer", "config.toml")
}
