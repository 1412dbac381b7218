// Package model defines shared data structures.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/smtimer/internal/transition"
)

// Config defines live timer settings.
type Config struct {
	LogPath   string
	RoomsPath string
	DoorsPath string
	DBPath    string
	Route     bool
	Usb2Snes  bool
	Rebuild   bool
	Host      string
	Port      int
	WebAddr   string
	Metrics   bool
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Route      bool
	StartRoom  string
	EndRoom    string
	Items      bool
	Beams      bool
	IQR        bool
	MostRecent bool
	Segments   []string
	Splits     []string
	SplitsPath string
	Brief      bool
	Window     int
}

// Session is one run of a live timer.
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
	EndedAt   time.Time
	LogPath   string
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	Session
	Transitions int
	Resets      int
	RealTime    time.Duration
}

// ResetCount is the number of stored resets for one reset identity.
type ResetCount struct {
	Key   transition.Key
	Count int
}
