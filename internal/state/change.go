package state

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/rooms"
)

// Change is the set of facts derived from two consecutive states. Any
// number of them can hold on the same tick.
type Change struct {
	Prev State
	Cur  State

	IsRoomChange       bool
	IsProgramStart     bool
	TransitionFinished bool
	EscapedCeres       bool
	ReachedShip        bool
	IsReset            bool
	IsPreset           bool
	IsLoadingPreset    bool
	DoorChanged        bool
	GameStateChanged   bool
	IsPlaying          bool
}

// Classify compares cur against prev. currentRoom is the room the timer
// currently believes the player is in.
func Classify(prev, cur State, currentRoom rooms.Room) Change {
	c := Change{Prev: prev, Cur: cur}
	c.IsRoomChange = cur.Mode == ModeNormalGameplay && currentRoom != cur.Room
	c.IsProgramStart = c.IsRoomChange && currentRoom.IsNull()
	c.TransitionFinished = cur.Mode == ModeNormalGameplay && prev.Mode == ModeDoorTransition
	c.EscapedCeres = cur.Mode == ModeStartOfCeresCutscene &&
		prev.Mode == ModeNormalGameplay &&
		cur.Room.Name == rooms.CeresElevator
	c.ReachedShip = cur.ReachedShip && !prev.ReachedShip
	c.IsReset = cur.IGT < prev.IGT
	c.IsPreset = IsPreset(cur)
	c.IsLoadingPreset = prev.LoadPreset != cur.LoadPreset && cur.LoadPreset != 0
	c.DoorChanged = prev.Door != cur.Door
	c.GameStateChanged = prev.Mode != cur.Mode
	c.IsPlaying = cur.Mode.IsPlaying()
	return c
}

// IsPreset guesses whether s was produced by loading a practice preset
// rather than by playing into the room. The heuristic is known to be
// incomplete.
func IsPreset(s State) bool {
	if s.Mode != ModeNormalGameplay {
		return false
	}
	// The room counter is legitimately zero when the Ceres cutscene starts.
	if s.Room.Name == rooms.CeresElevator {
		return false
	}
	// The Tourian escape preset does not clear the last room counter.
	if s.Room.Name == rooms.MotherBrain && s.LastRealtimeRoom <= frames.Count(16) {
		return true
	}
	return s.LastRealtimeRoom == 0
}

// Description returns one human-readable line per notable fact.
func (c Change) Description() []string {
	var lines []string
	s := c.Cur
	switch {
	case c.IsProgramStart:
		lines = append(lines, fmt.Sprintf("Starting in room %s at %s, door=%s", s.Room, s.IGT, s.Door))
	case c.IsRoomChange && c.TransitionFinished:
		lines = append(lines, fmt.Sprintf("Transition to %s (%x) at %s using door %s", s.Room, s.Room.ID, s.IGT, s.Door))
	case c.ReachedShip:
		lines = append(lines, fmt.Sprintf("Reached ship at %s", s.IGT))
	case c.IsRoomChange:
		lines = append(lines, fmt.Sprintf("Room changed to %s (%x) at %s without using a door", s.Room, s.Room.ID, s.IGT))
	}
	if c.IsReset {
		lines = append(lines, fmt.Sprintf("Reset detected to %s", s.IGT))
	}
	if c.DoorChanged {
		lines = append(lines, fmt.Sprintf("Door changed to %s at %s", s.Door, s.IGT))
	}
	if c.GameStateChanged {
		lines = append(lines, fmt.Sprintf("Game state changed to %s at %s", s.Mode, s.IGT))
	}
	return lines
}

// Fields describes the change flags, and both states, for structured logs.
func (c Change) Fields() logrus.Fields {
	f := logrus.Fields{
		"room_change":         c.IsRoomChange,
		"program_start":       c.IsProgramStart,
		"transition_finished": c.TransitionFinished,
		"escaped_ceres":       c.EscapedCeres,
		"reached_ship":        c.ReachedShip,
		"reset":               c.IsReset,
		"preset":              c.IsPreset,
		"loading_preset":      c.IsLoadingPreset,
		"playing":             c.IsPlaying,
	}
	for k, v := range c.Prev.Fields() {
		f["prev_"+k] = v
	}
	for k, v := range c.Cur.Fields() {
		f["cur_"+k] = v
	}
	return f
}
