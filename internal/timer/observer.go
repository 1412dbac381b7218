package timer

import (
	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// Observer receives the events a RoomTimer derives from polled states.
// Methods are called from the polling goroutine and must not block for
// long.
type Observer interface {
	StateChanged(c state.Change)
	Transitioned(t transition.Transition)
	Reset(id transition.ID)
	PresetLoaded(s state.State, c state.Change)
}

// Funcs adapts plain functions to Observer. Nil fields are skipped.
type Funcs struct {
	OnStateChanged func(state.Change)
	OnTransitioned func(transition.Transition)
	OnReset        func(transition.ID)
	OnPresetLoaded func(state.State, state.Change)
}

func (f Funcs) StateChanged(c state.Change) {
	if f.OnStateChanged != nil {
		f.OnStateChanged(c)
	}
}

func (f Funcs) Transitioned(t transition.Transition) {
	if f.OnTransitioned != nil {
		f.OnTransitioned(t)
	}
}

func (f Funcs) Reset(id transition.ID) {
	if f.OnReset != nil {
		f.OnReset(id)
	}
}

func (f Funcs) PresetLoaded(s state.State, c state.Change) {
	if f.OnPresetLoaded != nil {
		f.OnPresetLoaded(s, c)
	}
}
