// Package timer turns a stream of decoded game states into room
// transitions, resets and preset loads.
package timer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// Options configures a RoomTimer.
type Options struct {
	Logger logrus.FieldLogger
	// Now stamps transitions. Defaults to time.Now.
	Now func() time.Time
	// OnTick runs before every read, on the polling goroutine. It is used
	// to drain external notification queues and must not block.
	OnTick func()
}

// RoomTimer is the polling state machine. All of its fields are owned by
// the goroutine calling Poll, Step or Run.
type RoomTimer struct {
	source    state.Source
	reg       *rooms.Registry
	log       logrus.FieldLogger
	now       func() time.Time
	onTick    func()
	observers []Observer

	currentRoom          rooms.Room
	lastRoom             rooms.Room
	mostRecentDoor       rooms.Door
	lastMostRecentDoor   rooms.Door
	ignoreNextTransition bool
	prev                 state.State
}

// New returns a timer reading from source. reg resolves the Ceres escape
// door and learns doors missing from the table.
func New(source state.Source, reg *rooms.Registry, opts Options) *RoomTimer {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &RoomTimer{
		source:             source,
		reg:                reg,
		log:                opts.Logger,
		now:                opts.Now,
		onTick:             opts.OnTick,
		currentRoom:        rooms.NullRoom,
		lastRoom:           rooms.NullRoom,
		mostRecentDoor:     rooms.NullDoor,
		lastMostRecentDoor: rooms.NullDoor,
		prev:               state.NullState,
	}
}

// Subscribe adds an observer. It must be called before polling starts.
func (t *RoomTimer) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

// Run polls until the source is closed or ctx is cancelled. A closed
// source is not an error.
func (t *RoomTimer) Run(ctx context.Context) error {
	for {
		err := t.Poll(ctx)
		switch {
		case err == nil:
		case errors.Is(err, state.ErrClosed):
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			t.log.WithError(err).Debug("state read failed")
		}
	}
}

// Poll reads one state and processes it.
func (t *RoomTimer) Poll(ctx context.Context) error {
	if t.onTick != nil {
		t.onTick()
	}
	s, err := t.source.ReadState(ctx)
	if err != nil {
		return err
	}
	t.Step(s)
	return nil
}

// Step processes s as the next polled state.
func (t *RoomTimer) Step(s state.State) {
	change := state.Classify(t.prev, s, t.currentRoom)
	for _, o := range t.observers {
		o.StateChanged(change)
	}

	// A door crossed between two known rooms is learned when the table
	// does not list it.
	if change.IsRoomChange && change.TransitionFinished && !change.IsReset &&
		s.Door.IsUnknown() && !s.Door.IsNull() && !t.currentRoom.IsNull() {
		s.Door = t.reg.LearnDoor(s.Door.ID, t.currentRoom, s.Room)
	}

	if change.IsRoomChange || change.ReachedShip {
		t.handleRoomChange(s)
	}

	if change.IsReset {
		t.handleReset(s, change)
	} else if change.TransitionFinished {
		if !t.ignoreNextTransition {
			switch {
			case s.SegRT < t.prev.SegRT:
				t.log.WithFields(change.Fields()).Infof("Ignoring transition from %s to %s (segment timer went backward from %s to %s)",
					t.lastRoom, s.Room, t.prev.SegRT, s.SegRT)
			case s.LastDoorLag == 0:
				t.log.WithFields(change.Fields()).Info("Transition not yet finished? (door time is 0'00)")
			default:
				t.handleTransition(s, change)
			}
		}
		t.ignoreNextTransition = false
	}

	if change.EscapedCeres {
		t.handleEscapedCeres(s, change)
	}
	if change.ReachedShip {
		t.handleReachedShip(s, change)
	}

	presetLoaded := false
	if change.IsLoadingPreset {
		t.log.WithField("preset", fmt.Sprintf("%04x", s.LoadPreset)).Infof("Loading preset %04x; next transition may be wrong", s.LoadPreset)
		presetLoaded = true
	}

	if !t.ignoreNextTransition && change.IsPlaying && change.IsPreset {
		switch {
		case change.IsProgramStart:
			t.log.Info("Ignoring next transition due to starting in a room where a preset was loaded")
			t.ignoreNextTransition = true
			presetLoaded = true
		case change.IsReset:
			t.log.Info("Ignoring next transition due to loading a preset")
			t.ignoreNextTransition = true
			presetLoaded = true
		}
	}

	if presetLoaded {
		for _, o := range t.observers {
			o.PresetLoaded(s, change)
		}
	}

	t.prev = s
}

func (t *RoomTimer) handleReset(s state.State, change state.Change) {
	if !t.ignoreNextTransition {
		id, err := transition.NewID(t.lastRoom, t.lastMostRecentDoor, rooms.NullDoor, s.Items, s.Beams)
		if err != nil {
			t.log.WithFields(change.Fields()).WithError(err).Warn("failed to build reset id")
		} else {
			for _, o := range t.observers {
				o.Reset(id)
			}
		}
	}

	// A reset into the middle of a door animation means the next
	// transition was already counted.
	if s.Mode == state.ModeDoorTransition {
		t.ignoreNextTransition = true
	}
	if change.TransitionFinished {
		t.log.WithFields(change.Fields()).Info("Reset detected during door transition")
	}

	t.currentRoom = rooms.NullRoom
	t.mostRecentDoor = rooms.NullDoor
	t.handleRoomChange(s)
}

func (t *RoomTimer) handleRoomChange(s state.State) {
	if s.Door.IsUnknown() {
		t.log.WithFields(logrus.Fields{
			"door": fmt.Sprintf("%04x", s.Door.ID),
			"from": fmt.Sprintf("%s (%04x)", t.currentRoom, t.currentRoom.ID),
			"to":   fmt.Sprintf("%s (%04x)", s.Room, s.Room.ID),
		}).Warn("unknown door")
	}
	t.lastRoom = t.currentRoom
	t.currentRoom = s.Room
	t.lastMostRecentDoor = t.mostRecentDoor
	t.mostRecentDoor = s.Door
}

func (t *RoomTimer) handleTransition(s state.State, change state.Change) {
	if t.lastRoom != t.lastMostRecentDoor.Exit {
		t.log.WithFields(change.Fields()).Infof("Ignoring transition (entry door leads to %s, not %s)", t.lastMostRecentDoor.Exit, t.lastRoom)
		return
	}
	if t.lastRoom != t.mostRecentDoor.Entry {
		t.log.WithFields(change.Fields()).Infof("Ignoring transition (exit door is located in room %s, not %s)", t.mostRecentDoor.Entry, t.lastRoom)
		return
	}
	t.emit(t.lastRoom, t.lastMostRecentDoor, t.mostRecentDoor, s, s.LastDoorLag, change)
}

func (t *RoomTimer) handleEscapedCeres(s state.State, change state.Change) {
	t.emit(s.Room, s.Door, t.reg.Door(rooms.CeresEscapeDoor), s, 0, change)
}

func (t *RoomTimer) handleReachedShip(s state.State, change state.Change) {
	t.emit(s.Room, s.Door, rooms.NullDoor, s, 0, change)
}

func (t *RoomTimer) emit(room rooms.Room, entry, exit rooms.Door, s state.State, doorLag frames.Count, change state.Change) {
	id, err := transition.NewID(room, entry, exit, s.Items, s.Beams)
	if err != nil {
		t.log.WithFields(change.Fields()).WithError(err).Warn("failed to build transition id")
		return
	}
	tr := transition.Transition{
		Timestamp: t.now(),
		ID:        id,
		Time: transition.Time{
			GameTime:       s.LastGametimeRoom,
			RealTime:       s.LastRealtimeRoom,
			RoomLag:        s.LastRoomLag,
			DoorLag:        doorLag,
			RealTimeDoor:   s.LastRealtimeDoor,
			DoorTimeIsReal: true,
		},
	}
	for _, o := range t.observers {
		o.Transitioned(tr)
	}
}

// CurrentRoom is the room the timer believes the player is in.
func (t *RoomTimer) CurrentRoom() rooms.Room {
	return t.currentRoom
}
