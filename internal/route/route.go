// Package route tracks the canonical order of transitions in a full run.
package route

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// ErrNotFound is returned when a room does not occur in the route often
// enough.
var ErrNotFound = errors.New("room not found in route")

// IsCeresEscape reports whether id is the elevator ride off Ceres.
func IsCeresEscape(id transition.ID) bool {
	return id.Room.Name == rooms.CeresElevator && id.ExitRoom().Name == rooms.LandingSite
}

// IsFinalTransition reports whether id is the walk to the ship.
func IsFinalTransition(id transition.ID) bool {
	return id.ExitDoor.IsNull() && id.Room.Name == rooms.LandingSite
}

// Recorder is implemented by Route and Dummy.
type Recorder interface {
	Record(id transition.ID)
	Complete() bool
	Contains(id transition.ID) bool
	Len() int
}

// Route is the ordered list of transitions of one full run. Transitions
// that do not continue from the exit of the previous one are rejected.
type Route struct {
	ids      []transition.ID
	index    map[transition.Key]int
	seen     map[transition.Key]bool
	next     rooms.Room
	started  bool
	complete bool
	quiet    bool
	log      logrus.FieldLogger
}

// New returns an empty route.
func New(log logrus.FieldLogger) *Route {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Route{
		index: make(map[transition.Key]int),
		seen:  make(map[transition.Key]bool),
		log:   log,
	}
}

// Build replays h in recording order until the route is complete.
func Build(h *history.History, log logrus.FieldLogger) *Route {
	r := New(log)
	for _, t := range h.All() {
		r.Record(t.ID)
		if r.complete {
			break
		}
	}
	return r
}

// Quiet stops the route from logging rejected transitions.
func (r *Route) Quiet() {
	r.quiet = true
}

// Record offers id to the route. Only the first occurrence of an
// identity is considered.
func (r *Route) Record(id transition.ID) {
	key := id.Key()
	if !r.seen[key] {
		r.seen[key] = true
		if !r.started || id.Room == r.next {
			r.index[key] = len(r.ids)
			r.ids = append(r.ids, id)
			r.next = id.ExitRoom()
			r.started = true
		} else if !r.quiet {
			r.log.WithField("transition", id.String()).Warn("unexpected transition")
		}
	}
	if IsFinalTransition(id) {
		r.complete = true
	}
}

// Complete reports whether the final transition was recorded.
func (r *Route) Complete() bool {
	return r.complete
}

// Contains reports whether id is part of the route.
func (r *Route) Contains(id transition.ID) bool {
	_, ok := r.index[id.Key()]
	return ok
}

// IndexOf returns the position of id, or -1.
func (r *Route) IndexOf(id transition.ID) int {
	if i, ok := r.index[id.Key()]; ok {
		return i
	}
	return -1
}

// Len returns the number of transitions in the route.
func (r *Route) Len() int {
	return len(r.ids)
}

// At returns the i-th transition.
func (r *Route) At(i int) transition.ID {
	return r.ids[i]
}

// IDs returns the transitions in order.
func (r *Route) IDs() []transition.ID {
	return r.ids
}

// FindNthByRoom returns the n-th transition (1-based) through room.
func (r *Route) FindNthByRoom(room rooms.Room, n int) (transition.ID, error) {
	for _, id := range r.ids {
		if id.Room == room {
			n--
			if n <= 0 {
				return id, nil
			}
		}
	}
	names := make([]string, len(r.ids))
	for i, id := range r.ids {
		names[i] = id.Room.Name
	}
	return transition.ID{}, fmt.Errorf("%w: could not find %s in route: %s", ErrNotFound, room.Name, strings.Join(names, ", "))
}

// Dummy is used when routing is disabled. It accepts everything, never
// completes and contains nothing.
type Dummy struct{}

func (Dummy) Record(transition.ID)        {}
func (Dummy) Complete() bool              { return false }
func (Dummy) Contains(transition.ID) bool { return false }
func (Dummy) Len() int                    { return 0 }
