// Package segment finds runs of consecutive route transitions in the
// history and computes their statistics.
package segment

import (
	"fmt"

	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/route"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// ErrRoomNotInRoute is returned when a split names a room the route does
// not visit.
var ErrRoomNotInRoute = route.ErrNotFound

// Segment is a contiguous part of a route.
type Segment struct {
	ids []transition.ID
}

// New returns a segment over ids.
func New(ids ...transition.ID) Segment {
	return Segment{ids: append([]transition.ID(nil), ids...)}
}

// FromRoute returns the part of r from start to end, inclusive.
func FromRoute(r *route.Route, start, end transition.ID) Segment {
	var ids []transition.ID
	in := false
	for _, id := range r.IDs() {
		if id.Equal(start) {
			in = true
		}
		if in {
			ids = append(ids, id)
		}
		if id.Equal(end) {
			break
		}
	}
	return Segment{ids: ids}
}

// IDs returns the transitions of the segment.
func (s Segment) IDs() []transition.ID {
	return s.ids
}

// Len returns the number of transitions.
func (s Segment) Len() int {
	return len(s.ids)
}

// Start is the first transition.
func (s Segment) Start() transition.ID {
	return s.ids[0]
}

// End is the last transition.
func (s Segment) End() transition.ID {
	return s.ids[len(s.ids)-1]
}

// Slice returns the transitions in [i, j), clamped to the segment.
func (s Segment) Slice(i, j int) Segment {
	j = min(j, len(s.ids))
	i = min(i, j)
	return Segment{ids: s.ids[i:j:j]}
}

// ExtendTo appends id.
func (s *Segment) ExtendTo(id transition.ID) {
	s.ids = append(s.ids, id)
}

// Contains reports whether id is part of the segment.
func (s Segment) Contains(id transition.ID) bool {
	for _, other := range s.ids {
		if other.Equal(id) {
			return true
		}
	}
	return false
}

// ID identifies the segment by its boundaries.
func (s Segment) ID() string {
	if len(s.ids) == 0 {
		return "[]:[]"
	}
	return fmt.Sprintf("[%s]:[%s]", keyString(s.Start()), keyString(s.End()))
}

func keyString(id transition.ID) string {
	k := id.Key()
	return fmt.Sprintf("%04x:%04x:%04x:%s:%s", k.Room, k.Entry, k.Exit, k.Items, k.Beams)
}

// Name is the start room, or "start to end" when they differ.
func (s Segment) Name() string {
	if len(s.ids) == 0 {
		return ""
	}
	if s.Start().Room == s.End().Room {
		return s.Start().Room.Name
	}
	return fmt.Sprintf("%s to %s", s.Start().Room.Name, s.End().Room.Name)
}

func (s Segment) String() string {
	return s.Name()
}

// Attempt is one run through a segment.
type Attempt struct {
	Segment     Segment
	Transitions []transition.Transition
	Time        transition.Time
}

// NewAttempt returns an empty attempt. Its time starts out real.
func NewAttempt() *Attempt {
	return &Attempt{Time: transition.Time{DoorTimeIsReal: true}}
}

// Append extends the attempt with t.
func (a *Attempt) Append(t transition.Transition) {
	a.Segment.ExtendTo(t.ID)
	a.Transitions = append(a.Transitions, t)
	a.Time = a.Time.Add(t.Time)
}

// Len returns the number of transitions in the attempt.
func (a *Attempt) Len() int {
	return len(a.Transitions)
}

// Attempts are the completed runs of a segment with statistics over their
// summed times.
type Attempts struct {
	history.Series
	Attempts []*Attempt
}

// Append records a completed run.
func (a *Attempts) Append(attempt *Attempt) {
	a.Attempts = append(a.Attempts, attempt)
	a.Add(attempt.Time)
}

// Len returns the number of completed runs.
func (a *Attempts) Len() int {
	return len(a.Attempts)
}

// FindInHistory returns every run through seg in h. A run starts at any
// occurrence of the first transition and must be followed by the rest of
// the segment without interruption.
func FindInHistory(seg Segment, h *history.History) *Attempts {
	out := &Attempts{}
	if seg.Len() == 0 {
		return out
	}
	all := h.All()
	for _, start := range h.IndexesOf(seg.Start()) {
		attempt := NewAttempt()
		next := 0
		for idx := start; idx < len(all) && next < seg.Len(); idx++ {
			t := all[idx]
			if !t.ID.Equal(seg.ids[next]) {
				break
			}
			attempt.Append(t)
			next++
		}
		if next == seg.Len() {
			out.Append(attempt)
		}
	}
	return out
}
