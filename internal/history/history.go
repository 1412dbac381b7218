// Package history keeps every recorded transition together with running
// statistics per transition identity.
package history

import (
	"github.com/verte-zerg/smtimer/internal/stats"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// Series holds one statistics list per time dimension.
type Series struct {
	GameTimes      stats.List
	RealTimes      stats.List
	RoomLagTimes   stats.List
	DoorTimes      stats.List
	DoorRealTimes  stats.List
	TotalRealTimes stats.List
}

// Add appends every dimension of t.
func (s *Series) Add(t transition.Time) {
	s.GameTimes.Append(t.GameTime)
	s.RealTimes.Append(t.RealTime)
	s.RoomLagTimes.Append(t.RoomLag)
	s.DoorTimes.Append(t.DoorLag)
	s.DoorRealTimes.Append(t.RealTimeDoor)
	s.TotalRealTimes.Append(t.TotalRealTime())
}

// Attempts are all recorded traversals of one transition identity.
type Attempts struct {
	Series
	ID          transition.ID
	Transitions []transition.Transition
}

// Append records another traversal.
func (a *Attempts) Append(t transition.Transition) {
	a.Transitions = append(a.Transitions, t)
	a.Add(t.Time)
}

// Len returns the number of traversals.
func (a *Attempts) Len() int {
	return len(a.Transitions)
}

// History is the full record of a practice session and the logs it was
// loaded from. It is not safe for concurrent use.
type History struct {
	attempts  map[transition.Key]*Attempts
	order     []transition.Key
	all       []transition.Transition
	byKey     map[transition.Key][]int
	resets    map[transition.Key]int
	completed map[transition.Key]int
}

// New returns an empty history.
func New() *History {
	return &History{
		attempts:  make(map[transition.Key]*Attempts),
		byKey:     make(map[transition.Key][]int),
		resets:    make(map[transition.Key]int),
		completed: make(map[transition.Key]int),
	}
}

// Record appends t. Transitions replayed from a log do not count towards
// the completion counter used for success rates.
func (h *History) Record(t transition.Transition, fromFile bool) *Attempts {
	key := t.ID.Key()
	a, ok := h.attempts[key]
	if !ok {
		a = &Attempts{ID: t.ID}
		h.attempts[key] = a
		h.order = append(h.order, key)
	}
	a.Append(t)
	h.byKey[key] = append(h.byKey[key], len(h.all))
	h.all = append(h.all, t)
	if !fromFile {
		h.completed[key]++
	}
	return a
}

// RecordReset counts a reset under the reset identity id.
func (h *History) RecordReset(id transition.ID) {
	h.resets[id.Key()]++
}

// AddResets adds n previously persisted resets for key.
func (h *History) AddResets(key transition.Key, n int) {
	h.resets[key] += n
}

// ResetCount returns the number of resets recorded for id.
func (h *History) ResetCount(id transition.ID) int {
	return h.resets[id.Key()]
}

// CompletedCount returns the number of live completions of id.
func (h *History) CompletedCount(id transition.ID) int {
	return h.completed[id.Key()]
}

// SuccessRate is completions over attempts for the room entered through
// id's entry door, as a whole percentage.
func (h *History) SuccessRate(id transition.ID) int {
	resets := h.ResetCount(id.ResetID())
	completions := h.CompletedCount(id)
	if resets+completions == 0 {
		return 0
	}
	return completions * 100 / (resets + completions)
}

// Get returns the attempts for id, or nil.
func (h *History) Get(id transition.ID) *Attempts {
	return h.attempts[id.Key()]
}

// IDs returns every identity in the order it was first recorded.
func (h *History) IDs() []transition.ID {
	out := make([]transition.ID, len(h.order))
	for i, key := range h.order {
		out[i] = h.attempts[key].ID
	}
	return out
}

// All returns every transition in recording order.
func (h *History) All() []transition.Transition {
	return h.all
}

// IndexesOf returns the positions of id in All.
func (h *History) IndexesOf(id transition.ID) []int {
	return h.byKey[id.Key()]
}

// Len returns the number of distinct identities.
func (h *History) Len() int {
	return len(h.order)
}
