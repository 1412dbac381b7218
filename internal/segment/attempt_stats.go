package segment

import (
	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// TransitionAttemptStats are the history statistics of one transition at
// the moment it was added to a live attempt.
type TransitionAttemptStats struct {
	Attempts    *history.Attempts
	NumAttempts int
	P75         frames.Count
	P50         frames.Count
	P25         frames.Count
	P0          frames.Count
}

func newTransitionAttemptStats(id transition.ID, h *history.History) TransitionAttemptStats {
	a := h.Get(id)
	if a == nil {
		return TransitionAttemptStats{Attempts: &history.Attempts{ID: id}}
	}
	s := TransitionAttemptStats{Attempts: a, NumAttempts: a.Len()}
	s.P75, _ = a.TotalRealTimes.Percentile(75)
	s.P50, _ = a.TotalRealTimes.Median()
	s.P25, _ = a.TotalRealTimes.Percentile(25)
	if a.TotalRealTimes.Count() > 0 {
		s.P0 = a.TotalRealTimes.Best()
	}
	return s
}

// AttemptStats follow a live attempt through a segment. Every Append
// snapshots the statistics of the new transition and of every previous
// run through the attempt so far.
type AttemptStats struct {
	History     *history.History
	Transitions []TransitionAttemptStats
	SegAttempts *Attempts
	NumAttempts int
	P75         frames.Count
	P50         frames.Count
	P25         frames.Count
	P0          frames.Count
}

// NewAttemptStats returns empty statistics over h.
func NewAttemptStats(h *history.History) *AttemptStats {
	return &AttemptStats{History: h, SegAttempts: &Attempts{}}
}

// Append adds t, which must already be the last transition of current.
func (s *AttemptStats) Append(t transition.Transition, current *Attempt) {
	s.Transitions = append(s.Transitions, newTransitionAttemptStats(t.ID, s.History))
	s.SegAttempts = FindInHistory(current.Segment, s.History)

	times := &s.SegAttempts.TotalRealTimes
	s.NumAttempts = s.SegAttempts.Len()
	s.P75, s.P50, s.P25, s.P0 = 0, 0, 0, 0
	if times.Count() > 0 {
		s.P75, _ = times.Percentile(75)
		s.P50, _ = times.Median()
		s.P25, _ = times.Percentile(25)
		s.P0 = times.Best()
	}
}
