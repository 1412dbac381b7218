package segment

import (
	"time"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/route"
	"github.com/verte-zerg/smtimer/internal/stats"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// CeresCutsceneTime is the fixed length of the cutscene row shown after
// the Ceres escape in per-room tables.
const CeresCutsceneTime = frames.Count(2951)

// DoorTimePerRoom estimates the door time the room timer cannot see.
const DoorTimePerRoom = frames.Count(120)

// TransitionStatsOptions select how per-room rows are computed.
type TransitionStatsOptions struct {
	// IQR makes Save P75-P25 instead of P50-Best.
	IQR          bool
	ExcludeDoors bool
	DoorsOnly    bool
}

// TransitionStats is one row of a per-room table.
type TransitionStats struct {
	Room           string
	N              int
	Best           frames.Count
	P25            frames.Count
	P50            frames.Count
	P75            frames.Count
	P90            frames.Count
	Save           frames.Count
	MostRecent     frames.Count
	SaveMostRecent frames.Count
	Items          string
	Beams          string
}

// NewTransitionStats computes the row for id from its attempts. Times are
// real time plus door lag unless opts says otherwise.
func NewTransitionStats(id transition.ID, a *history.Attempts, opts TransitionStatsOptions) TransitionStats {
	rts := a.RealTimes.Values()
	doors := a.DoorTimes.Values()
	times := make([]frames.Count, 0, len(rts))
	for i := range rts {
		var t frames.Count
		if !opts.DoorsOnly {
			t += rts[i]
		}
		if !opts.ExcludeDoors && i < len(doors) {
			t += doors[i]
		}
		times = append(times, t)
	}

	s := TransitionStats{
		Room:  id.Room.Name,
		N:     a.Len(),
		Items: id.Items,
		Beams: id.Beams,
	}
	if len(times) > 0 {
		s.Best = stats.Percentile(times, 0)
		s.P25 = stats.Percentile(times, 25)
		s.P50 = stats.Percentile(times, 50)
		s.P75 = stats.Percentile(times, 75)
		s.P90 = stats.Percentile(times, 90)
		s.MostRecent = times[len(times)-1]
	}
	s.finish(opts.IQR)
	return s
}

func (s *TransitionStats) finish(iqr bool) {
	if iqr {
		s.Save = s.P75 - s.P25
	} else {
		s.Save = s.P50 - s.Best
	}
	s.SaveMostRecent = max(s.MostRecent-s.P50, 0)
}

func constantStats(room string, n int, t frames.Count, iqr bool) TransitionStats {
	s := TransitionStats{Room: room, N: n, Best: t, P25: t, P50: t, P75: t, P90: t, MostRecent: t}
	s.finish(iqr)
	return s
}

// CeresCutsceneStats is the constant row that follows the Ceres escape.
func CeresCutsceneStats(id transition.ID, a *history.Attempts, iqr bool) TransitionStats {
	s := constantStats("Ceres Cutscene", a.Len(), CeresCutsceneTime, iqr)
	s.Items = id.Items
	s.Beams = id.Beams
	return s
}

// DoorStats is the constant row for the door time of numRooms rooms.
func DoorStats(numRooms int, iqr bool) TransitionStats {
	return constantStats("Uncounted door time", 0, frames.Count(numRooms)*DoorTimePerRoom, iqr)
}

// RouteStatsOptions bound and configure a per-room table.
type RouteStatsOptions struct {
	TransitionStatsOptions
	// StartRoom and EndRoom are room names. Rows begin at the first
	// transition through StartRoom and stop before EndRoom.
	StartRoom string
	EndRoom   string
}

// RouteStats returns one row per id present in h, the Ceres cutscene row
// where it applies, and a final uncounted-door row.
func RouteStats(ids []transition.ID, h *history.History, opts RouteStatsOptions) []TransitionStats {
	var out []TransitionStats
	printing := opts.StartRoom == ""
	numRooms := 0
	for _, id := range ids {
		if opts.StartRoom == id.Room.Name {
			printing = true
		}
		if opts.EndRoom != "" && opts.EndRoom == id.Room.Name {
			break
		}
		if !printing {
			continue
		}
		a := h.Get(id)
		if a == nil {
			continue
		}
		numRooms++
		out = append(out, NewTransitionStats(id, a, opts.TransitionStatsOptions))
		if route.IsCeresEscape(id) {
			out = append(out, CeresCutsceneStats(id, a, opts.IQR))
		}
	}
	return append(out, DoorStats(numRooms, opts.IQR))
}

// Totals sums the rows column-wise. Room is "Total".
func Totals(rows []TransitionStats) TransitionStats {
	t := TransitionStats{Room: "Total"}
	for _, s := range rows {
		t.Best += s.Best
		t.P25 += s.P25
		t.P50 += s.P50
		t.P75 += s.P75
		t.P90 += s.P90
		t.Save += s.Save
		t.MostRecent += s.MostRecent
		t.SaveMostRecent += s.SaveMostRecent
	}
	return t
}

// ProgressionPoint is the route's summed statistics right after one
// logged transition.
type ProgressionPoint struct {
	Timestamp time.Time
	Room      string
	Best      frames.Count
	P25       frames.Count
	P50       frames.Count
	P75       frames.Count
	P90       frames.Count
}

// Progression replays log in order and, after every transition that is
// part of the route being discovered, sums the per-room statistics of
// the route so far.
func Progression(log []transition.Transition, opts RouteStatsOptions) []ProgressionPoint {
	h := history.New()
	r := route.New(nil)
	r.Quiet()
	rows := make(map[transition.Key]TransitionStats)
	var cutscene *TransitionStats
	printing := opts.StartRoom == ""

	opts.IQR = true
	var out []ProgressionPoint
	for _, t := range log {
		h.Record(t, true)
		r.Record(t.ID)
		if !r.Contains(t.ID) {
			continue
		}
		if opts.StartRoom == t.ID.Room.Name {
			printing = true
		}
		if opts.EndRoom != "" && opts.EndRoom == t.ID.Room.Name {
			break
		}
		if !printing {
			continue
		}
		a := h.Get(t.ID)
		rows[t.ID.Key()] = NewTransitionStats(t.ID, a, opts.TransitionStatsOptions)
		if route.IsCeresEscape(t.ID) && !opts.DoorsOnly {
			c := CeresCutsceneStats(t.ID, a, true)
			cutscene = &c
		}

		p := ProgressionPoint{Timestamp: t.Timestamp, Room: t.ID.Room.Name}
		add := func(s TransitionStats) {
			p.Best += s.Best
			p.P25 += s.P25
			p.P50 += s.P50
			p.P75 += s.P75
			p.P90 += s.P90
		}
		for _, s := range rows {
			add(s)
		}
		if cutscene != nil {
			add(*cutscene)
		}
		out = append(out, p)
	}
	return out
}
