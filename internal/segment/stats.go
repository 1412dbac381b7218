package segment

import (
	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/route"
)

// CeresEscapeTime is added to segment totals that contain the Ceres
// escape, whose cutscene is not part of any recorded room time.
const CeresEscapeTime = frames.Count(2591)

// SingleStats summarises the runs of one segment.
type SingleStats struct {
	Segment      Segment
	AttemptCount int
	SuccessCount int
	// Rate is SuccessCount/AttemptCount, 0 when there were no attempts.
	Rate float64
	P50  frames.Count
	P0   frames.Count
	SOB  frames.Count
}

// NewSingleStats computes the statistics of seg over h. An attempt is any
// run through the first two transitions of the segment.
func NewSingleStats(seg Segment, h *history.History) SingleStats {
	successful := FindInHistory(seg, h)
	all := FindInHistory(seg.Slice(0, 2), h)

	s := SingleStats{
		Segment:      seg,
		AttemptCount: all.Len(),
		SuccessCount: successful.Len(),
		SOB:          SumOfBest(seg, h),
	}
	if s.AttemptCount > 0 {
		s.Rate = float64(s.SuccessCount) / float64(s.AttemptCount)
	}
	if p50, ok := successful.TotalRealTimes.Median(); ok {
		s.P50 = p50
		s.P0 = successful.TotalRealTimes.Best()
	}
	if containsCeresEscape(seg) {
		s.P50 += CeresEscapeTime
		s.P0 += CeresEscapeTime
		s.SOB += CeresEscapeTime
	}
	return s
}

func containsCeresEscape(seg Segment) bool {
	for _, id := range seg.IDs() {
		if route.IsCeresEscape(id) {
			return true
		}
	}
	return false
}

// SumOfBest adds up the best total real time of every transition in seg.
// Transitions without history contribute nothing.
func SumOfBest(seg Segment, h *history.History) frames.Count {
	var total frames.Count
	for _, id := range seg.IDs() {
		if a := h.Get(id); a != nil && a.TotalRealTimes.Len() > 0 {
			total += a.TotalRealTimes.Best()
		}
	}
	return total
}

// Stats summarises a list of segments.
type Stats struct {
	Segments []SingleStats
	TotalP50 frames.Count
	TotalP0  frames.Count
	TotalSOB frames.Count
}

// NewStats computes SingleStats for every segment and their totals.
func NewStats(segments []Segment, h *history.History) Stats {
	var out Stats
	for _, seg := range segments {
		s := NewSingleStats(seg, h)
		out.Segments = append(out.Segments, s)
		out.TotalP50 += s.P50
		out.TotalP0 += s.P0
		out.TotalSOB += s.SOB
	}
	return out
}

// BuildSegmentHistory records every transition of every run through
// segments into a fresh history.
func BuildSegmentHistory(segments []Segment, h *history.History) *history.History {
	out := history.New()
	for _, seg := range segments {
		for _, attempt := range FindInHistory(seg, h).Attempts {
			for _, t := range attempt.Transitions {
				out.Record(t, false)
			}
		}
	}
	return out
}

// RoomRow compares one transition's overall times with its times inside
// runs of a segment.
type RoomRow struct {
	Room    string
	Count   int
	Rate    float64
	P50     frames.Count
	P0      frames.Count
	SegP50  frames.Count
	SegP0   frames.Count
	Missing bool
}

// RoomStats returns one row per transition of seg. segHistory is the
// result of BuildSegmentHistory. The rate is relative to the number of
// runs that reached the second transition.
func RoomStats(seg Segment, h, segHistory *history.History) []RoomRow {
	rows := make([]RoomRow, 0, seg.Len())
	segmentAttempts := 0
	for idx, id := range seg.IDs() {
		sa := segHistory.Get(id)
		if sa == nil {
			rows = append(rows, RoomRow{Room: id.Room.Name, Missing: true})
			continue
		}
		if idx <= 1 {
			segmentAttempts = sa.Len()
		}
		row := RoomRow{Room: id.Room.Name, Count: sa.Len()}
		if segmentAttempts > 0 {
			row.Rate = float64(sa.Len()) / float64(segmentAttempts)
		}
		if a := h.Get(id); a != nil {
			row.P50, _ = a.TotalRealTimes.Median()
			row.P0 = a.TotalRealTimes.Best()
		}
		row.SegP50, _ = sa.TotalRealTimes.Median()
		row.SegP0 = sa.TotalRealTimes.Best()
		rows = append(rows, row)
	}
	return rows
}
