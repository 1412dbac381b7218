// Package report renders offline statistics as plain-text tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/model"
	"github.com/verte-zerg/smtimer/internal/segment"
	"github.com/verte-zerg/smtimer/internal/stats"
)

const defaultWindow = 10

// Write prints lines to w.
func Write(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	return nil
}

func rightAlignFrom(first, n int) map[int]bool {
	out := make(map[int]bool, n)
	for i := first; i < n; i++ {
		out[i] = true
	}
	return out
}

func percent(rate float64) string {
	return fmt.Sprintf("%d%%", int(rate*100+0.5))
}

func duration(c frames.Count) string {
	if c == 0 {
		return "-"
	}
	return c.String()
}

// Route renders per-room statistics followed by their totals. Items and
// beams columns, and the most recent columns, follow cfg.
func Route(rows []segment.TransitionStats, cfg model.StatsConfig) []string {
	headers := []string{"Room", "N", "Best", "P25", "P50", "P75", "P90"}
	if cfg.IQR {
		headers = append(headers, "P75-P25")
	} else {
		headers = append(headers, "P50-P0")
	}
	if cfg.MostRecent {
		headers = append(headers, "Recent", "Recent-P50")
	}
	numeric := len(headers)
	if cfg.Items {
		headers = append(headers, "Items")
	}
	if cfg.Beams {
		headers = append(headers, "Beams")
	}

	body := make([][]string, 0, len(rows)+1)
	for _, s := range append(rows[:len(rows):len(rows)], segment.Totals(rows)) {
		n := ""
		if s.N > 0 {
			n = strconv.Itoa(s.N)
		}
		row := []string{s.Room, n, s.Best.String(), s.P25.String(), s.P50.String(), s.P75.String(), s.P90.String(), s.Save.String()}
		if cfg.MostRecent {
			row = append(row, s.MostRecent.String(), s.SaveMostRecent.String())
		}
		if cfg.Items {
			row = append(row, s.Items)
		}
		if cfg.Beams {
			row = append(row, s.Beams)
		}
		body = append(body, row)
	}
	return stats.FormatTable(headers, body, rightAlignFrom(1, numeric))
}

// Segments renders one row per segment and a total row. Brief output
// leaves out the attempt counts.
func Segments(st segment.Stats, brief bool) []string {
	headers := []string{"Segment", "Succ", "Att", "Rate", "P50", "Best", "SOB"}
	if brief {
		headers = []string{"Segment", "P50", "Best", "SOB"}
	}
	body := make([][]string, 0, len(st.Segments)+1)
	for _, s := range st.Segments {
		if brief {
			body = append(body, []string{s.Segment.Name(), duration(s.P50), duration(s.P0), duration(s.SOB)})
			continue
		}
		body = append(body, []string{
			s.Segment.Name(),
			strconv.Itoa(s.SuccessCount),
			strconv.Itoa(s.AttemptCount),
			percent(s.Rate),
			duration(s.P50),
			duration(s.P0),
			duration(s.SOB),
		})
	}
	total := []string{"Total", st.TotalP50.String(), st.TotalP0.String(), st.TotalSOB.String()}
	if !brief {
		total = []string{"Total", "", "", "", st.TotalP50.String(), st.TotalP0.String(), st.TotalSOB.String()}
	}
	body = append(body, total)
	return stats.FormatTable(headers, body, rightAlignFrom(1, len(headers)))
}

// Rooms compares the rooms of one segment inside and outside runs of it.
func Rooms(seg segment.Segment, rows []segment.RoomRow) []string {
	headers := []string{"Room", "N", "Rate", "P50", "Best", "Seg P50", "Seg Best"}
	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		if r.Missing {
			body = append(body, []string{r.Room, "0", "-", "-", "-", "-", "-"})
			continue
		}
		body = append(body, []string{
			r.Room,
			strconv.Itoa(r.Count),
			percent(r.Rate),
			duration(r.P50),
			duration(r.P0),
			duration(r.SegP50),
			duration(r.SegP0),
		})
	}
	lines := []string{"Segment: " + seg.Name()}
	return append(lines, stats.FormatTable(headers, body, rightAlignFrom(1, len(headers)))...)
}

// Progression renders the route totals after every transition, followed
// by a sparkline of the moving average of the median.
func Progression(points []segment.ProgressionPoint, window int) []string {
	if len(points) == 0 {
		return []string{"No transitions found."}
	}
	if window <= 0 {
		window = defaultWindow
	}
	headers := []string{"Time", "Room", "Best", "P25", "P50", "P75", "P90"}
	body := make([][]string, 0, len(points))
	medians := make([]frames.Count, 0, len(points))
	for _, p := range points {
		ts := ""
		if !p.Timestamp.IsZero() {
			ts = p.Timestamp.Format(time.DateTime)
		}
		body = append(body, []string{ts, p.Room, p.Best.String(), p.P25.String(), p.P50.String(), p.P75.String(), p.P90.String()})
		medians = append(medians, p.P50)
	}
	lines := stats.FormatTable(headers, body, rightAlignFrom(2, len(headers)))

	trend := stats.MovingAverage(stats.CountsToFloats(medians), window)
	width := stats.TerminalWidth() - len("P50 trend: ")
	if width > 0 && len(trend) > width {
		trend = trend[len(trend)-width:]
	}
	return append(lines, "", "P50 trend: "+stats.Sparkline(trend))
}

// Sessions lists the stored timer sessions.
func Sessions(sessions []model.SessionAggregate) []string {
	if len(sessions) == 0 {
		return []string{"No sessions found."}
	}
	headers := []string{"Started", "Length", "Transitions", "Resets", "Real time"}
	body := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		length := "-"
		if !s.EndedAt.IsZero() {
			length = s.EndedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		body = append(body, []string{
			s.StartedAt.Local().Format(time.DateTime),
			length,
			strconv.Itoa(s.Transitions),
			strconv.Itoa(s.Resets),
			frames.FromSeconds(s.RealTime.Seconds()).String(),
		})
	}
	return stats.FormatTable(headers, body, rightAlignFrom(1, len(headers)))
}
