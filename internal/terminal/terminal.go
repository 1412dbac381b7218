// Package terminal prints live room and segment times to a terminal.
package terminal

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/stats"
	"github.com/verte-zerg/smtimer/internal/tracker"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// Options configure a frontend.
type Options struct {
	Logger logrus.FieldLogger
	// Verbose prints one line per room instead of the room header.
	Verbose bool
	Color   bool
}

type printer struct {
	w    io.Writer
	log  logrus.FieldLogger
	opts Options
}

func newPrinter(w io.Writer, opts Options) printer {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return printer{w: w, log: opts.Logger, opts: opts}
}

func (p printer) println(args ...any) {
	_, _ = fmt.Fprintln(p.w, args...)
}

func (p printer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.w, format, args...)
}

func (p printer) bold(s string) string {
	if !p.opts.Color {
		return s
	}
	return "\x1b[1m" + s + "\x1b[m"
}

func (p printer) color(s string, color int) string {
	if !p.opts.Color {
		return s
	}
	return stats.Colorize(s, color)
}

// StateChanged logs the description of c at debug level.
func (p printer) StateChanged(c state.Change) {
	for _, line := range c.Description() {
		p.log.Debug(line)
	}
}

// Transitioned, Reset and PresetLoaded complete timer.Observer; only
// state changes are printed.
func (p printer) Transitioned(transition.Transition)     {}
func (p printer) Reset(transition.ID)                    {}
func (p printer) PresetLoaded(state.State, state.Change) {}

// RoomFrontend prints every room time with its history.
type RoomFrontend struct {
	printer
}

// NewRoomFrontend returns a frontend writing to w.
func NewRoomFrontend(w io.Writer, opts Options) *RoomFrontend {
	return &RoomFrontend{printer: newPrinter(w, opts)}
}

// NewRoomTime prints rt.
func (f *RoomFrontend) NewRoomTime(rt tracker.RoomTime) {
	id := rt.Transition.ID
	a := rt.Attempts
	if f.opts.Verbose {
		f.printf("%s #%d:\n", id, a.Len())
	} else {
		f.printf("Room: %s (#%d, %d%% success)\n", f.bold(id.Room.Name), a.Len(), rt.History.SuccessRate(id))
		f.printf("Entered from: %s\n", id.EntryRoom())
		f.printf("Exited to: %s\n", id.ExitRoom())
	}
	t := rt.Transition.Time
	f.printf("Game: %s\n", f.colorize(t.GameTime, &a.GameTimes))
	f.printf("Real: %s\n", f.colorize(t.RealTime, &a.RealTimes))
	f.printf("Lag:  %s\n", f.colorize(t.RoomLag, &a.RoomLagTimes))
	f.printf("Door: %s\n", f.colorize(t.DoorLag, &a.DoorTimes))
	f.printf("Tot:  %s\n", t.TotalRealTime())
	f.println()
}

// NewSegment is a no-op for room frontends.
func (f *RoomFrontend) NewSegment(transition.Transition) {}

func (p printer) colorize(t frames.Count, l *stats.List) string {
	return p.color(t.String(), stats.Classify(t, l).Color()) + " (" + Summary(t, l) + ")"
}

// Summary describes l relative to t. When t is a new best the previous
// best is shown instead.
func Summary(t frames.Count, l *stats.List) string {
	mean, _ := l.Mean()
	median, _ := l.Median()
	best, prevBest := l.Best(), l.PrevBest()
	if t == best && !prevBest.IsMax() {
		return fmt.Sprintf("avg %s, median %s, previous best %s", mean, median, prevBest)
	}
	return fmt.Sprintf("avg %s, median %s, best %s", mean, median, best)
}

// SegmentFrontend prints the live segment attempt as a table after every
// room.
type SegmentFrontend struct {
	printer
}

// NewSegmentFrontend returns a frontend writing to w.
func NewSegmentFrontend(w io.Writer, opts Options) *SegmentFrontend {
	return &SegmentFrontend{printer: newPrinter(w, opts)}
}

// NewRoomTime prints the segment so far.
func (f *SegmentFrontend) NewRoomTime(rt tracker.RoomTime) {
	if rt.Segment == nil {
		return
	}
	f.printf("Segment: %s\n", f.bold(rt.Segment.Attempt.Segment.Name()))
	for _, line := range SegmentTable(rt.Segment, f.opts.Color) {
		f.println(line)
	}
	f.println()
}

// NewSegment announces the start of a segment.
func (f *SegmentFrontend) NewSegment(t transition.Transition) {
	f.printf("New segment starting at %s\n", t.ID)
}

// SegmentHeaders are the columns of SegmentTable.
var SegmentHeaders = []string{"Room", "#", "Time", "±Median", "±Best"}

const maxRoomWidth = 28

// SegmentRows returns one row per room of the live attempt followed by a
// Segment total row. Deltas are against the statistics from before each
// room was recorded.
func SegmentRows(p *tracker.SegmentProgress, color bool) [][]string {
	paint := func(s string, c int) string {
		if !color {
			return s
		}
		return stats.Colorize(s, c)
	}

	var rows [][]string
	n := min(len(p.Attempt.Transitions), len(p.Old.Transitions), len(p.New.Transitions))
	for i := 0; i < n; i++ {
		t := p.Attempt.Transitions[i]
		old, cur := p.Old.Transitions[i], p.New.Transitions[i]
		total := t.Time.TotalRealTime()
		rows = append(rows, []string{
			truncate(t.ID.Room.Name, maxRoomWidth),
			strconv.Itoa(cur.NumAttempts),
			paint(total.String(), stats.Classify(total, &old.Attempts.TotalRealTimes).Color()),
			(total - old.P50).Signed(),
			(total - old.P0).Signed(),
		})
	}

	total := p.Attempt.Time.TotalRealTime()
	rows = append(rows, []string{
		"Segment",
		strconv.Itoa(p.New.NumAttempts),
		paint(total.String(), stats.Classify(total, &p.Old.SegAttempts.TotalRealTimes).Color()),
		(total - p.Old.P50).Signed(),
		(total - p.Old.P0).Signed(),
	})
	return rows
}

// SegmentTable renders SegmentRows.
func SegmentTable(p *tracker.SegmentProgress, color bool) []string {
	headers := SegmentHeaders
	if color {
		headers = make([]string, len(SegmentHeaders))
		for i, h := range SegmentHeaders {
			headers[i] = "\x1b[4m" + h + "\x1b[m"
		}
	}
	return stats.FormatTable(headers, SegmentRows(p, color), map[int]bool{1: true, 2: true, 3: true, 4: true})
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return strings.TrimSpace(string(r[:width-1])) + "…"
}
