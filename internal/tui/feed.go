package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/terminal"
	"github.com/verte-zerg/smtimer/internal/tracker"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// RoomMsg reports the room the player is in.
type RoomMsg struct {
	Room string
	IGT  string
}

// RoomTimeMsg is a rendered room time. Segment and Table are empty when
// the tracker does not follow segments.
type RoomTimeMsg struct {
	Summary string
	Segment string
	Table   []string
}

// NewSegmentMsg announces a segment starting at Start.
type NewSegmentMsg struct {
	Start string
}

// ResetMsg reports a reset in Room.
type ResetMsg struct {
	Room string
}

// PresetMsg reports a preset load into Room.
type PresetMsg struct {
	Room string
}

// LogMsg is a log line.
type LogMsg string

// QuitMsg stops the program, showing Err if set.
type QuitMsg struct {
	Err error
}

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// Feed renders timer and tracker notifications on the poll goroutine and
// sends the results to the program, so that the model never touches the
// history.
type Feed struct {
	out   Sender
	color bool
}

// NewFeed returns a feed sending to out.
func NewFeed(out Sender, color bool) *Feed {
	return &Feed{out: out, color: color}
}

func (f *Feed) StateChanged(c state.Change) {
	if c.IsRoomChange {
		f.out.Send(RoomMsg{Room: c.Cur.Room.Name, IGT: c.Cur.IGT.String()})
	}
}

func (f *Feed) Transitioned(transition.Transition) {}

func (f *Feed) Reset(id transition.ID) {
	f.out.Send(ResetMsg{Room: id.Room.Name})
}

func (f *Feed) PresetLoaded(s state.State, _ state.Change) {
	f.out.Send(PresetMsg{Room: s.Room.Name})
}

func (f *Feed) NewSegment(t transition.Transition) {
	f.out.Send(NewSegmentMsg{Start: t.ID.Room.Name})
}

func (f *Feed) NewRoomTime(rt tracker.RoomTime) {
	id := rt.Transition.ID
	t := rt.Transition.Time
	msg := RoomTimeMsg{Summary: fmt.Sprintf("%s #%d (%d%% success) · Real %s · Tot %s (%s)",
		id.Room.Name, rt.Attempts.Len(), rt.History.SuccessRate(id),
		t.RealTime, t.TotalRealTime(), terminal.Summary(t.TotalRealTime(), &rt.Attempts.TotalRealTimes))}
	if rt.Segment != nil {
		msg.Segment = rt.Segment.Attempt.Segment.Name()
		msg.Table = terminal.SegmentTable(rt.Segment, f.color)
	}
	f.out.Send(msg)
}

// Fire implements logrus.Hook.
func (f *Feed) Fire(entry *logrus.Entry) error {
	f.out.Send(LogMsg(entry.Message))
	return nil
}

// Levels implements logrus.Hook.
func (f *Feed) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
}
