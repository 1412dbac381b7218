package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/route"
	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/tracker"
	"github.com/verte-zerg/smtimer/internal/transition"
)

type recorder struct {
	msgs []tea.Msg
}

func (r *recorder) Send(msg tea.Msg) {
	r.msgs = append(r.msgs, msg)
}

func containsAll(haystack string, needles []string) bool {
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			return false
		}
	}
	return true
}

func TestRenderFooterFormats(t *testing.T) {
	m := NewModel()
	m.Update(RoomTimeMsg{Summary: "x"})
	m.Update(ResetMsg{Room: "Parlor"})
	m.Update(NewSegmentMsg{Start: "Parlor"})
	out := m.renderFooter()
	if !containsAll(out, []string{"Rooms 1", "Segments 1", "Resets 1", "Presets 0", "q quit"}) {
		t.Fatalf("footer missing expected segments: %s", out)
	}
}

func TestUpdateKeepsTableUntilNewSegment(t *testing.T) {
	m := NewModel()
	m.Update(RoomTimeMsg{Summary: "Parlor #1", Segment: "Parlor", Table: []string{"Room  #", "Parlor  1"}})
	view := m.View()
	if !containsAll(view, []string{"Segment: Parlor", "Parlor  1", "Parlor #1"}) {
		t.Fatalf("view missing table:\n%s", view)
	}

	m.Update(NewSegmentMsg{Start: "Climb"})
	if m.table != nil {
		t.Fatalf("new segment should clear the table")
	}
	if !strings.Contains(m.View(), "New segment starting at Climb") {
		t.Fatalf("expected log line in view")
	}
}

func TestQuitKeys(t *testing.T) {
	m := NewModel()
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); cmd == nil {
		t.Fatalf("q should quit")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}); cmd != nil {
		t.Fatalf("x should be ignored")
	}
	if _, cmd := m.Update(QuitMsg{Err: errors.New("source closed")}); cmd == nil {
		t.Fatalf("QuitMsg should quit")
	}
	if m.logLines[len(m.logLines)-1] != "Stopped: source closed" {
		t.Fatalf("unexpected log %q", m.logLines)
	}
}

func TestViewSizedKeepsLastLogLines(t *testing.T) {
	m := NewModel()
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 6})
	for i := 0; i < 10; i++ {
		m.Update(LogMsg(strings.Repeat("x", i+1)))
	}
	view := m.View()
	var logged []string
	for _, line := range strings.Split(view, "\n") {
		if l := strings.TrimSpace(line); strings.HasPrefix(l, "x") {
			logged = append(logged, l)
		}
	}
	if len(logged) != 2 || logged[0] != strings.Repeat("x", 9) || logged[1] != strings.Repeat("x", 10) {
		t.Fatalf("expected only the newest lines, got %q", logged)
	}
	if got := len(strings.Split(view, "\n")); got != 6 {
		t.Fatalf("expected 6 lines, got %d", got)
	}
}

func TestFeedRendersRoomTimes(t *testing.T) {
	landing := rooms.Room{ID: rooms.LandingSiteID, Name: rooms.LandingSite}
	parlor := rooms.Room{ID: 0x92FD, Name: "Parlor"}
	climb := rooms.Room{ID: 0x96BA, Name: "Climb"}
	id := transition.ID{
		Room:      parlor,
		EntryDoor: rooms.Door{ID: 0x8916, Entry: landing, Exit: parlor},
		ExitDoor:  rooms.Door{ID: 0x8B9E, Entry: parlor, Exit: climb},
	}
	tr := transition.Transition{ID: id, Time: transition.Time{RealTime: frames.Count(300), RealTimeDoor: 120, DoorTimeIsReal: true}}

	rec := &recorder{}
	feed := NewFeed(rec, false)
	logger, _ := test.NewNullLogger()
	logger.AddHook(feed)
	st := tracker.NewSegmentTimeTracker(history.New(), nil, route.Dummy{}, tracker.Options{Logger: logger, Listener: feed})
	st.Transitioned(tr)

	if len(rec.msgs) != 2 {
		t.Fatalf("expected a segment and a room time, got %v", rec.msgs)
	}
	if got := rec.msgs[0].(NewSegmentMsg); got.Start != "Parlor" {
		t.Fatalf("unexpected segment start %q", got.Start)
	}
	rt := rec.msgs[1].(RoomTimeMsg)
	if !strings.HasPrefix(rt.Summary, "Parlor #1 (100% success) · Real 5'00 · Tot 7'00") {
		t.Fatalf("unexpected summary %q", rt.Summary)
	}
	if rt.Segment != "Parlor" || len(rt.Table) != 3 {
		t.Fatalf("unexpected segment %q with table %q", rt.Segment, rt.Table)
	}

	logger.Info("GG")
	if got := rec.msgs[2].(LogMsg); got != "GG" {
		t.Fatalf("unexpected log message %q", got)
	}

	cur := state.NullState
	cur.Mode = state.ModeNormalGameplay
	cur.Room = parlor
	feed.StateChanged(state.Classify(state.NullState, cur, rooms.NullRoom))
	if got := rec.msgs[3].(RoomMsg); got.Room != "Parlor" || got.IGT != "0'00" {
		t.Fatalf("unexpected room message %+v", got)
	}
}
