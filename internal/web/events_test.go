package web

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/route"
	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/tracker"
	"github.com/verte-zerg/smtimer/internal/transition"
)

type captured struct {
	all      [][]byte
	targeted map[*Client][][]byte
}

func (c *captured) Broadcast(msg []byte) {
	c.all = append(c.all, msg)
}

func (c *captured) SendTo(cl *Client, msg []byte) {
	if c.targeted == nil {
		c.targeted = make(map[*Client][][]byte)
	}
	c.targeted[cl] = append(c.targeted[cl], msg)
}

func decode(t *testing.T, msg []byte) (string, json.RawMessage) {
	t.Helper()
	var parts []json.RawMessage
	if err := json.Unmarshal(msg, &parts); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected [kind, payload], got %s", msg)
	}
	var kind string
	if err := json.Unmarshal(parts[0], &kind); err != nil {
		t.Fatalf("decode kind: %v", err)
	}
	return kind, parts[1]
}

func decodeString(t *testing.T, payload json.RawMessage) string {
	t.Helper()
	var s string
	if err := json.Unmarshal(payload, &s); err != nil {
		t.Fatalf("decode string payload %s: %v", payload, err)
	}
	return s
}

var (
	landing = rooms.Room{ID: rooms.LandingSiteID, Name: rooms.LandingSite}
	parlor  = rooms.Room{ID: 0x92FD, Name: "Parlor"}
	climb   = rooms.Room{ID: 0x96BA, Name: "Climb"}

	visit = transition.ID{
		Room:      parlor,
		EntryDoor: rooms.Door{ID: 0x8916, Entry: landing, Exit: parlor},
		ExitDoor:  rooms.Door{ID: 0x8B9E, Entry: parlor, Exit: climb},
		Items:     "VGS",
	}
)

func tr(rt frames.Count) transition.Transition {
	return transition.Transition{ID: visit, Time: transition.Time{GameTime: rt - 10, RealTime: rt, RoomLag: 3, DoorLag: 100, RealTimeDoor: 150, DoorTimeIsReal: true}}
}

func TestNewRoomTimeEvent(t *testing.T) {
	out := &captured{}
	logger, _ := test.NewNullLogger()
	ev := NewEvents(out, logger)
	st := tracker.NewSegmentTimeTracker(history.New(), nil, route.Dummy{}, tracker.Options{Logger: logger, Listener: ev})

	st.Transitioned(tr(300))
	st.Transitioned(tr(200))
	if len(out.all) != 3 {
		t.Fatalf("expected segment and two room times, got %d events", len(out.all))
	}

	if kind, _ := decode(t, out.all[0]); kind != EventNewSegment {
		t.Fatalf("expected %s first, got %s", EventNewSegment, kind)
	}

	kind, payload := decode(t, out.all[2])
	if kind != EventNewRoomTime {
		t.Fatalf("expected %s, got %s", EventNewRoomTime, kind)
	}

	var got struct {
		Room struct {
			RoomName    string `json:"room_name"`
			EntryRoomID string `json:"entry_room_id"`
			ExitDoorID  string `json:"exit_door_id"`
			Items       string `json:"items"`
			Attempts    int    `json:"attempts"`
			Time        struct {
				Room partsJSON `json:"room"`
				Door partsJSON `json:"door"`
			} `json:"time"`
			BestTime   timeJSON `json:"best_time"`
			MedianTime timeJSON `json:"median_time"`
		} `json:"room"`
		Segment       *segmentJSON       `json:"segment"`
		RoomInSegment *roomInSegmentJSON `json:"room_in_segment"`
	}
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}

	room := got.Room
	if room.RoomName != "Parlor" || room.EntryRoomID != "91f8" || room.ExitDoorID != "8b9e" || room.Items != "VGS" {
		t.Fatalf("unexpected identity %+v", room)
	}
	if room.Attempts != 2 {
		t.Fatalf("expected two attempts, got %d", room.Attempts)
	}
	if want := (partsJSON{Game: 190, Real: 200, Lag: 3}); room.Time.Room != want {
		t.Fatalf("room time %+v, want %+v", room.Time.Room, want)
	}
	if want := (partsJSON{Game: 50, Real: 150, Lag: 100}); room.Time.Door != want {
		t.Fatalf("door time %+v, want %+v", room.Time.Door, want)
	}
	if room.BestTime.Room.Real != 200 || room.MedianTime.Room.Real != 250 {
		t.Fatalf("unexpected best/median real %v/%v", room.BestTime.Room.Real, room.MedianTime.Room.Real)
	}
	if want := (partsJSON{Game: 50, Real: 150, Lag: 100}); room.BestTime.Door != want {
		t.Fatalf("best door time %+v, want %+v", room.BestTime.Door, want)
	}

	if got.Segment == nil || got.Segment.Name != "Parlor" {
		t.Fatalf("unexpected segment %+v", got.Segment)
	}
	if got.Segment.Time.Room.Real != 500 {
		t.Fatalf("expected segment real time 500, got %v", got.Segment.Time.Room.Real)
	}
	if got.RoomInSegment == nil {
		t.Fatalf("missing room_in_segment")
	}
	if got.RoomInSegment.Attempts != 2 || got.RoomInSegment.Time != frames.Count(350) {
		t.Fatalf("unexpected room in segment %+v", got.RoomInSegment)
	}
}

func TestRoomTrackerHasNoSegment(t *testing.T) {
	out := &captured{}
	logger, _ := test.NewNullLogger()
	ev := NewEvents(out, logger)
	rt := tracker.NewRoomTimeTracker(history.New(), nil, route.Dummy{}, tracker.Options{Logger: logger, Listener: ev})
	rt.Transitioned(tr(300))

	if len(out.all) != 1 {
		t.Fatalf("expected one event, got %d", len(out.all))
	}
	_, payload := decode(t, out.all[0])
	var got map[string]json.RawMessage
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if _, ok := got["room"]; !ok {
		t.Fatalf("missing room in %s", payload)
	}
	for _, key := range []string{"segment", "room_in_segment"} {
		if _, ok := got[key]; ok {
			t.Fatalf("unexpected %s in %s", key, payload)
		}
	}
}

func TestReplaySendsLastRoomTime(t *testing.T) {
	out := &captured{}
	ev := NewEvents(out, nil)
	c := &Client{}

	ev.Replay(c)
	if len(out.targeted) != 0 {
		t.Fatalf("nothing to replay yet, got %v", out.targeted)
	}

	ev.NewRoomTime(tracker.RoomTime{Transition: tr(300), Attempts: &history.Attempts{ID: visit}})
	ev.Replay(c)
	if len(out.targeted[c]) != 1 {
		t.Fatalf("expected one replayed event, got %d", len(out.targeted[c]))
	}
	if string(out.targeted[c][0]) != string(out.all[0]) {
		t.Fatalf("replay %s differs from broadcast %s", out.targeted[c][0], out.all[0])
	}
}

func TestStateChangedAndLogHook(t *testing.T) {
	out := &captured{}
	ev := NewEvents(out, nil)

	ev.StateChanged(state.Classify(state.NullState, state.NullState, rooms.NullRoom))
	if len(out.all) != 0 {
		t.Fatalf("no description should mean no event, got %d", len(out.all))
	}

	cur := state.NullState
	cur.Mode = state.ModeDoorTransition
	ev.StateChanged(state.Classify(state.NullState, cur, rooms.NullRoom))
	if len(out.all) != 1 {
		t.Fatalf("expected one state event, got %d", len(out.all))
	}
	kind, payload := decode(t, out.all[0])
	if kind != EventStateChanged {
		t.Fatalf("expected %s, got %s", EventStateChanged, kind)
	}
	var lines []string
	if err := json.Unmarshal(payload, &lines); err != nil {
		t.Fatalf("decode lines: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("expected one description line, got %q", lines)
	}

	logger, _ := test.NewNullLogger()
	logger.AddHook(ev)
	logger.Info("Route is complete")
	logger.Debug("not forwarded")
	if len(out.all) != 2 {
		t.Fatalf("expected only the info line forwarded, got %d events", len(out.all))
	}
	kind, payload = decode(t, out.all[1])
	if kind != EventLog || decodeString(t, payload) != "Route is complete" {
		t.Fatalf("unexpected log event %s %s", kind, payload)
	}

	ev.Reset(visit)
	if len(out.all) != 3 {
		t.Fatalf("expected a reset event, got %d events", len(out.all))
	}
	_, payload = decode(t, out.all[2])
	if got := decodeString(t, payload); got != "Reset in Parlor" {
		t.Fatalf("unexpected reset message %q", got)
	}
}
