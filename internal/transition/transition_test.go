package transition

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/rooms"
)

var (
	landing = rooms.Room{ID: 0x91F8, Name: "Landing Site"}
	parlor  = rooms.Room{ID: 0x92FD, Name: "Parlor"}
	climb   = rooms.Room{ID: 0x96BA, Name: "Climb"}

	landingToParlor = rooms.Door{ID: 0x8916, Entry: landing, Exit: parlor, Description: "Landing Site to Parlor"}
	parlorToClimb   = rooms.Door{ID: 0x8B9E, Entry: parlor, Exit: climb, Description: "Parlor to Climb"}
)

func testRegistry(t *testing.T) *rooms.Registry {
	t.Helper()
	logger, _ := test.NewNullLogger()
	reg := rooms.NewRegistry(logger)
	for _, r := range []rooms.Room{landing, parlor, climb} {
		reg.AddRoom(r)
	}
	reg.AddDoor(landingToParlor.ID, landing.ID, parlor.ID, landingToParlor.Description)
	reg.AddDoor(parlorToClimb.ID, parlor.ID, climb.ID, parlorToClimb.Description)
	return reg
}

func mustID(t *testing.T, room rooms.Room, entry, exit rooms.Door) ID {
	t.Helper()
	id, err := NewID(room, entry, exit, "s.....m..", "..C...W")
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	return id
}

func TestIDEqualityIgnoresDoorIdentity(t *testing.T) {
	a := mustID(t, parlor, landingToParlor, parlorToClimb)
	otherEntry := rooms.Door{ID: 0x1234, Entry: landing, Exit: parlor, Description: "another door"}
	otherExit := rooms.Door{ID: 0x4321, Entry: parlor, Exit: climb, Description: "yet another door"}
	b := mustID(t, parlor, otherEntry, otherExit)
	c := mustID(t, parlor, landingToParlor, parlorToClimb)

	if !a.Equal(a) || !a.Equal(b) || !b.Equal(a) || !b.Equal(c) || !a.Equal(c) {
		t.Fatalf("ids with the same endpoints should be equal")
	}
	m := map[Key]int{a.Key(): 1}
	if m[b.Key()] != 1 {
		t.Fatalf("equal ids should hash equal")
	}
	d, err := NewID(parlor, landingToParlor, parlorToClimb, "s.....m..", "XGC...W")
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	if a.Equal(d) {
		t.Fatalf("different beams should not be equal")
	}
}

func TestNewIDChecksDoors(t *testing.T) {
	if _, err := NewID(climb, landingToParlor, rooms.NullDoor, "", ""); !errors.Is(err, ErrDoorMismatch) {
		t.Fatalf("expected entry mismatch, got %v", err)
	}
	if _, err := NewID(parlor, landingToParlor, landingToParlor, "", ""); !errors.Is(err, ErrDoorMismatch) {
		t.Fatalf("expected exit mismatch, got %v", err)
	}
	unknown := rooms.Door{ID: 0x9999, Entry: rooms.NullRoom, Exit: rooms.NullRoom}
	if _, err := NewID(parlor, unknown, unknown, "", ""); err != nil {
		t.Fatalf("unknown doors should be accepted: %v", err)
	}
}

func TestTimeAdd(t *testing.T) {
	a := Time{GameTime: 100, RealTime: 110, RoomLag: 5, DoorLag: 120, RealTimeDoor: 130, DoorTimeIsReal: true}
	b := Time{GameTime: 200, RealTime: 210, RoomLag: 6, DoorLag: 121, RealTimeDoor: 241, DoorTimeIsReal: false}
	sum := a.Add(b)
	if sum.GameTime != 300 || sum.RealTime != 320 || sum.RoomLag != 11 || sum.DoorLag != 241 || sum.RealTimeDoor != 371 {
		t.Fatalf("unexpected sum: %+v", sum)
	}
	if sum.DoorTimeIsReal {
		t.Fatalf("sum should not be real")
	}
	if a.TotalRealTime() != 240 {
		t.Fatalf("unexpected total real time %v", a.TotalRealTime())
	}
}

func sampleTransitions(t *testing.T) []Transition {
	ts := time.Date(2024, 5, 1, 20, 15, 0, 123000000, time.Local)
	return []Transition{
		{
			Timestamp: ts,
			ID:        mustID(t, parlor, landingToParlor, parlorToClimb),
			Time:      Time{GameTime: 751, RealTime: 803, RoomLag: 52, DoorLag: 121, RealTimeDoor: 169, DoorTimeIsReal: true},
		},
		{
			Timestamp: ts.Add(time.Minute),
			ID:        mustID(t, climb, parlorToClimb, rooms.NullDoor),
			Time:      Time{GameTime: 1, RealTime: 59, RoomLag: 0, DoorLag: 7, RealTimeDoor: EstimatedDoorTime + 7},
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transitions.csv")
	log, err := OpenFileLog(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	want := sampleTransitions(t)
	for _, tr := range want {
		if err := log.Write(tr); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := log.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.HasPrefix(string(data), strings.Join(Header, ",")+"\n") {
		t.Fatalf("missing header: %q", data)
	}
	if !strings.Contains(string(data), ",12.517,13.383,0.867,2.817,2.017\n") {
		t.Fatalf("unexpected time columns: %q", data)
	}

	r, err := NewReader(bytes.NewReader(data), testRegistry(t))
	if err != nil {
		t.Fatalf("reader: %v", err)
	}
	for i, w := range want {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if !got.ID.Equal(w.ID) {
			t.Fatalf("id %d: got %v want %v", i, got.ID, w.ID)
		}
		if got.Time != w.Time {
			t.Fatalf("time %d: got %+v want %+v", i, got.Time, w.Time)
		}
		if !got.Timestamp.Equal(w.Timestamp) {
			t.Fatalf("timestamp %d: got %v want %v", i, got.Timestamp, w.Timestamp)
		}
	}
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestRoundTripKeepsUnknownDoorEndpoints(t *testing.T) {
	logger, _ := test.NewNullLogger()
	reg := rooms.NewRegistry(logger)
	entry := rooms.Door{ID: 0x8916, Entry: landing, Exit: parlor}
	exit := rooms.Door{ID: 0x8B9E, Entry: parlor, Exit: climb}
	tr := Transition{ID: mustID(t, parlor, entry, exit), Time: Time{GameTime: 60}}

	cols := NewColumns(Header)
	got, err := cols.Decode(Row(tr), reg)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID.Key() != tr.ID.Key() {
		t.Fatalf("key changed: %+v vs %+v", got.ID.Key(), tr.ID.Key())
	}
	if got.ID.EntryDoor.ID != 0x8916 {
		t.Fatalf("door id lost: %+v", got.ID.EntryDoor)
	}
}

func TestBlankDoorRealTimeIsEstimated(t *testing.T) {
	row := Row(sampleTransitions(t)[0])
	row[14] = ""
	got, err := NewColumns(Header).Decode(row, testRegistry(t))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Time.DoorTimeIsReal {
		t.Fatalf("door time should be estimated")
	}
	if got.Time.RealTimeDoor != frames.Count(120+121) {
		t.Fatalf("unexpected estimate %v", got.Time.RealTimeDoor)
	}
}

const legacyLog = `room_id,entry_id,exit_id,room,entry,exit,items,beams,gametime,realtime,lagtime,doortime
92fd,91f8,96ba,Parlor,Landing Site,Climb,s.....m..,..C...W,12.517,13.383,0.867,2.017
`

func TestRebuildLegacyLog(t *testing.T) {
	var out bytes.Buffer
	n, err := Rebuild(strings.NewReader(legacyLog), &out, testRegistry(t))
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
	want := ",92fd,91f8,96ba,Parlor,Landing Site,Climb,8916,8b9e,s.....m..,..C...W,12.517,13.383,0.867,,2.017\n"
	lines := strings.SplitAfter(out.String(), "\n")
	if lines[0] != strings.Join(Header, ",")+"\n" || lines[1] != want {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestNeedsRebuildAndBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "log.csv")

	if need, err := NeedsRebuild(path); err != nil || need {
		t.Fatalf("missing file: need=%v err=%v", need, err)
	}
	if err := os.WriteFile(path, []byte(legacyLog), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if need, err := NeedsRebuild(path); err != nil || !need {
		t.Fatalf("legacy file: need=%v err=%v", need, err)
	}

	reg := testRegistry(t)
	backup, err := BackupAndRebuild(path, reg)
	if err != nil {
		t.Fatalf("backup and rebuild: %v", err)
	}
	if backup != path+".bk" {
		t.Fatalf("unexpected backup %s", backup)
	}
	if need, err := NeedsRebuild(path); err != nil || need {
		t.Fatalf("rebuilt file: need=%v err=%v", need, err)
	}
	backup, err = BackupAndRebuild(path, reg)
	if err != nil {
		t.Fatalf("second rebuild: %v", err)
	}
	if backup != path+".bk1" {
		t.Fatalf("unexpected second backup %s", backup)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}
