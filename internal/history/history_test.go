package history

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/transition"
)

var (
	landing = rooms.Room{ID: 0x91F8, Name: "Landing Site"}
	parlor  = rooms.Room{ID: 0x92FD, Name: "Parlor"}
	climb   = rooms.Room{ID: 0x96BA, Name: "Climb"}

	landingToParlor = rooms.Door{ID: 0x8916, Entry: landing, Exit: parlor}
	parlorToClimb   = rooms.Door{ID: 0x8B9E, Entry: parlor, Exit: climb}
)

func parlorTransition(t *testing.T, game frames.Count) transition.Transition {
	t.Helper()
	id, err := transition.NewID(parlor, landingToParlor, parlorToClimb, "", "")
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	return transition.Transition{ID: id, Time: transition.Time{GameTime: game, RealTime: game + 10, DoorLag: 120, RealTimeDoor: 130, DoorTimeIsReal: true}}
}

func TestRecordGroupsByIdentity(t *testing.T) {
	h := New()
	a := h.Record(parlorTransition(t, 300), false)
	h.Record(parlorTransition(t, 280), true)

	other := parlorTransition(t, 10)
	other.ID.EntryDoor = rooms.Door{ID: 0x9999, Entry: landing, Exit: parlor}
	h.Record(other, false)

	if h.Len() != 1 || a.Len() != 3 {
		t.Fatalf("expected one identity with three attempts, got %d/%d", h.Len(), a.Len())
	}
	if a.GameTimes.Best() != 10 || a.GameTimes.PrevBest() != 280 {
		t.Fatalf("unexpected best/prev best: %v/%v", a.GameTimes.Best(), a.GameTimes.PrevBest())
	}
	if a.TotalRealTimes.Best() != 150 {
		t.Fatalf("unexpected total real best: %v", a.TotalRealTimes.Best())
	}
	if got := h.IndexesOf(other.ID); !slices.Equal(got, []int{0, 1, 2}) {
		t.Fatalf("unexpected indexes: %v", got)
	}
	if len(h.All()) != 3 {
		t.Fatalf("expected three logged transitions, got %d", len(h.All()))
	}
	if got := h.CompletedCount(other.ID); got != 2 {
		t.Fatalf("expected two completions, got %d", got)
	}
}

func TestSuccessRate(t *testing.T) {
	h := New()
	tr := parlorTransition(t, 300)
	if got := h.SuccessRate(tr.ID); got != 0 {
		t.Fatalf("expected 0%% before any data, got %d", got)
	}

	h.Record(tr, false)
	h.RecordReset(tr.ID.ResetID())
	h.RecordReset(tr.ID.ResetID())
	h.RecordReset(tr.ID)

	if got := h.ResetCount(tr.ID.ResetID()); got != 2 {
		t.Fatalf("expected two resets, got %d", got)
	}
	if got := h.SuccessRate(tr.ID); got != 33 {
		t.Fatalf("expected 33%%, got %d", got)
	}

	h.AddResets(tr.ID.ResetID().Key(), 1)
	if got := h.SuccessRate(tr.ID); got != 25 {
		t.Fatalf("expected 25%% after loading stored resets, got %d", got)
	}
}

func testRegistry() *rooms.Registry {
	logger, _ := test.NewNullLogger()
	reg := rooms.NewRegistry(logger)
	for _, r := range []rooms.Room{landing, parlor, climb} {
		reg.AddRoom(r)
	}
	reg.AddDoor(landingToParlor.ID, landing.ID, parlor.ID, "")
	reg.AddDoor(parlorToClimb.ID, parlor.ID, climb.ID, "")
	return reg
}

func TestReadCSV(t *testing.T) {
	log := strings.Join(transition.Header, ",") + "\n" +
		strings.Join(transition.Row(parlorTransition(t, 300)), ",") + "\n" +
		strings.Join(transition.Row(parlorTransition(t, 250)), ",") + "\n"

	h, err := ReadCSV(strings.NewReader(log), testRegistry())
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if h.Len() != 1 {
		t.Fatalf("expected one identity, got %d", h.Len())
	}

	a := h.Get(h.IDs()[0])
	if a == nil {
		t.Fatalf("missing attempts for %v", h.IDs()[0])
	}
	if a.Len() != 2 || a.GameTimes.Best() != 250 {
		t.Fatalf("unexpected attempts: len=%d best=%v", a.Len(), a.GameTimes.Best())
	}
	if got := h.CompletedCount(a.ID); got != 0 {
		t.Fatalf("replayed transitions are not completions, got %d", got)
	}
}

func TestReadCSVNeedsRebuild(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("room_id,entry_id,exit_id\n"), testRegistry())
	if !errors.Is(err, transition.ErrNeedsRebuild) {
		t.Fatalf("expected ErrNeedsRebuild, got %v", err)
	}

	h, err := ReadCSV(strings.NewReader(""), testRegistry())
	if err != nil {
		t.Fatalf("read empty csv: %v", err)
	}
	if h.Len() != 0 {
		t.Fatalf("expected empty history, got %d", h.Len())
	}
}

func TestReadLogMissingFile(t *testing.T) {
	h, err := ReadLog(t.TempDir()+"/missing.csv", testRegistry())
	if err != nil {
		t.Fatalf("read missing log: %v", err)
	}
	if h.Len() != 0 {
		t.Fatalf("expected empty history, got %d", h.Len())
	}
}
