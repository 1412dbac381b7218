package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/transition"
)

var (
	landing = rooms.Room{ID: rooms.LandingSiteID, Name: rooms.LandingSite}
	parlor  = rooms.Room{ID: 0x92FD, Name: "Parlor"}

	landingToParlor = rooms.Door{ID: 0x8916, Entry: landing, Exit: parlor}
	parlorToLanding = rooms.Door{ID: 0x8ADA, Entry: parlor, Exit: landing}
	visit           = transition.ID{Room: parlor, EntryDoor: landingToParlor, ExitDoor: parlorToLanding, Items: "..", Beams: "c"}
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "smtimer.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestSessionLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	id, err := st.StartSession(ctx, "/tmp/any.csv", start)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if id == uuid.Nil {
		t.Fatalf("expected a session id")
	}

	tr := transition.Transition{
		Timestamp: start.Add(time.Minute),
		ID:        visit,
		Time:      transition.Time{GameTime: 290, RealTime: 300, DoorLag: 120, RealTimeDoor: 180, DoorTimeIsReal: true},
	}
	if err := st.InsertTransition(ctx, tr); err != nil {
		t.Fatalf("insert transition: %v", err)
	}
	if err := st.InsertReset(ctx, visit.ResetID()); err != nil {
		t.Fatalf("insert reset: %v", err)
	}
	if err := st.EndSession(ctx, start.Add(time.Hour)); err != nil {
		t.Fatalf("end session: %v", err)
	}

	sessions, err := st.ListSessions(ctx, nil)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.ID != id || got.Transitions != 1 || got.Resets != 1 {
		t.Fatalf("unexpected session %+v", got)
	}
	if got.RealTime != 8*time.Second {
		t.Fatalf("expected 8s of real time, got %s", got.RealTime)
	}
	if !got.EndedAt.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected end %s", got.EndedAt)
	}

	later := start.Add(time.Hour)
	sessions, err = st.ListSessions(ctx, &later)
	if err != nil || len(sessions) != 0 {
		t.Fatalf("expected no sessions after %s, got %d (%v)", later, len(sessions), err)
	}
}

func TestResetCountsAcrossSessions(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := st.StartSession(ctx, "", time.Now()); err != nil {
			t.Fatalf("start session: %v", err)
		}
		if err := st.InsertReset(ctx, visit.ResetID()); err != nil {
			t.Fatalf("insert reset: %v", err)
		}
	}

	counts, err := st.ResetCounts(ctx)
	if err != nil {
		t.Fatalf("reset counts: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("expected one reset identity, got %d", len(counts))
	}
	if counts[0].Key != visit.ResetID().Key() || counts[0].Count != 2 {
		t.Fatalf("unexpected count %+v", counts[0])
	}
}
