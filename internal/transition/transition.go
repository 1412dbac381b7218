// Package transition defines room transitions, their identity and timing,
// and the CSV log they are persisted to.
package transition

import (
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/rooms"
)

// ErrDoorMismatch is returned when a door does not connect to the room it
// is supposed to enter or leave.
var ErrDoorMismatch = errors.New("door does not match room")

// ID identifies one way of traversing a room.
type ID struct {
	Room      rooms.Room
	EntryDoor rooms.Door
	ExitDoor  rooms.Door
	Items     string
	Beams     string
}

// Key is the comparable identity of an ID. Two IDs are equal when the
// rooms on either side of their doors match, whichever door values
// produced them.
type Key struct {
	Room  uint16
	Entry uint16
	Exit  uint16
	Items string
	Beams string
}

// NewID builds an ID, checking that the entry door leads into room and
// the exit door leaves from it. Unknown rooms on either side are accepted.
func NewID(room rooms.Room, entry, exit rooms.Door, items, beams string) (ID, error) {
	if !room.IsNull() && !entry.Exit.IsNull() && entry.Exit != room {
		return ID{}, fmt.Errorf("%w: entry door %v leads to %s, not %s", ErrDoorMismatch, entry, entry.Exit, room)
	}
	if !room.IsNull() && !exit.Entry.IsNull() && exit.Entry != room {
		return ID{}, fmt.Errorf("%w: exit door %v is in %s, not %s", ErrDoorMismatch, exit, exit.Entry, room)
	}
	return ID{Room: room, EntryDoor: entry, ExitDoor: exit, Items: items, Beams: beams}, nil
}

// EntryRoom is the room the player came from.
func (id ID) EntryRoom() rooms.Room {
	return id.EntryDoor.Entry
}

// ExitRoom is the room the player went to.
func (id ID) ExitRoom() rooms.Room {
	return id.ExitDoor.Exit
}

// Key returns the comparable identity.
func (id ID) Key() Key {
	return Key{
		Room:  id.Room.ID,
		Entry: id.EntryRoom().ID,
		Exit:  id.ExitRoom().ID,
		Items: id.Items,
		Beams: id.Beams,
	}
}

// Equal reports whether id and o identify the same traversal.
func (id ID) Equal(o ID) bool {
	return id.Key() == o.Key()
}

// ResetID is the identity under which a reset in this room is counted.
func (id ID) ResetID() ID {
	return ID{Room: id.Room, EntryDoor: id.EntryDoor, ExitDoor: rooms.NullDoor, Items: id.Items, Beams: id.Beams}
}

func (id ID) String() string {
	return fmt.Sprintf("%s (entering from %s, exiting to %s)", id.Room, id.EntryRoom(), id.ExitRoom())
}

// Time holds the measured durations of one transition.
type Time struct {
	GameTime     frames.Count
	RealTime     frames.Count
	RoomLag      frames.Count
	DoorLag      frames.Count
	RealTimeDoor frames.Count
	// DoorTimeIsReal is false when RealTimeDoor is an estimate.
	DoorTimeIsReal bool
}

// Add sums two times. The result is only real if both are.
func (t Time) Add(o Time) Time {
	return Time{
		GameTime:       t.GameTime + o.GameTime,
		RealTime:       t.RealTime + o.RealTime,
		RoomLag:        t.RoomLag + o.RoomLag,
		DoorLag:        t.DoorLag + o.DoorLag,
		RealTimeDoor:   t.RealTimeDoor + o.RealTimeDoor,
		DoorTimeIsReal: t.DoorTimeIsReal && o.DoorTimeIsReal,
	}
}

// TotalRealTime is the time in the room plus the time in the door.
func (t Time) TotalRealTime() frames.Count {
	return t.RealTime + t.RealTimeDoor
}

// Transition is one completed room traversal.
type Transition struct {
	Timestamp time.Time
	ID        ID
	Time      Time
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition(%s,%s,%s,%s,%s)", t.ID, t.Time.GameTime, t.Time.RealTime, t.Time.RoomLag, t.Time.DoorLag)
}
