// Package rooms holds the room and door reference tables.
package rooms

import "fmt"

// Well-known rooms referenced by the timer.
const (
	LandingSiteID   uint16 = 0x91F8
	LandingSite            = "Landing Site"
	CeresElevator          = "Ceres Elevator"
	MotherBrain            = "Mother Brain"
	CeresEscapeDoor uint16 = 0x88FE
)

// Room is an area of the game, identified by its room header address.
// Rooms are values: two rooms are the same room when their ids match.
type Room struct {
	ID   uint16
	Name string
}

// NullRoom stands for an unknown room.
var NullRoom = Room{ID: 0, Name: "None"}

// IsNull reports whether r is NullRoom.
func (r Room) IsNull() bool {
	return r.ID == NullRoom.ID
}

func (r Room) String() string {
	return r.Name
}

// Door is a directed connection from Entry to Exit.
type Door struct {
	ID          uint16
	Entry       Room
	Exit        Room
	Description string
}

// NullDoor stands for a room change that did not go through a door.
var NullDoor = Door{ID: 0, Entry: NullRoom, Exit: NullRoom, Description: "None"}

// IsNull reports whether d is NullDoor.
func (d Door) IsNull() bool {
	return d.ID == NullDoor.ID
}

// IsUnknown reports whether either endpoint of the door is unknown.
func (d Door) IsUnknown() bool {
	return d.Entry.IsNull() || d.Exit.IsNull()
}

func (d Door) String() string {
	return fmt.Sprintf("%s (%x)", d.Description, d.ID)
}
