package rooms

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

type terminals struct {
	entry, exit uint16
}

// Registry interns rooms and doors for a session. Unknown ids are added
// on first sight with a synthetic name so that statistics keep working.
// It is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	roomsByID   map[uint16]Room
	roomsByName map[string]Room
	doorsByID   map[uint16]Door
	doorsByEnds map[terminals]Door
	log         logrus.FieldLogger
}

// NewRegistry returns a registry holding only NullRoom and NullDoor.
func NewRegistry(log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Registry{
		roomsByID:   make(map[uint16]Room),
		roomsByName: make(map[string]Room),
		doorsByID:   make(map[uint16]Door),
		doorsByEnds: make(map[terminals]Door),
		log:         log,
	}
	r.addRoom(NullRoom)
	r.addDoor(NullDoor)
	return r
}

// AddRoom registers a room from a reference table.
func (r *Registry) AddRoom(room Room) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addRoom(room)
}

// AddDoor registers a door between two room ids, interning the rooms.
func (r *Registry) AddDoor(id, entry, exit uint16, description string) Door {
	r.mu.Lock()
	defer r.mu.Unlock()
	door := Door{
		ID:          id,
		Entry:       r.room(entry),
		Exit:        r.room(exit),
		Description: description,
	}
	r.addDoor(door)
	return door
}

func (r *Registry) addRoom(room Room) {
	if old, ok := r.roomsByID[room.ID]; ok && old.Name != room.Name {
		delete(r.roomsByName, old.Name)
	}
	r.roomsByID[room.ID] = room
	r.roomsByName[room.Name] = room
	r.checkInvariants()
}

func (r *Registry) addDoor(door Door) {
	r.doorsByID[door.ID] = door
	if !door.IsUnknown() {
		r.doorsByEnds[terminals{door.Entry.ID, door.Exit.ID}] = door
	}
	r.checkInvariants()
}

// Room returns the room with the given id, creating it when unknown.
func (r *Registry) Room(id uint16) Room {
	r.mu.RLock()
	room, ok := r.roomsByID[id]
	r.mu.RUnlock()
	if ok {
		return room
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.room(id)
}

func (r *Registry) room(id uint16) Room {
	if room, ok := r.roomsByID[id]; ok {
		return room
	}
	room := Room{ID: id, Name: fmt.Sprintf("%#x", id)}
	r.log.WithField("room_id", fmt.Sprintf("%04x", id)).Warn("unknown room id")
	r.addRoom(room)
	return room
}

// RoomByName looks a room up by display name. Names starting with 0x are
// parsed as ids.
func (r *Registry) RoomByName(name string) (Room, error) {
	if strings.HasPrefix(name, "0x") {
		id, err := strconv.ParseUint(name[2:], 16, 16)
		if err != nil {
			return NullRoom, fmt.Errorf("failed to parse room id %q: %w", name, err)
		}
		return r.Room(uint16(id)), nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.roomsByName[name]
	if !ok {
		return NullRoom, fmt.Errorf("could not find room with name %q", name)
	}
	return room, nil
}

// Door returns the door with the given id, creating an unknown door when
// the id is not in the table.
func (r *Registry) Door(id uint16) Door {
	r.mu.RLock()
	door, ok := r.doorsByID[id]
	r.mu.RUnlock()
	if ok {
		return door
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if door, ok := r.doorsByID[id]; ok {
		return door
	}
	door = Door{ID: id, Entry: NullRoom, Exit: NullRoom, Description: fmt.Sprintf("Unknown door %#x", id)}
	r.log.WithField("door_id", fmt.Sprintf("%04x", id)).Warn("unknown door id")
	r.addDoor(door)
	return door
}

// LearnDoor records that the door id leads from entry to exit. Doors
// already known from a table are returned unchanged. It returns the
// resulting door.
func (r *Registry) LearnDoor(id uint16, entry, exit Room) Door {
	r.mu.Lock()
	defer r.mu.Unlock()
	if door, ok := r.doorsByID[id]; ok && !door.IsUnknown() {
		return door
	}
	if id == NullDoor.ID || entry.IsNull() || exit.IsNull() {
		if door, ok := r.doorsByID[id]; ok {
			return door
		}
		return Door{ID: id, Entry: NullRoom, Exit: NullRoom, Description: fmt.Sprintf("Unknown door %#x", id)}
	}
	door := Door{
		ID:          id,
		Entry:       r.room(entry.ID),
		Exit:        r.room(exit.ID),
		Description: fmt.Sprintf("%s -> %s", entry.Name, exit.Name),
	}
	r.log.WithFields(logrus.Fields{
		"door_id": fmt.Sprintf("%04x", id),
		"entry":   entry.Name,
		"exit":    exit.Name,
	}).Info("learned door")
	r.addDoor(door)
	return door
}

// LookupDoor returns the door with the given id without creating it.
func (r *Registry) LookupDoor(id uint16) (Door, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	door, ok := r.doorsByID[id]
	return door, ok
}

// DoorBetween returns the door leading from entry to exit, or NullDoor.
func (r *Registry) DoorBetween(entry, exit Room) Door {
	r.mu.RLock()
	door, ok := r.doorsByEnds[terminals{entry.ID, exit.ID}]
	r.mu.RUnlock()
	if ok {
		return door
	}
	if !entry.IsNull() && !exit.IsNull() {
		r.log.WithFields(logrus.Fields{
			"entry": fmt.Sprintf("%x (%s)", entry.ID, entry.Name),
			"exit":  fmt.Sprintf("%x (%s)", exit.ID, exit.Name),
		}).Warn("could not find door")
	}
	return NullDoor
}

// Rooms returns every known room ordered by id.
func (r *Registry) Rooms() []Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Room, 0, len(r.roomsByID))
	for _, room := range r.roomsByID {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Doors returns every known door ordered by id.
func (r *Registry) Doors() []Door {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Door, 0, len(r.doorsByID))
	for _, door := range r.doorsByID {
		out = append(out, door)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Registry) checkInvariants() {
	if !debugInvariants {
		return
	}
	if err := r.verify(); err != nil {
		panic(err)
	}
}

// verify checks that the id and name indexes describe the same rooms.
func (r *Registry) verify() error {
	for name, room := range r.roomsByName {
		if byID, ok := r.roomsByID[room.ID]; !ok || byID != room || room.Name != name {
			return fmt.Errorf("room index mismatch: %v != %v", room, byID)
		}
	}
	for id, room := range r.roomsByID {
		if byName, ok := r.roomsByName[room.Name]; !ok || byName != room || room.ID != id {
			return fmt.Errorf("room index mismatch: %v != %v", room, byName)
		}
	}
	for id, door := range r.doorsByID {
		if door.ID != id {
			return fmt.Errorf("door index mismatch: %x != %x", door.ID, id)
		}
	}
	return nil
}
