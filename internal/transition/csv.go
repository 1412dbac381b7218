package transition

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/rooms"
)

// ErrNeedsRebuild is returned when a log was written with another header.
var ErrNeedsRebuild = errors.New("transition log needs to be rebuilt")

// EstimatedDoorTime is added to the door lag when the real door time was
// not recorded.
const EstimatedDoorTime = frames.Count(120)

// Header is the current column layout of the transition log.
var Header = []string{
	"timestamp", "room_id", "entry_id", "exit_id", "room", "entry", "exit",
	"entry_door_id", "exit_door_id", "items", "beams",
	"gametime", "realtime", "roomlagtime", "doorrealtime", "doorlagtime",
}

// Older logs used other names for some columns.
var columnAliases = map[string]string{
	"lagtime":  "roomlagtime",
	"doortime": "doorlagtime",
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

// Row encodes t as a log row.
func Row(t Transition) []string {
	doorReal := ""
	if t.Time.DoorTimeIsReal {
		doorReal = seconds(t.Time.RealTimeDoor)
	}
	ts := ""
	if !t.Timestamp.IsZero() {
		ts = t.Timestamp.Format(time.RFC3339Nano)
	}
	return []string{
		ts,
		hexID(t.ID.Room.ID),
		hexID(t.ID.EntryRoom().ID),
		hexID(t.ID.ExitRoom().ID),
		t.ID.Room.Name,
		t.ID.EntryRoom().Name,
		t.ID.ExitRoom().Name,
		hexID(t.ID.EntryDoor.ID),
		hexID(t.ID.ExitDoor.ID),
		t.ID.Items,
		t.ID.Beams,
		seconds(t.Time.GameTime),
		seconds(t.Time.RealTime),
		seconds(t.Time.RoomLag),
		doorReal,
		seconds(t.Time.DoorLag),
	}
}

func hexID(id uint16) string {
	return fmt.Sprintf("%04x", id)
}

func seconds(c frames.Count) string {
	return strconv.FormatFloat(c.Seconds(), 'f', 3, 64)
}

// Columns maps column names to positions in a row.
type Columns map[string]int

// NewColumns indexes a header row, translating legacy column names.
func NewColumns(header []string) Columns {
	cols := make(Columns, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		cols[name] = i
	}
	return cols
}

func (c Columns) get(row []string, name string) (string, bool) {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return "", false
	}
	return row[i], true
}

func (c Columns) require(row []string, name string) (string, error) {
	v, ok := c.get(row, name)
	if !ok {
		return "", fmt.Errorf("missing column %s", name)
	}
	return v, nil
}

// Decode rebuilds a transition from a row laid out according to c.
// Rooms and doors are resolved through reg. Door ids missing from older
// logs are looked up by the rooms they connect.
func (c Columns) Decode(row []string, reg *rooms.Registry) (Transition, error) {
	var t Transition
	if ts, ok := c.get(row, "timestamp"); ok && ts != "" {
		parsed, err := parseTimestamp(ts)
		if err != nil {
			return t, err
		}
		t.Timestamp = parsed
	}

	room, err := c.room(row, "room_id", reg)
	if err != nil {
		return t, err
	}
	entryRoom, err := c.room(row, "entry_id", reg)
	if err != nil {
		return t, err
	}
	exitRoom, err := c.room(row, "exit_id", reg)
	if err != nil {
		return t, err
	}
	entry, err := c.door(row, "entry_door_id", entryRoom, room, reg)
	if err != nil {
		return t, err
	}
	exit, err := c.door(row, "exit_door_id", room, exitRoom, reg)
	if err != nil {
		return t, err
	}
	items, _ := c.get(row, "items")
	beams, _ := c.get(row, "beams")
	id, err := NewID(room, entry, exit, items, beams)
	if err != nil {
		return t, err
	}
	t.ID = id

	var times [4]frames.Count
	for i, name := range []string{"gametime", "realtime", "roomlagtime", "doorlagtime"} {
		v, err := c.require(row, name)
		if err != nil {
			return t, err
		}
		if times[i], err = parseSeconds(v); err != nil {
			return t, fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	t.Time = Time{GameTime: times[0], RealTime: times[1], RoomLag: times[2], DoorLag: times[3]}
	if v, ok := c.get(row, "doorrealtime"); ok && strings.TrimSpace(v) != "" {
		if t.Time.RealTimeDoor, err = parseSeconds(v); err != nil {
			return t, fmt.Errorf("invalid doorrealtime: %w", err)
		}
		t.Time.DoorTimeIsReal = true
	} else {
		t.Time.RealTimeDoor = EstimatedDoorTime + t.Time.DoorLag
	}
	return t, nil
}

func (c Columns) room(row []string, name string, reg *rooms.Registry) (rooms.Room, error) {
	v, err := c.require(row, name)
	if err != nil {
		return rooms.NullRoom, err
	}
	id, err := strconv.ParseUint(strings.TrimSpace(v), 16, 16)
	if err != nil {
		return rooms.NullRoom, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	return reg.Room(uint16(id)), nil
}

// door resolves a door column. A door absent from the table keeps the
// endpoints recorded in the row so that the identity survives.
func (c Columns) door(row []string, name string, from, to rooms.Room, reg *rooms.Registry) (rooms.Door, error) {
	v, ok := c.get(row, name)
	if !ok || strings.TrimSpace(v) == "" {
		if to.IsNull() {
			return rooms.NullDoor, nil
		}
		door := reg.DoorBetween(from, to)
		if door.IsNull() {
			door = rooms.Door{Entry: from, Exit: to, Description: "Unknown door"}
		}
		return door, nil
	}
	id, err := strconv.ParseUint(strings.TrimSpace(v), 16, 16)
	if err != nil {
		return rooms.NullDoor, fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	if id == 0 {
		return rooms.NullDoor, nil
	}
	if door, ok := reg.LookupDoor(uint16(id)); ok && !door.IsUnknown() {
		return door, nil
	}
	return rooms.Door{ID: uint16(id), Entry: from, Exit: to, Description: fmt.Sprintf("Unknown door %#x", id)}, nil
}

func parseSeconds(v string) (frames.Count, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, err
	}
	return frames.FromSeconds(f), nil
}

func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
}

// Reader decodes transitions from a log in any known layout.
type Reader struct {
	csv  *csv.Reader
	cols Columns
	reg  *rooms.Registry
	line int
}

// NewReader reads the header row of r.
func NewReader(r io.Reader, reg *rooms.Registry) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	return &Reader{csv: cr, cols: NewColumns(header), reg: reg, line: 1}, nil
}

// Next returns the next transition, or io.EOF.
func (r *Reader) Next() (Transition, error) {
	row, err := r.csv.Read()
	if err != nil {
		return Transition{}, err
	}
	r.line++
	t, err := r.cols.Decode(row, r.reg)
	if err != nil {
		return Transition{}, fmt.Errorf("line %d: %w", r.line, err)
	}
	return t, nil
}

// IsCurrentHeader reports whether header matches Header exactly.
func IsCurrentHeader(header []string) bool {
	if len(header) != len(Header) {
		return false
	}
	for i := range Header {
		if strings.TrimSpace(header[i]) != Header[i] {
			return false
		}
	}
	return true
}
