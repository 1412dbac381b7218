// Package state decodes game state from memory snapshots and classifies
// the difference between consecutive states.
package state

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/memory"
	"github.com/verte-zerg/smtimer/internal/rooms"
)

// Memory layout.
const (
	addrDoor = 0x078D
	addrRoom = 0x079B
	addrArea = 0x079F

	addrGameState  = 0x0998
	addrItems      = 0x09A4
	addrBeams      = 0x09A8
	addrIGTFrames  = 0x09DA
	addrIGTSeconds = 0x09DC
	addrIGTMinutes = 0x09DE
	addrIGTHours   = 0x09E0

	addrEventFlags = 0xD821
	addrShipAI     = 0x0FB2

	addrGametimeRoom      = 0x1FB00
	addrLastGametimeRoom  = 0x1FB04
	addrRealtimeRoom      = 0x1FB06
	addrLastRealtimeRoom  = 0x1FB08
	addrLastRoomLag       = 0x1FB0A
	addrLastDoorLag       = 0x1FB0C
	addrTransitionCounter = 0x1FB0E
	addrLastRealtimeDoor  = 0x1FB10
	addrSegRTFrames       = 0x1FB14
	addrSegRTSeconds      = 0x1FB16
	addrSegRTMinutes      = 0x1FB18
	addrLoadPreset        = 0x1FC00

	shipAIReached  = 0xAA4F
	eventZebesBoom = 0x40
)

var (
	baseRanges = []memory.Range{
		{Addr: 0x0770, Len: 0x3f},
		{Addr: 0x0990, Len: 0xef},
		{Addr: 0xD800, Len: 0x8f},
		{Addr: 0x1FB00, Len: 0x120},
	}
	shipRange = memory.Range{Addr: 0x0F80, Len: 0x4f}
)

// Ranges returns the memory to read for one state. The ship region is
// only needed near the end of the game.
func Ranges(readShip bool) []memory.Range {
	out := append([]memory.Range(nil), baseRanges...)
	if readShip {
		out = append(out, shipRange)
	}
	return out
}

// NeedsShip reports whether the next read should include the ship state,
// given the previously decoded state.
func NeedsShip(prev State) bool {
	return prev.Room.ID == rooms.LandingSiteID
}

// State is one decoded sample of game memory.
type State struct {
	Door rooms.Door
	Room rooms.Room
	Area string
	Mode Mode

	EventFlags  uint16
	ShipAI      uint16
	ReachedShip bool

	IGT   frames.Count
	SegRT frames.Count

	GametimeRoom      frames.Count
	LastGametimeRoom  frames.Count
	RealtimeRoom      frames.Count
	LastRealtimeRoom  frames.Count
	LastRoomLag       frames.Count
	LastDoorLag       frames.Count
	LastRealtimeDoor  frames.Count
	TransitionCounter uint16
	LoadPreset        uint16

	ItemsMask uint16
	BeamsMask uint16
	Items     string
	Beams     string
}

// NullState is the state before anything was read.
var NullState = State{
	Door: rooms.NullDoor,
	Room: rooms.NullRoom,
	Mode: ModeNone,
}

// Decode reads a State out of snap. Room and door ids are resolved
// through reg.
func Decode(snap *memory.Snapshot, reg *rooms.Registry, readShip bool) (State, error) {
	r := memory.NewReader(snap)
	s := State{
		Door: reg.Door(r.Short(addrDoor)),
		Room: reg.Room(r.Short(addrRoom)),
		Area: AreaName(r.Short(addrArea)),
		Mode: Mode(r.Short(addrGameState)),

		ItemsMask: r.Short(addrItems),
		BeamsMask: r.Short(addrBeams),

		EventFlags: r.Short(addrEventFlags),

		GametimeRoom:      frames.Count(r.Short(addrGametimeRoom)),
		LastGametimeRoom:  frames.Count(r.Short(addrLastGametimeRoom)),
		RealtimeRoom:      frames.Count(r.Short(addrRealtimeRoom)),
		LastRealtimeRoom:  frames.Count(r.Short(addrLastRealtimeRoom)),
		LastRoomLag:       frames.Count(r.Short(addrLastRoomLag)),
		LastDoorLag:       frames.Count(r.Short(addrLastDoorLag)),
		LastRealtimeDoor:  frames.Count(r.Short(addrLastRealtimeDoor)),
		TransitionCounter: r.Short(addrTransitionCounter),
		LoadPreset:        r.Short(addrLoadPreset),
	}
	if r.Err() != nil {
		return NullState, fmt.Errorf("failed to decode state: %w", r.Err())
	}

	igt, err := igtFrom(snap)
	if err != nil {
		return NullState, err
	}
	s.IGT = igt
	s.SegRT = frames.Count(3600*int64(r.Short(addrSegRTMinutes)) +
		60*int64(r.Short(addrSegRTSeconds)) +
		int64(r.Short(addrSegRTFrames)))

	if readShip {
		s.ShipAI = r.Short(addrShipAI)
		s.ReachedShip = s.EventFlags&eventZebesBoom != 0 && s.ShipAI == shipAIReached
	}
	if r.Err() != nil {
		return NullState, fmt.Errorf("failed to decode state: %w", r.Err())
	}

	s.Items = ItemsString(s.ItemsMask)
	s.Beams = BeamsString(s.BeamsMask, s.ItemsMask)
	return s, nil
}

func igtFrom(snap *memory.Snapshot) (frames.Count, error) {
	fr, err := snap.Short(addrIGTFrames)
	if err != nil {
		return 0, fmt.Errorf("failed to decode igt: %w", err)
	}
	var parts [3]byte
	for i, addr := range []uint32{addrIGTSeconds, addrIGTMinutes, addrIGTHours} {
		if parts[i], err = snap.Byte(addr); err != nil {
			return 0, fmt.Errorf("failed to decode igt: %w", err)
		}
	}
	return frames.Count(216000*int64(parts[2]) + 3600*int64(parts[1]) + 60*int64(parts[0]) + int64(fr)), nil
}

type glyph struct {
	mask uint16
	ch   byte
}

var (
	itemGlyphs = []glyph{
		{0x2000, 's'}, // speed booster
		{0x1000, 'b'}, // bombs
		{0x0200, '@'}, // space jump
		{0x0100, 'h'}, // hi jump boots
		{0x0020, 'g'}, // gravity suit
		{0x0008, '*'}, // screw attack
		{0x0004, 'm'}, // morph ball
		{0x0002, '#'}, // spring ball
		{0x0001, '.'}, // varia suit, intentionally not shown
	}
	beamGlyphs = []glyph{
		{0x1000, 'C'},
		{0x0008, 'P'},
		{0x0004, 'S'},
		{0x0002, 'I'},
		{0x0001, 'W'},
	}
)

func render(mask uint16, glyphs []glyph, out []byte) []byte {
	for _, g := range glyphs {
		if mask&g.mask != 0 {
			out = append(out, g.ch)
		} else {
			out = append(out, '.')
		}
	}
	return out
}

// ItemsString renders the collected items mask as nine glyphs.
func ItemsString(items uint16) string {
	return string(render(items, itemGlyphs, make([]byte, 0, len(itemGlyphs))))
}

// BeamsString renders x-ray, grapple and the beams as seven glyphs.
func BeamsString(beams, items uint16) string {
	out := make([]byte, 0, 7)
	out = render(items, []glyph{{0x8000, 'X'}, {0x4000, 'G'}}, out)
	return string(render(beams, beamGlyphs, out))
}

// Fields describes the state for structured logs.
func (s State) Fields() logrus.Fields {
	return logrus.Fields{
		"room":               fmt.Sprintf("%s (%04x)", s.Room.Name, s.Room.ID),
		"door":               s.Door.String(),
		"mode":               s.Mode.String(),
		"igt":                s.IGT.String(),
		"seg_rt":             s.SegRT.String(),
		"last_gametime_room": s.LastGametimeRoom.String(),
		"last_realtime_room": s.LastRealtimeRoom.String(),
		"last_door_lag":      s.LastDoorLag.String(),
		"load_preset":        fmt.Sprintf("%04x", s.LoadPreset),
		"items":              s.Items,
		"beams":              s.Beams,
	}
}
