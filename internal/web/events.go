package web

import (
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/frames"
	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/segment"
	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/stats"
	"github.com/verte-zerg/smtimer/internal/tracker"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// Event types. Every message is a JSON array of the type followed by its
// arguments.
const (
	EventNewRoomTime  = "new_room_time"
	EventNewSegment   = "new_segment"
	EventStateChanged = "state_changed"
	EventLog          = "log"
)

// Broadcaster delivers encoded events.
type Broadcaster interface {
	Broadcast(msg []byte)
	SendTo(c *Client, msg []byte)
}

// Events turns timer and tracker notifications into JSON messages. It
// implements timer.Observer and tracker.Listener and must be used from
// the poll goroutine.
type Events struct {
	out  Broadcaster
	log  logrus.FieldLogger
	last []byte
}

// NewEvents returns a generator writing to out.
func NewEvents(out Broadcaster, log logrus.FieldLogger) *Events {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Events{out: out, log: log}
}

func (e *Events) encode(kind string, args ...any) ([]byte, bool) {
	msg, err := json.Marshal(append([]any{kind}, args...))
	if err != nil {
		e.log.WithError(err).WithField("event", kind).Warn("failed to encode event")
		return nil, false
	}
	return msg, true
}

func (e *Events) emit(kind string, args ...any) []byte {
	msg, ok := e.encode(kind, args...)
	if ok {
		e.out.Broadcast(msg)
	}
	return msg
}

// Log broadcasts a free-form log line.
func (e *Events) Log(format string, args ...any) {
	e.emit(EventLog, fmt.Sprintf(format, args...))
}

// Replay sends the most recent room time to a newly connected client.
func (e *Events) Replay(c *Client) {
	if e.last != nil {
		e.out.SendTo(c, e.last)
	}
}

func (e *Events) StateChanged(c state.Change) {
	if lines := c.Description(); len(lines) > 0 {
		e.emit(EventStateChanged, lines)
	}
}

func (e *Events) Transitioned(transition.Transition) {}

func (e *Events) Reset(id transition.ID) {
	e.Log("Reset in %s", id.Room)
}

func (e *Events) PresetLoaded(s state.State, _ state.Change) {
	e.Log("Preset loaded in %s", s.Room)
}

func (e *Events) NewSegment(t transition.Transition) {
	e.emit(EventNewSegment, encodeID(t.ID))
}

func (e *Events) NewRoomTime(rt tracker.RoomTime) {
	e.last = e.emit(EventNewRoomTime, encodeRoomTime(rt))
}

// Fire implements logrus.Hook so that log lines reach connected clients.
func (e *Events) Fire(entry *logrus.Entry) error {
	msg, ok := e.encode(EventLog, entry.Message)
	if ok {
		e.out.Broadcast(msg)
	}
	return nil
}

// Levels implements logrus.Hook.
func (e *Events) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel, logrus.InfoLevel}
}

type roomJSON struct {
	ID   string `json:"room_id"`
	Name string `json:"name"`
}

type idJSON struct {
	RoomName      string `json:"room_name"`
	EntryRoomName string `json:"entry_room_name"`
	ExitRoomName  string `json:"exit_room_name"`
	RoomID        string `json:"room_id"`
	EntryRoomID   string `json:"entry_room_id"`
	ExitRoomID    string `json:"exit_room_id"`
	EntryDoorID   string `json:"entry_door_id"`
	ExitDoorID    string `json:"exit_door_id"`
	Items         string `json:"items"`
	Beams         string `json:"beams"`
}

type partsJSON struct {
	Game frames.Count `json:"game"`
	Real frames.Count `json:"real"`
	Lag  frames.Count `json:"lag"`
}

type timeJSON struct {
	Room partsJSON `json:"room"`
	Door partsJSON `json:"door"`
}

type roomTimeJSON struct {
	idJSON
	Attempts   int      `json:"attempts"`
	Time       timeJSON `json:"time"`
	BestTime   timeJSON `json:"best_time"`
	MeanTime   timeJSON `json:"mean_time"`
	MedianTime timeJSON `json:"median_time"`
	P25Time    timeJSON `json:"p25_time"`
	P75Time    timeJSON `json:"p75_time"`
}

type segmentJSON struct {
	Name       string       `json:"name"`
	Start      idJSON       `json:"start"`
	End        idJSON       `json:"end"`
	Time       timeJSON     `json:"time"`
	MedianTime frames.Count `json:"median_time"`
	BestTime   frames.Count `json:"best_time"`
}

type roomInSegmentJSON struct {
	Attempts   int          `json:"attempts"`
	Time       frames.Count `json:"time"`
	MedianTime frames.Count `json:"median_time"`
	BestTime   frames.Count `json:"best_time"`
}

type newRoomTimeJSON struct {
	Room          roomTimeJSON       `json:"room"`
	Segment       *segmentJSON       `json:"segment,omitempty"`
	RoomInSegment *roomInSegmentJSON `json:"room_in_segment,omitempty"`
}

func hex(id uint16) string {
	return fmt.Sprintf("%04x", id)
}

func encodeRoom(r rooms.Room) roomJSON {
	return roomJSON{ID: hex(r.ID), Name: r.Name}
}

func encodeID(id transition.ID) idJSON {
	entry, exit := encodeRoom(id.EntryRoom()), encodeRoom(id.ExitRoom())
	return idJSON{
		RoomName:      id.Room.Name,
		EntryRoomName: entry.Name,
		ExitRoomName:  exit.Name,
		RoomID:        hex(id.Room.ID),
		EntryRoomID:   entry.ID,
		ExitRoomID:    exit.ID,
		EntryDoorID:   hex(id.EntryDoor.ID),
		ExitDoorID:    hex(id.ExitDoor.ID),
		Items:         id.Items,
		Beams:         id.Beams,
	}
}

func encodeTime(t transition.Time) timeJSON {
	return timeJSON{
		Room: partsJSON{Game: t.GameTime, Real: t.RealTime, Lag: t.RoomLag},
		Door: partsJSON{Game: t.RealTimeDoor - t.DoorLag, Real: t.RealTimeDoor, Lag: t.DoorLag},
	}
}

// applySeries builds a time out of one statistic per list.
func applySeries(s *history.Series, f func(*stats.List) frames.Count) timeJSON {
	return encodeTime(transition.Time{
		GameTime:     f(&s.GameTimes),
		RealTime:     f(&s.RealTimes),
		RoomLag:      f(&s.RoomLagTimes),
		DoorLag:      f(&s.DoorTimes),
		RealTimeDoor: f(&s.DoorRealTimes),
	})
}

func percentileOf(p float64) func(*stats.List) frames.Count {
	return func(l *stats.List) frames.Count {
		c, _ := l.Percentile(p)
		return c
	}
}

func best(l *stats.List) frames.Count {
	if l.Count() == 0 {
		return 0
	}
	return l.Best()
}

func mean(l *stats.List) frames.Count {
	c, _ := l.Mean()
	return c
}

func encodeRoomTime(rt tracker.RoomTime) newRoomTimeJSON {
	a := rt.Attempts
	out := newRoomTimeJSON{Room: roomTimeJSON{
		idJSON:     encodeID(rt.Transition.ID),
		Attempts:   a.Len(),
		Time:       encodeTime(rt.Transition.Time),
		BestTime:   applySeries(&a.Series, best),
		MeanTime:   applySeries(&a.Series, mean),
		MedianTime: applySeries(&a.Series, percentileOf(50)),
		P25Time:    applySeries(&a.Series, percentileOf(25)),
		P75Time:    applySeries(&a.Series, percentileOf(75)),
	}}
	if p := rt.Segment; p != nil {
		out.Segment = encodeSegment(p.Attempt, p.New)
		if n := len(p.New.Transitions); n > 0 {
			last := p.New.Transitions[n-1]
			out.RoomInSegment = &roomInSegmentJSON{
				Attempts:   last.NumAttempts,
				Time:       rt.Transition.Time.TotalRealTime(),
				MedianTime: last.P50,
				BestTime:   last.P0,
			}
		}
	}
	return out
}

func encodeSegment(a *segment.Attempt, s *segment.AttemptStats) *segmentJSON {
	if a.Segment.Len() == 0 {
		return nil
	}
	return &segmentJSON{
		Name:       a.Segment.Name(),
		Start:      encodeID(a.Segment.Start()),
		End:        encodeID(a.Segment.End()),
		Time:       encodeTime(a.Time),
		MedianTime: s.P50,
		BestTime:   s.P0,
	}
}
