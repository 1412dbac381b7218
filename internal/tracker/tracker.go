// Package tracker records the transitions produced by a timer into the
// history, the transition log and the session store.
package tracker

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/route"
	"github.com/verte-zerg/smtimer/internal/segment"
	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// Mirror receives a copy of everything the tracker records.
type Mirror interface {
	InsertTransition(ctx context.Context, t transition.Transition) error
	InsertReset(ctx context.Context, id transition.ID) error
}

// SegmentProgress is the live attempt a room time belongs to. Old holds
// the statistics as they were before each transition was recorded, New
// the statistics after.
type SegmentProgress struct {
	Attempt *segment.Attempt
	Old     *segment.AttemptStats
	New     *segment.AttemptStats
}

// RoomTime is a recorded transition together with its history.
type RoomTime struct {
	Transition transition.Transition
	Attempts   *history.Attempts
	History    *history.History
	// Segment is nil unless the tracker follows segments.
	Segment *SegmentProgress
}

// Listener is notified of recorded times.
type Listener interface {
	NewRoomTime(rt RoomTime)
	NewSegment(t transition.Transition)
}

// ListenerFuncs adapts plain functions to Listener.
type ListenerFuncs struct {
	OnNewRoomTime func(RoomTime)
	OnNewSegment  func(transition.Transition)
}

func (f ListenerFuncs) NewRoomTime(rt RoomTime) {
	if f.OnNewRoomTime != nil {
		f.OnNewRoomTime(rt)
	}
}

func (f ListenerFuncs) NewSegment(t transition.Transition) {
	if f.OnNewSegment != nil {
		f.OnNewSegment(t)
	}
}

// Options configure a tracker.
type Options struct {
	Logger   logrus.FieldLogger
	Listener Listener
	// Mirror is optional.
	Mirror Mirror
}

// RoomTimeTracker records every transition that belongs to the route.
// While the route is still incomplete each transition extends it.
type RoomTimeTracker struct {
	history  *history.History
	log      transition.Log
	route    route.Recorder
	mirror   Mirror
	listener Listener
	logger   logrus.FieldLogger
}

// NewRoomTimeTracker returns a tracker writing to log. r may be
// route.Dummy{} to record everything.
func NewRoomTimeTracker(h *history.History, log transition.Log, r route.Recorder, opts Options) *RoomTimeTracker {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Listener == nil {
		opts.Listener = ListenerFuncs{}
	}
	if log == nil {
		log = transition.NullLog{}
	}
	return &RoomTimeTracker{
		history:  h,
		log:      log,
		route:    r,
		mirror:   opts.Mirror,
		listener: opts.Listener,
		logger:   opts.Logger,
	}
}

// History returns the history being recorded into.
func (r *RoomTimeTracker) History() *history.History {
	return r.history
}

// Route returns the route used for gating.
func (r *RoomTimeTracker) Route() route.Recorder {
	return r.route
}

func (r *RoomTimeTracker) StateChanged(state.Change) {}

func (r *RoomTimeTracker) PresetLoaded(state.State, state.Change) {}

// Transitioned records t unless the route is complete and t is not part
// of it.
func (r *RoomTimeTracker) Transitioned(t transition.Transition) {
	if !r.route.Complete() {
		r.route.Record(t.ID)
		if r.route.Complete() {
			r.logger.Info("GG! Route is complete!")
		}
	} else if !r.route.Contains(t.ID) {
		r.logger.WithField("transition", t.ID.String()).Info("Ignoring transition (not in route)")
		return
	}

	attempts := r.history.Record(t, false)
	if err := r.log.Write(t); err != nil {
		r.logger.WithError(err).Error("failed to write transition log")
	}
	if r.mirror != nil {
		if err := r.mirror.InsertTransition(context.Background(), t); err != nil {
			r.logger.WithError(err).Warn("failed to store transition")
		}
	}
	r.listener.NewRoomTime(RoomTime{Transition: t, Attempts: attempts, History: r.history})
}

// Reset counts a reset under id.
func (r *RoomTimeTracker) Reset(id transition.ID) {
	r.history.RecordReset(id)
	if r.mirror != nil {
		if err := r.mirror.InsertReset(context.Background(), id); err != nil {
			r.logger.WithError(err).Warn("failed to store reset")
		}
	}
}

// Close closes the transition log.
func (r *RoomTimeTracker) Close() error {
	return r.log.Close()
}

// SegmentTimeTracker follows the live attempt through a segment. A new
// segment starts with the first route transition after a reset or a
// preset load.
type SegmentTimeTracker struct {
	room       *RoomTimeTracker
	listener   Listener
	current    *segment.Attempt
	oldStats   *segment.AttemptStats
	newStats   *segment.AttemptStats
	newSegment bool
}

// NewSegmentTimeTracker returns a tracker writing to log.
func NewSegmentTimeTracker(h *history.History, log transition.Log, r route.Recorder, opts Options) *SegmentTimeTracker {
	s := &SegmentTimeTracker{listener: opts.Listener, newSegment: true}
	if s.listener == nil {
		s.listener = ListenerFuncs{}
	}
	opts.Listener = ListenerFuncs{OnNewRoomTime: s.newRoomTime}
	s.room = NewRoomTimeTracker(h, log, r, opts)
	return s
}

// History returns the history being recorded into.
func (s *SegmentTimeTracker) History() *history.History {
	return s.room.history
}

// Progress returns the live attempt, or nil before the first segment.
func (s *SegmentTimeTracker) Progress() *SegmentProgress {
	if s.current == nil {
		return nil
	}
	return &SegmentProgress{Attempt: s.current, Old: s.oldStats, New: s.newStats}
}

func (s *SegmentTimeTracker) StateChanged(state.Change) {}

// Transitioned extends the live attempt with t, starting a new one if
// needed, and records t.
func (s *SegmentTimeTracker) Transitioned(t transition.Transition) {
	r := s.room.route
	if s.newSegment && (!r.Complete() || r.Contains(t.ID)) {
		s.listener.NewSegment(t)
		s.current = segment.NewAttempt()
		s.oldStats = segment.NewAttemptStats(s.room.history)
		s.newStats = segment.NewAttemptStats(s.room.history)
		s.newSegment = false
	}
	if s.current != nil {
		s.current.Append(t)
		s.oldStats.Append(t, s.current)
	}
	s.room.Transitioned(t)
}

func (s *SegmentTimeTracker) newRoomTime(rt RoomTime) {
	if s.current != nil {
		s.newStats.Append(rt.Transition, s.current)
		rt.Segment = s.Progress()
	}
	s.listener.NewRoomTime(rt)
}

// Reset counts the reset and ends the live attempt.
func (s *SegmentTimeTracker) Reset(id transition.ID) {
	s.newSegment = true
	s.room.Reset(id)
}

// PresetLoaded ends the live attempt.
func (s *SegmentTimeTracker) PresetLoaded(st state.State, c state.Change) {
	s.newSegment = true
	s.room.PresetLoaded(st, c)
}

// Close closes the transition log.
func (s *SegmentTimeTracker) Close() error {
	return s.room.Close()
}
