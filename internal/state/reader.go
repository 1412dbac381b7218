package state

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/verte-zerg/smtimer/internal/memory"
	"github.com/verte-zerg/smtimer/internal/rooms"
)

// ErrClosed is returned by ReadState once the reader has stopped.
var ErrClosed = errors.New("state reader closed")

// Source yields decoded states, blocking until one is available.
type Source interface {
	ReadState(ctx context.Context) (State, error)
}

// ReadHook is notified after every memory read attempt.
type ReadHook func(err error)

// PollingReader samples a memory source on its own goroutine and queues
// decoded states so a slow consumer never delays sampling.
type PollingReader struct {
	mem      memory.Source
	reg      *rooms.Registry
	log      logrus.FieldLogger
	interval time.Duration
	states   chan State
	onRead   ReadHook
	done     chan struct{}
}

// ReaderOptions configures a PollingReader.
type ReaderOptions struct {
	Interval time.Duration
	Buffer   int
	Logger   logrus.FieldLogger
	OnRead   ReadHook
}

// NewPollingReader returns a reader that has not started yet.
func NewPollingReader(mem memory.Source, reg *rooms.Registry, opts ReaderOptions) *PollingReader {
	if opts.Interval <= 0 {
		opts.Interval = time.Second / 60
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 600
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &PollingReader{
		mem:      mem,
		reg:      reg,
		log:      opts.Logger,
		interval: opts.Interval,
		states:   make(chan State, opts.Buffer),
		onRead:   opts.OnRead,
		done:     make(chan struct{}),
	}
}

// Run samples until ctx is cancelled. It closes the state queue on return.
func (p *PollingReader) Run(ctx context.Context) {
	defer close(p.done)
	defer close(p.states)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	prev := NullState
	for {
		s, err := p.sample(ctx, prev)
		if p.onRead != nil {
			p.onRead(err)
		}
		if err != nil {
			p.log.WithError(err).Debug("memory read failed")
		} else {
			select {
			case p.states <- s:
				prev = s
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (p *PollingReader) sample(ctx context.Context, prev State) (State, error) {
	readShip := NeedsShip(prev)
	snap, err := p.mem.ReadSnapshot(ctx, Ranges(readShip))
	if err != nil {
		return NullState, err
	}
	return Decode(snap, p.reg, readShip)
}

// ReadState returns the next queued state.
func (p *PollingReader) ReadState(ctx context.Context) (State, error) {
	select {
	case s, ok := <-p.states:
		if !ok {
			return NullState, ErrClosed
		}
		return s, nil
	case <-ctx.Done():
		return NullState, ctx.Err()
	}
}

// Done is closed when Run has returned.
func (p *PollingReader) Done() <-chan struct{} {
	return p.done
}
