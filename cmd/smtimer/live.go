package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/smtimer/internal/config"
	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/logging"
	"github.com/verte-zerg/smtimer/internal/memory"
	"github.com/verte-zerg/smtimer/internal/memory/retroarch"
	"github.com/verte-zerg/smtimer/internal/memory/usb2snes"
	"github.com/verte-zerg/smtimer/internal/metrics"
	"github.com/verte-zerg/smtimer/internal/model"
	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/route"
	"github.com/verte-zerg/smtimer/internal/state"
	"github.com/verte-zerg/smtimer/internal/stats"
	"github.com/verte-zerg/smtimer/internal/store"
	"github.com/verte-zerg/smtimer/internal/terminal"
	"github.com/verte-zerg/smtimer/internal/timer"
	"github.com/verte-zerg/smtimer/internal/tracker"
	"github.com/verte-zerg/smtimer/internal/transition"
	"github.com/verte-zerg/smtimer/internal/tui"
	"github.com/verte-zerg/smtimer/internal/web"
)

type liveMode string

const (
	modeRoom    liveMode = "room"
	modeSegment liveMode = "segment"
	modeWeb     liveMode = "web"
	modeTUI     liveMode = "tui"
)

var liveShort = map[liveMode]string{
	modeRoom:    "Live room timer",
	modeSegment: "Live segment timer",
	modeWeb:     "Live segment timer broadcasting to websocket clients",
	modeTUI:     "Live segment timer in a terminal UI",
}

var (
	liveRoute    bool
	liveUsb2Snes bool
	liveRebuild  bool
	liveVerbose  bool
	liveColor    bool
	liveDB       string
	liveHost     string
	liveEmuPort  int
	liveSnesAddr string
	livePort     int
	liveListen   string
	liveMetrics  bool
)

func newLiveCmd(mode liveMode) *cobra.Command {
	cmd := &cobra.Command{
		Use:   string(mode),
		Short: liveShort[mode],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLiveCmd(cmd, mode)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&liveRoute, "route", false, "only record transitions on the discovered route")
	flags.BoolVar(&liveUsb2Snes, "usb2snes", false, "read memory through usb2snes instead of RetroArch")
	flags.BoolVar(&liveRebuild, "rebuild", false, "rebuild the transition log if its header is outdated")
	flags.BoolVar(&liveVerbose, "verbose", false, "print one line per room instead of the room header")
	flags.BoolVar(&liveColor, "color", false, "force coloured output")
	flags.StringVar(&liveDB, "db", config.DefaultDBPath(), "session database (empty disables it)")
	flags.StringVar(&liveHost, "host", defaultHost, "RetroArch host")
	flags.IntVar(&liveEmuPort, "emulator-port", retroarch.DefaultPort, "RetroArch network command port")
	flags.StringVar(&liveSnesAddr, "usb2snes-addr", usb2snes.DefaultAddr, "usb2snes server address")
	if mode == modeWeb {
		flags.IntVar(&livePort, "port", defaultWebPort, "websocket port")
		flags.StringVar(&liveListen, "listen", defaultListen, "websocket listen host")
		flags.BoolVar(&liveMetrics, "metrics", false, "serve Prometheus metrics at /metrics")
	}
	return cmd
}

func runLiveCmd(cmd *cobra.Command, mode liveMode) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	t := fileCfg.Timer
	applyBoolConfig(cmd, "route", &liveRoute, t.Route)
	applyBoolConfig(cmd, "usb2snes", &liveUsb2Snes, t.Usb2Snes)
	applyStringConfig(cmd, "db", &liveDB, t.DB)
	applyStringConfig(cmd, "host", &liveHost, t.Host)
	applyIntConfig(cmd, "port", &livePort, t.Port)
	applyStringConfig(cmd, "listen", &liveListen, t.Listen)
	applyBoolConfig(cmd, "metrics", &liveMetrics, t.Metrics)

	cfg := model.Config{
		LogPath:   logFile,
		RoomsPath: tablePath(cmd, "rooms", roomsFile),
		DoorsPath: tablePath(cmd, "doors", doorsFile),
		DBPath:    liveDB,
		Route:     liveRoute,
		Usb2Snes:  liveUsb2Snes,
		Rebuild:   liveRebuild,
		Host:      liveHost,
		Port:      liveEmuPort,
		Metrics:   liveMetrics,
	}
	if mode == modeWeb {
		cfg.WebAddr = net.JoinHostPort(liveListen, strconv.Itoa(livePort))
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var console io.Writer = os.Stderr
	if mode == modeTUI {
		console = io.Discard
	}
	s, err := openSession(ctx, cfg, console)
	if err != nil {
		return err
	}
	defer s.Close()

	switch mode {
	case modeRoom:
		return s.runRoom(ctx)
	case modeSegment:
		return s.runSegment(ctx)
	case modeWeb:
		return s.runWeb(ctx)
	default:
		return s.runTUI(ctx)
	}
}

func validateConfig(cfg model.Config) error {
	if cfg.LogPath == "" {
		return fmt.Errorf("--file must not be empty")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("--emulator-port must be between 1 and 65535")
	}
	if cfg.WebAddr != "" && (livePort <= 0 || livePort > 65535) {
		return fmt.Errorf("--port must be between 1 and 65535")
	}
	return nil
}

// session owns everything a live timer needs, from the logger to the
// memory source.
type session struct {
	cfg      model.Config
	log      *logrus.Logger
	debugLog *os.File
	reg      *rooms.Registry
	history  *history.History
	route    route.Recorder
	file     transition.Log
	store    *store.Store
	metrics  *metrics.Metrics
	mem      io.Closer
	reader   *state.PollingReader
	color    bool
}

func openSession(ctx context.Context, cfg model.Config, console io.Writer) (s *session, err error) {
	s = &session{cfg: cfg, color: stats.UseColor(os.Stdout, liveColor)}
	defer func() {
		if err != nil {
			s.Close()
		}
	}()

	if debugLogFile != "" {
		s.debugLog, err = logging.OpenDebugLog(debugLogFile)
		if err != nil {
			return s, err
		}
	}
	opts := logging.Options{Verbose: debug, Out: console}
	if s.debugLog != nil {
		opts.DebugLog = s.debugLog
	}
	s.log = logging.New(opts)

	s.reg, err = rooms.Load(cfg.RoomsPath, cfg.DoorsPath, s.log)
	if err != nil {
		return s, err
	}

	needs, err := transition.NeedsRebuild(cfg.LogPath)
	if err != nil {
		return s, err
	}
	if needs {
		if !cfg.Rebuild {
			return s, fmt.Errorf("%w: %s (rerun with --rebuild)", transition.ErrNeedsRebuild, cfg.LogPath)
		}
		backup, err := transition.BackupAndRebuild(cfg.LogPath, s.reg)
		if err != nil {
			return s, err
		}
		s.log.Infof("Rebuilt %s, original kept as %s", cfg.LogPath, backup)
	}

	s.history, err = history.ReadLog(cfg.LogPath, s.reg)
	if err != nil {
		return s, fmt.Errorf("failed to read transition log: %w", err)
	}
	s.log.Infof("Read %d transitions from %s", s.history.Len(), cfg.LogPath)

	if cfg.Route {
		r := route.Build(s.history, s.log)
		s.route = r
		if r.Complete() {
			s.log.Infof("Route is complete with %d transitions", r.Len())
		} else {
			s.log.Info("Route is incomplete, recording it")
		}
	} else {
		s.route = route.Dummy{}
	}

	if cfg.DBPath != "" {
		if err := s.openStore(ctx); err != nil {
			return s, err
		}
	}

	file, err := transition.OpenFileLog(cfg.LogPath)
	if err != nil {
		return s, err
	}
	s.file = file

	if cfg.Metrics {
		s.metrics = metrics.New()
	}

	var mem memory.Source
	if cfg.Usb2Snes {
		c, err := usb2snes.Dial(ctx, usb2snes.Options{Addr: liveSnesAddr, Logger: s.log})
		if err != nil {
			return s, err
		}
		mem, s.mem = c, c
	} else {
		c, err := retroarch.Dial(ctx, retroarch.Options{Host: cfg.Host, Port: cfg.Port, Logger: s.log})
		if err != nil {
			return s, err
		}
		mem, s.mem = c, c
	}

	readerOpts := state.ReaderOptions{Logger: s.log}
	if s.metrics != nil {
		readerOpts.OnRead = s.metrics.ObserveRead
	}
	s.reader = state.NewPollingReader(mem, s.reg, readerOpts)
	return s, nil
}

func (s *session) openStore(ctx context.Context) error {
	st, err := store.Open(s.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	s.store = st
	if _, err := st.StartSession(ctx, s.cfg.LogPath, time.Now()); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	counts, err := st.ResetCounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load resets: %w", err)
	}
	for _, c := range counts {
		s.history.AddResets(c.Key, c.Count)
	}
	return nil
}

// Close releases everything openSession acquired.
func (s *session) Close() {
	if s.mem != nil {
		if err := s.mem.Close(); err != nil {
			s.log.WithError(err).Debug("failed to close memory source")
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			logErrf("failed to close transition log: %v\n", err)
		}
	}
	if s.store != nil {
		if err := s.store.EndSession(context.Background(), time.Now()); err != nil {
			logErrf("failed to end session: %v\n", err)
		}
		if err := s.store.Close(); err != nil {
			logErrf("failed to close db: %v\n", err)
		}
	}
	if s.debugLog != nil {
		_ = s.debugLog.Close()
	}
}

func (s *session) trackerOptions(l tracker.Listener) tracker.Options {
	opts := tracker.Options{Logger: s.log, Listener: l}
	if s.store != nil {
		opts.Mirror = s.store
	}
	return opts
}

// run polls until ctx is cancelled. Observers see each state in order.
func (s *session) run(ctx context.Context, onTick func(), observers ...timer.Observer) error {
	tm := timer.New(s.reader, s.reg, timer.Options{Logger: s.log, OnTick: onTick})
	for _, o := range observers {
		tm.Subscribe(o)
	}
	if s.metrics != nil {
		tm.Subscribe(s.metrics)
	}

	readerCtx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		<-s.reader.Done()
	}()
	go s.reader.Run(readerCtx)

	err := tm.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *session) terminalOptions() terminal.Options {
	return terminal.Options{Logger: s.log, Verbose: liveVerbose, Color: s.color}
}

func (s *session) runRoom(ctx context.Context) error {
	front := terminal.NewRoomFrontend(os.Stdout, s.terminalOptions())
	tr := tracker.NewRoomTimeTracker(s.history, s.file, s.route, s.trackerOptions(front))
	return s.run(ctx, nil, front, tr)
}

func (s *session) runSegment(ctx context.Context) error {
	front := terminal.NewSegmentFrontend(os.Stdout, s.terminalOptions())
	tr := tracker.NewSegmentTimeTracker(s.history, s.file, s.route, s.trackerOptions(front))
	return s.run(ctx, nil, front, tr)
}

func (s *session) runWeb(ctx context.Context) error {
	srvOpts := web.Options{Logger: s.log}
	if s.metrics != nil {
		srvOpts.Metrics = s.metrics.Handler()
		srvOpts.OnClients = s.metrics.SetClients
	}
	srv := web.NewServer(srvOpts)
	events := web.NewEvents(srv, s.log)
	s.log.AddHook(events)

	front := terminal.NewSegmentFrontend(os.Stdout, s.terminalOptions())
	tr := tracker.NewSegmentTimeTracker(s.history, s.file, s.route, s.trackerOptions(listeners{front, events}))

	go srv.Run(ctx)
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe(ctx, s.cfg.WebAddr)
	}()
	s.log.Infof("Serving websocket on ws://%s", s.cfg.WebAddr)

	// Clients that connect get the last room time on the poll goroutine,
	// which owns the event state.
	onTick := func() {
		for {
			select {
			case c := <-srv.Connected():
				events.Replay(c)
			default:
				return
			}
		}
	}
	pollErr := s.run(ctx, onTick, front, events, tr)
	select {
	case err := <-errc:
		if err != nil && pollErr == nil {
			return fmt.Errorf("failed to serve websocket: %w", err)
		}
	default:
	}
	return pollErr
}

func (s *session) runTUI(ctx context.Context) error {
	m := tui.NewModel()
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	feed := tui.NewFeed(program, s.color)
	s.log.AddHook(feed)
	tr := tracker.NewSegmentTimeTracker(s.history, s.file, s.route, s.trackerOptions(feed))

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		err := s.run(pollCtx, nil, feed, tr)
		program.Send(tui.QuitMsg{Err: err})
		done <- err
	}()

	_, runErr := program.Run()
	cancel()
	pollErr := <-done
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("failed to run TUI: %w", runErr)
	}
	return pollErr
}

// listeners fans tracker notifications out in order.
type listeners []tracker.Listener

func (ls listeners) NewRoomTime(rt tracker.RoomTime) {
	for _, l := range ls {
		l.NewRoomTime(rt)
	}
}

func (ls listeners) NewSegment(t transition.Transition) {
	for _, l := range ls {
		l.NewSegment(t)
	}
}
