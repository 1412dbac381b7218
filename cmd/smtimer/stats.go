package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/smtimer/internal/config"
	"github.com/verte-zerg/smtimer/internal/history"
	"github.com/verte-zerg/smtimer/internal/logging"
	"github.com/verte-zerg/smtimer/internal/model"
	"github.com/verte-zerg/smtimer/internal/report"
	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/route"
	"github.com/verte-zerg/smtimer/internal/segment"
	"github.com/verte-zerg/smtimer/internal/statsui"
	"github.com/verte-zerg/smtimer/internal/store"
	"github.com/verte-zerg/smtimer/internal/transition"
)

var (
	statsRoute      bool
	statsStart      string
	statsEnd        string
	statsItems      bool
	statsBeams      bool
	statsIQR        bool
	statsMostRecent bool
	statsSegments   []string
	statsSplits     []string
	statsSplitsFile string
	statsBrief      bool
	statsWindow     int
	statsDB         string
	statsSince      string

	rebuildOutput string
)

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics from the transition log",
	}
	flags := cmd.PersistentFlags()
	flags.BoolVar(&statsRoute, "route", false, "only show transitions on the route")
	flags.StringVar(&statsStart, "start", "", "first room to show")
	flags.StringVar(&statsEnd, "end", "", "room to stop before")
	flags.BoolVar(&statsIQR, "iqr", false, "save column is P75-P25 instead of P50-P0")
	flags.StringArrayVar(&statsSegments, "segment", nil, "segment as \"Start to End\" (repeatable)")
	flags.StringArrayVar(&statsSplits, "split", nil, "split room name (repeatable)")
	flags.StringVar(&statsSplitsFile, "splits", "", "file with one split name per line")
	flags.IntVar(&statsWindow, "window", defaultWindow, "moving average window for progression")
	flags.StringVar(&statsDB, "db", config.DefaultDBPath(), "session database")

	roomsCmd := &cobra.Command{
		Use:   "rooms",
		Short: "Per-room times along the route",
		Args:  cobra.NoArgs,
		RunE:  runStatsRoomsCmd,
	}
	roomsCmd.Flags().BoolVar(&statsItems, "items", false, "show items column")
	roomsCmd.Flags().BoolVar(&statsBeams, "beams", false, "show beams column")
	roomsCmd.Flags().BoolVar(&statsMostRecent, "most-recent", false, "show the most recent attempt")

	segmentsCmd := &cobra.Command{
		Use:   "segments",
		Short: "Segment success rates and times",
		Args:  cobra.NoArgs,
		RunE:  runStatsSegmentsCmd,
	}
	segmentsCmd.Flags().BoolVar(&statsBrief, "brief", false, "only show segment times")

	progressionCmd := &cobra.Command{
		Use:   "progression",
		Short: "Route time after every transition",
		Args:  cobra.NoArgs,
		RunE:  runStatsProgressionCmd,
	}

	sessionsCmd := &cobra.Command{
		Use:   "sessions",
		Short: "Recorded timer sessions",
		Args:  cobra.NoArgs,
		RunE:  runStatsSessionsCmd,
	}
	sessionsCmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse statistics in a terminal UI",
		Args:  cobra.NoArgs,
		RunE:  runStatsBrowseCmd,
	}

	cmd.AddCommand(roomsCmd, segmentsCmd, progressionCmd, sessionsCmd, browseCmd)
	return cmd
}

type statsInput struct {
	cfg     model.StatsConfig
	log     *logrus.Logger
	reg     *rooms.Registry
	history *history.History
}

func loadStats(cmd *cobra.Command) (statsInput, error) {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return statsInput{}, err
	}
	st := fileCfg.Stats
	applyBoolConfig(cmd, "iqr", &statsIQR, st.IQR)
	applyBoolConfig(cmd, "most-recent", &statsMostRecent, st.MostRecent)
	applyStringConfig(cmd, "splits", &statsSplitsFile, st.Splits)
	applyIntConfig(cmd, "window", &statsWindow, st.Window)
	applyStringConfig(cmd, "db", &statsDB, fileCfg.Timer.DB)

	if statsWindow < 1 {
		return statsInput{}, fmt.Errorf("--window must be >= 1")
	}

	in := statsInput{cfg: model.StatsConfig{
		Route:      statsRoute,
		StartRoom:  statsStart,
		EndRoom:    statsEnd,
		Items:      statsItems,
		Beams:      statsBeams,
		IQR:        statsIQR,
		MostRecent: statsMostRecent,
		Segments:   statsSegments,
		Splits:     statsSplits,
		SplitsPath: statsSplitsFile,
		Brief:      statsBrief,
		Window:     statsWindow,
	}}
	in.log = logging.New(logging.Options{Verbose: debug})

	in.reg, err = rooms.Load(tablePath(cmd, "rooms", roomsFile), tablePath(cmd, "doors", doorsFile), in.log)
	if err != nil {
		return statsInput{}, err
	}
	in.history, err = history.ReadLog(logFile, in.reg)
	if err != nil {
		return statsInput{}, fmt.Errorf("failed to read transition log: %w", err)
	}
	return in, nil
}

func (in statsInput) route() *route.Route {
	r := route.Build(in.history, in.log)
	r.Quiet()
	return r
}

func (in statsInput) routeIDs() []transition.ID {
	if in.cfg.Route {
		return in.route().IDs()
	}
	return in.history.IDs()
}

func (in statsInput) segments() ([]segment.Segment, error) {
	splitNames := append([]string(nil), in.cfg.Splits...)
	if in.cfg.SplitsPath != "" {
		names, err := segment.ReadSplitNames(in.cfg.SplitsPath)
		if err != nil {
			return nil, err
		}
		splitNames = append(splitNames, names...)
	}
	if len(in.cfg.Segments) == 0 && len(splitNames) == 0 {
		return nil, nil
	}
	return segment.FromSegmentAndSplitNames(in.cfg.Segments, splitNames, in.reg, in.route())
}

func (in statsInput) routeOptions() segment.RouteStatsOptions {
	return segment.RouteStatsOptions{
		TransitionStatsOptions: segment.TransitionStatsOptions{IQR: in.cfg.IQR},
		StartRoom:              in.cfg.StartRoom,
		EndRoom:                in.cfg.EndRoom,
	}
}

func runStatsRoomsCmd(cmd *cobra.Command, _ []string) error {
	in, err := loadStats(cmd)
	if err != nil {
		return err
	}
	rows := segment.RouteStats(in.routeIDs(), in.history, in.routeOptions())
	return report.Write(cmd.OutOrStdout(), report.Route(rows, in.cfg))
}

func runStatsSegmentsCmd(cmd *cobra.Command, _ []string) error {
	in, err := loadStats(cmd)
	if err != nil {
		return err
	}
	segs, err := in.segments()
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return fmt.Errorf("no segments given (use --segment, --split or --splits)")
	}
	lines := report.Segments(segment.NewStats(segs, in.history), in.cfg.Brief)
	if !in.cfg.Brief {
		segHistory := segment.BuildSegmentHistory(segs, in.history)
		for _, seg := range segs {
			lines = append(lines, "")
			lines = append(lines, report.Rooms(seg, segment.RoomStats(seg, in.history, segHistory))...)
		}
	}
	return report.Write(cmd.OutOrStdout(), lines)
}

func runStatsProgressionCmd(cmd *cobra.Command, _ []string) error {
	in, err := loadStats(cmd)
	if err != nil {
		return err
	}
	points := segment.Progression(in.history.All(), in.routeOptions())
	return report.Write(cmd.OutOrStdout(), report.Progression(points, in.cfg.Window))
}

func runStatsSessionsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := loadFileConfig(cmd)
	if err != nil {
		return err
	}
	applyStringConfig(cmd, "db", &statsDB, fileCfg.Timer.DB)
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	st, err := store.Open(statsDB)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	sessions, err := st.ListSessions(context.Background(), sinceTime)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	return report.Write(cmd.OutOrStdout(), report.Sessions(sessions))
}

func runStatsBrowseCmd(cmd *cobra.Command, _ []string) error {
	in, err := loadStats(cmd)
	if err != nil {
		return err
	}
	segs, err := in.segments()
	if err != nil {
		return err
	}
	data := statsui.Data{History: in.history, Segments: segs}
	if in.cfg.Route {
		data.Route = in.route()
	}
	if statsDB != "" {
		st, err := store.Open(statsDB)
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				logErrf("failed to close db: %v\n", cerr)
			}
		}()
		data.Sessions = st
	}

	m := statsui.NewModel(data, in.cfg)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newRebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rewrite the transition log with the current header",
		Args:  cobra.NoArgs,
		RunE:  runRebuildCmd,
	}
	cmd.Flags().StringVarP(&rebuildOutput, "output", "o", "", "write the rebuilt log here instead of replacing it")
	return cmd
}

func runRebuildCmd(cmd *cobra.Command, _ []string) error {
	if _, err := loadFileConfig(cmd); err != nil {
		return err
	}
	log := logging.New(logging.Options{Verbose: debug})
	reg, err := rooms.Load(tablePath(cmd, "rooms", roomsFile), tablePath(cmd, "doors", doorsFile), log)
	if err != nil {
		return err
	}

	if rebuildOutput == "" {
		backup, err := transition.BackupAndRebuild(logFile, reg)
		if err != nil {
			return err
		}
		log.Infof("Rebuilt %s, original kept as %s", logFile, backup)
		return nil
	}

	in, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open transition log: %w", err)
	}
	defer func() {
		_ = in.Close()
	}()
	out, err := os.Create(rebuildOutput)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	n, err := transition.Rebuild(in, out, reg)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to rebuild transition log: %w", err)
	}
	log.Infof("Wrote %d transitions to %s", n, rebuildOutput)
	return nil
}
