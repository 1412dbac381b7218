// Package main provides the CLI entrypoint for smtimer.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/smtimer/internal/config"
)

const (
	defaultWebPort = 15000
	defaultListen  = "localhost"
	defaultHost    = "127.0.0.1"
	defaultWindow  = 10
)

var (
	logFile      string
	roomsFile    string
	doorsFile    string
	debugLogFile string
	debug        bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "smtimer",
		Short:         "Super Metroid practice room and segment timer",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&logFile, "file", "f", config.DefaultLogPath(), "transition log (CSV)")
	flags.StringVar(&roomsFile, "rooms", config.DefaultRoomsPath(), "rooms table (JSON or YAML)")
	flags.StringVar(&doorsFile, "doors", config.DefaultDoorsPath(), "doors table (JSON or YAML)")
	flags.BoolVar(&debug, "debug", false, "log debug messages, including state changes")
	flags.StringVar(&debugLogFile, "debug-log", "", "append JSON debug log to this file")

	rootCmd.AddCommand(newLiveCmd(modeRoom))
	rootCmd.AddCommand(newLiveCmd(modeSegment))
	rootCmd.AddCommand(newLiveCmd(modeWeb))
	rootCmd.AddCommand(newLiveCmd(modeTUI))
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newRebuildCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// loadFileConfig reads the config file and the environment and applies
// the values shared by every command.
func loadFileConfig(cmd *cobra.Command) (config.FileConfig, error) {
	fileCfg, err := config.Load(config.DefaultConfigPath(), nil)
	if err != nil {
		return config.FileConfig{}, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "file", &logFile, fileCfg.Timer.File)
	applyStringConfig(cmd, "rooms", &roomsFile, fileCfg.Timer.Rooms)
	applyStringConfig(cmd, "doors", &doorsFile, fileCfg.Timer.Doors)
	applyStringConfig(cmd, "debug-log", &debugLogFile, fileCfg.Timer.DebugLog)
	return fileCfg, nil
}

// tablePath returns path, or "" when it is the default and does not exist
// so that the built-in tables are used.
func tablePath(cmd *cobra.Command, name, path string) string {
	if cmd.Flags().Changed(name) {
		return path
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Lookup(name) == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Lookup(name) == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Lookup(name) == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# smtimer configuration
# Uncomment a value to enable it. CLI flags and SMTIMER_* environment
# variables override config values.

[timer]
# file = %q        # Transition log
# rooms = %q       # Rooms table (built-in when missing)
# doors = %q       # Doors table
# db = %q          # Session database ("" disables it)
# route = false           # Only record transitions on the discovered route
# usb2snes = false        # Read memory through usb2snes instead of RetroArch
# host = %q        # RetroArch host
# port = %d               # Websocket port for "smtimer web"
# listen = %q      # Websocket listen host
# metrics = false         # Serve Prometheus metrics at /metrics
# debug-log = ""          # Append JSON debug log to this file

[stats]
# iqr = false             # Save column is P75-P25 instead of P50-P0
# most-recent = false     # Show the most recent attempt
# splits = ""             # File with one split name per line
# window = %d             # Moving average window for progression
`,
		config.DefaultLogPath(),
		config.DefaultRoomsPath(),
		config.DefaultDoorsPath(),
		config.DefaultDBPath(),
		defaultHost,
		defaultWebPort,
		defaultListen,
		defaultWindow,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
