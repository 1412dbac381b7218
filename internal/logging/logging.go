// Package logging builds the logrus logger shared by every command.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Options select where log entries go.
type Options struct {
	// Verbose prints debug entries, including state changes, to Out.
	Verbose bool
	// Out defaults to stderr.
	Out io.Writer
	// DebugLog, when set, receives every entry as JSON.
	DebugLog io.Writer
}

// New returns a logger writing text to opts.Out and JSON to opts.DebugLog.
func New(opts Options) *logrus.Logger {
	if opts.Out == nil {
		opts.Out = os.Stderr
	}
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.InfoLevel)

	consoleLevel := logrus.InfoLevel
	if opts.Verbose {
		consoleLevel = logrus.DebugLevel
	}
	log.AddHook(&writerHook{
		w:         opts.Out,
		formatter: &logrus.TextFormatter{DisableTimestamp: true},
		levels:    levelsUpTo(consoleLevel),
	})

	if opts.DebugLog != nil {
		log.AddHook(&writerHook{
			w:         opts.DebugLog,
			formatter: &logrus.JSONFormatter{},
			levels:    levelsUpTo(logrus.DebugLevel),
		})
	}
	if opts.Verbose || opts.DebugLog != nil {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func levelsUpTo(upTo logrus.Level) []logrus.Level {
	var out []logrus.Level
	for _, l := range logrus.AllLevels {
		if l <= upTo {
			out = append(out, l)
		}
	}
	return out
}

type writerHook struct {
	mu        sync.Mutex
	w         io.Writer
	formatter logrus.Formatter
	levels    []logrus.Level
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.w.Write(line)
	return err
}

// OpenDebugLog opens path for appending.
func OpenDebugLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
