package transition

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/verte-zerg/smtimer/internal/rooms"
)

// Log receives every completed transition.
type Log interface {
	Write(t Transition) error
	Close() error
}

// FileLog appends transitions to a CSV file, flushing after every row.
type FileLog struct {
	file   *os.File
	writer *csv.Writer
}

// OpenFileLog opens path for appending and writes the header when the
// file is empty.
func OpenFileLog(path string) (*FileLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open transition log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat transition log: %w", err)
	}
	l := &FileLog{file: file, writer: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := l.writeRow(Header); err != nil {
			_ = file.Close()
			return nil, err
		}
	}
	return l, nil
}

// Write appends t and flushes it to disk.
func (l *FileLog) Write(t Transition) error {
	return l.writeRow(Row(t))
}

func (l *FileLog) writeRow(row []string) error {
	if err := l.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write transition: %w", err)
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush transition: %w", err)
	}
	return nil
}

// Close closes the file.
func (l *FileLog) Close() error {
	return l.file.Close()
}

// NullLog discards transitions.
type NullLog struct{}

func (NullLog) Write(Transition) error { return nil }
func (NullLog) Close() error           { return nil }

// NeedsRebuild reports whether the log at path was written with a header
// other than Header. A missing or empty file does not need a rebuild.
func NeedsRebuild(path string) (bool, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open transition log: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	line, err := bufio.NewReader(file).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read header: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return false, nil
	}
	return !IsCurrentHeader(strings.Split(line, ",")), nil
}

// Rebuild reads a log in any known layout from in and writes it to out in
// the current layout.
func Rebuild(in io.Reader, out io.Writer, reg *rooms.Registry) (int, error) {
	r, err := NewReader(in, reg)
	if err != nil {
		return 0, err
	}
	w := csv.NewWriter(out)
	if err := w.Write(Header); err != nil {
		return 0, err
	}
	n := 0
	for {
		t, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return n, err
		}
		if err := w.Write(Row(t)); err != nil {
			return n, err
		}
		n++
	}
	w.Flush()
	return n, w.Error()
}

// BackupAndRebuild rewrites the log at path in the current layout. The
// original is kept as path.bk, or path.bkN when that already exists.
func BackupAndRebuild(path string, reg *rooms.Registry) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open transition log: %w", err)
	}
	defer func() {
		_ = in.Close()
	}()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	keep := false
	defer func() {
		if !keep {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := Rebuild(in, tmp, reg); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to rebuild transition log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write rebuilt log: %w", err)
	}

	backup := path + ".bk"
	for idx := 1; ; idx++ {
		if _, err := os.Stat(backup); errors.Is(err, os.ErrNotExist) {
			break
		}
		backup = fmt.Sprintf("%s.bk%d", path, idx)
	}
	if err := os.Rename(path, backup); err != nil {
		return "", fmt.Errorf("failed to back up transition log: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to replace transition log: %w", err)
	}
	keep = true
	return backup, nil
}
