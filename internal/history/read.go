package history

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/transition"
)

// ReadLog loads a history from the transition log at path. A missing file
// yields an empty history.
func ReadLog(path string, reg *rooms.Registry) (*History, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open transition log: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()
	return ReadCSV(file, reg)
}

// ReadCSV loads a history from a transition log in the current layout.
func ReadCSV(r io.Reader, reg *rooms.Registry) (*History, error) {
	h := New()
	br := bufio.NewReader(r)
	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		return h, nil
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if !transition.IsCurrentHeader(header) {
		return nil, transition.ErrNeedsRebuild
	}
	cols := transition.NewColumns(header)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		t, err := cols.Decode(row, reg)
		if err != nil {
			return nil, fmt.Errorf("failed to decode line %d: %w", line, err)
		}
		h.Record(t, true)
	}
	return h, nil
}
