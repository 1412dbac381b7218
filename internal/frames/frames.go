// Package frames provides the 1/60-second frame count used for every
// duration the timer measures.
package frames

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PerSecond is the frame rate of the target game.
const PerSecond = 60

// Count is a number of frames. It may be negative when it represents a delta.
type Count int64

// Max is the sentinel used when no best time exists yet.
const Max = Count(math.MaxInt64)

// FromSeconds converts seconds to the nearest whole frame.
func FromSeconds(secs float64) Count {
	return Count(math.Round(secs * PerSecond))
}

// Parse reads the S'FF form produced by String for durations under a minute.
func Parse(s string) (Count, error) {
	secs, fr, ok := strings.Cut(s, "'")
	if !ok {
		return 0, fmt.Errorf("invalid frame count %q", s)
	}
	sv, err := strconv.Atoi(secs)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds in %q: %w", s, err)
	}
	fv, err := strconv.Atoi(fr)
	if err != nil {
		return 0, fmt.Errorf("invalid frames in %q: %w", s, err)
	}
	return Count(sv*PerSecond + fv), nil
}

// Seconds returns the count in seconds.
func (c Count) Seconds() float64 {
	return float64(c) / PerSecond
}

// Add returns c+o.
func (c Count) Add(o Count) Count {
	return c + o
}

// Sub returns c-o.
func (c Count) Sub(o Count) Count {
	return c - o
}

// IsMax reports whether c is the no-data sentinel.
func (c Count) IsMax() bool {
	return c == Max
}

// String formats the count as S'FF, or M:SS'FF from one minute upward.
func (c Count) String() string {
	if c == Max {
		return "-"
	}
	sign := ""
	n := int64(c)
	if n < 0 {
		sign = "-"
		n = -n
	}
	secs := n / PerSecond
	fr := n % PerSecond
	if secs < 60 {
		return fmt.Sprintf("%s%d'%02d", sign, secs, fr)
	}
	return fmt.Sprintf("%s%d:%02d'%02d", sign, secs/60, secs%60, fr)
}

// Signed formats the count with an explicit leading + for positive values.
func (c Count) Signed() string {
	if c > 0 {
		return "+" + c.String()
	}
	return c.String()
}
