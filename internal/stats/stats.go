package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/verte-zerg/smtimer/internal/frames"
)

const (
	sparkChars          = " .:-=+*#%@"
	terminalWidthBackup = 80
)

// Bucket ranks a time against the attempts of the same transition.
type Bucket int

const (
	BucketBest Bucket = iota
	BucketP25
	BucketP50
	BucketP75
	BucketWorse
)

// Color returns the 256-colour palette index used for the bucket.
func (b Bucket) Color() int {
	switch b {
	case BucketBest:
		return 214
	case BucketP25:
		return 40
	case BucketP50:
		return 148
	case BucketP75:
		return 204
	default:
		return 196
	}
}

// Classify places t in the distribution of l. An empty list ranks
// everything as a best.
func Classify(t frames.Count, l *List) Bucket {
	if l == nil || l.Count() == 0 || t <= l.Best() {
		return BucketBest
	}
	if p, _ := l.Percentile(25); t <= p {
		return BucketP25
	}
	if p, _ := l.Median(); t <= p {
		return BucketP50
	}
	if p, _ := l.Percentile(75); t <= p {
		return BucketP75
	}
	return BucketWorse
}

// Colorize wraps s in the ANSI escape for a 256-colour foreground.
func Colorize(s string, color int) string {
	return fmt.Sprintf("\x1b[38;5;%dm%s\x1b[m", color, s)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 || len(values) == 0 {
		copy(out, values)
		return out
	}
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		den := float64(i + 1)
		if i >= window {
			sum -= values[i-window]
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// CountsToFloats converts frame counts to seconds for plotting.
func CountsToFloats(values []frames.Count) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Seconds()
	}
	return out
}

// TerminalWidth returns the width of stdout, or 80 when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// UseColor reports whether w is a terminal that should receive ANSI colours.
func UseColor(w io.Writer, force bool) bool {
	if force {
		return true
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
