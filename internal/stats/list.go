// Package stats contains statistics calculations and reporting.
package stats

import (
	"math"
	"sort"

	"github.com/verte-zerg/smtimer/internal/frames"
)

// List is an append-only series of frame counts with running best tracking.
// Missing samples are remembered in Len but excluded from every aggregate.
// The zero value is an empty list.
type List struct {
	values   []frames.Count
	total    int
	best     frames.Count
	prevBest frames.Count
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

// Append adds a measured sample.
func (l *List) Append(c frames.Count) {
	if len(l.values) == 0 {
		l.prevBest = frames.Max
		l.best = c
	} else {
		l.prevBest = l.best
		l.best = min(l.best, c)
	}
	l.values = append(l.values, c)
	l.total++
}

// AppendMissing records an attempt for which this dimension was not measured.
func (l *List) AppendMissing() {
	l.total++
}

// Len returns the number of appended samples, missing ones included.
func (l *List) Len() int {
	return l.total
}

// Count returns the number of measured samples.
func (l *List) Count() int {
	return len(l.values)
}

// Values returns the measured samples in append order.
func (l *List) Values() []frames.Count {
	return l.values
}

// Best returns the smallest sample, or frames.Max when there is none.
func (l *List) Best() frames.Count {
	if len(l.values) == 0 {
		return frames.Max
	}
	return l.best
}

// PrevBest returns the best as it stood before the most recent append.
func (l *List) PrevBest() frames.Count {
	if len(l.values) == 0 {
		return frames.Max
	}
	return l.prevBest
}

// MostRecent returns the last measured sample.
func (l *List) MostRecent() (frames.Count, bool) {
	if len(l.values) == 0 {
		return 0, false
	}
	return l.values[len(l.values)-1], true
}

// Mean returns the arithmetic mean rounded to the nearest frame.
func (l *List) Mean() (frames.Count, bool) {
	if len(l.values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range l.values {
		sum += float64(v)
	}
	return frames.Count(math.Round(sum / float64(len(l.values)))), true
}

// Median returns the middle sample, averaging the two middles for even sizes.
func (l *List) Median() (frames.Count, bool) {
	return l.Percentile(50)
}

// Percentile returns the score at percentile p (0-100), linearly
// interpolating between the two closest ranks.
func (l *List) Percentile(p float64) (frames.Count, bool) {
	if len(l.values) == 0 {
		return 0, false
	}
	return frames.Count(math.Round(percentile(l.sorted(), p))), true
}

// AsPercentiles maps each distinct sample to the percentile rank of its
// best occurrence. Tied values share the lowest rank.
func (l *List) AsPercentiles() map[frames.Count]float64 {
	sorted := l.sorted()
	out := make(map[frames.Count]float64, len(sorted))
	n := len(sorted)
	for i := n - 1; i >= 0; i-- {
		rank := 0.0
		if n > 1 {
			rank = 100 * float64(i) / float64(n-1)
		}
		out[frames.Count(sorted[i])] = rank
	}
	return out
}

func (l *List) sorted() []float64 {
	out := make([]float64, len(l.values))
	for i, v := range l.values {
		out[i] = float64(v)
	}
	sort.Float64s(out)
	return out
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	idx := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Percentile computes the interpolated score at p for raw counts.
func Percentile(values []frames.Count, p float64) frames.Count {
	l := NewList()
	for _, v := range values {
		l.Append(v)
	}
	c, _ := l.Percentile(p)
	return c
}
