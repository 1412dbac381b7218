package stats

import (
	"testing"

	"github.com/verte-zerg/smtimer/internal/frames"
)

func listOf(values ...frames.Count) *List {
	l := NewList()
	for _, v := range values {
		l.Append(v)
	}
	return l
}

func TestBestBeforeAnyData(t *testing.T) {
	var l List
	if !l.Best().IsMax() {
		t.Fatalf("expected max sentinel, got %v", l.Best())
	}
	if _, ok := l.Mean(); ok {
		t.Fatalf("expected no mean for empty list")
	}
	l.Append(5000)
	if l.Best() != 5000 {
		t.Fatalf("first value should win, got %v", l.Best())
	}
	if !l.PrevBest().IsMax() {
		t.Fatalf("expected prev best to be the sentinel, got %v", l.PrevBest())
	}
}

func TestBestMonotonicAndPrevBest(t *testing.T) {
	values := []frames.Count{300, 280, 310, 280, 200, 250, 199, 400}
	l := NewList()
	last := frames.Max
	for n, v := range values {
		l.Append(v)
		if l.Best() > last {
			t.Fatalf("best increased after append %d: %v > %v", n, l.Best(), last)
		}
		last = l.Best()
		if n == 0 {
			continue
		}
		prefix := listOf(values[:n]...)
		if l.PrevBest() != prefix.Best() {
			t.Fatalf("append %d: prev best %v, want %v", n, l.PrevBest(), prefix.Best())
		}
	}
	if l.Best() != 199 || l.PrevBest() != 199 {
		t.Fatalf("unexpected best/prev best: %v/%v", l.Best(), l.PrevBest())
	}
}

func TestPrevBestAfterWorseAppend(t *testing.T) {
	l := listOf(10, 5, 8)
	if l.PrevBest() != 5 {
		t.Fatalf("prev best should be the best of the first two, got %v", l.PrevBest())
	}
	l.Append(3)
	if l.PrevBest() != 5 || l.Best() != 3 {
		t.Fatalf("unexpected best/prev best: %v/%v", l.Best(), l.PrevBest())
	}
}

func TestMissingValuesExcluded(t *testing.T) {
	l := NewList()
	l.Append(100)
	l.AppendMissing()
	l.Append(300)
	if l.Len() != 3 || l.Count() != 2 {
		t.Fatalf("unexpected sizes: len=%d count=%d", l.Len(), l.Count())
	}
	mean, ok := l.Mean()
	if !ok || mean != 200 {
		t.Fatalf("unexpected mean: %v %v", mean, ok)
	}
	if recent, _ := l.MostRecent(); recent != 300 {
		t.Fatalf("unexpected most recent: %v", recent)
	}
}

func TestMedianAndPercentile(t *testing.T) {
	l := listOf(40, 10, 30, 20, 50)
	if m, _ := l.Median(); m != 30 {
		t.Fatalf("unexpected median: %v", m)
	}
	if p, _ := l.Percentile(25); p != 20 {
		t.Fatalf("unexpected p25: %v", p)
	}
	if p, _ := l.Percentile(90); p != 46 {
		t.Fatalf("unexpected p90: %v", p)
	}
	if p, _ := l.Percentile(0); p != 10 {
		t.Fatalf("unexpected p0: %v", p)
	}
	even := listOf(10, 20, 30, 40)
	if m, _ := even.Median(); m != 25 {
		t.Fatalf("unexpected even median: %v", m)
	}
}

func TestAsPercentilesTiesShareBestRank(t *testing.T) {
	l := listOf(30, 10, 20, 10, 40)
	got := l.AsPercentiles()
	want := map[frames.Count]float64{10: 0, 20: 50, 30: 75, 40: 100}
	if len(got) != len(want) {
		t.Fatalf("unexpected size: %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("rank of %v: got %v want %v", k, got[k], v)
		}
	}
}

func TestClassify(t *testing.T) {
	l := listOf(100, 200, 300, 400, 500)
	cases := []struct {
		t    frames.Count
		want Bucket
	}{
		{90, BucketBest},
		{100, BucketBest},
		{150, BucketP25},
		{250, BucketP50},
		{390, BucketP75},
		{401, BucketWorse},
	}
	for _, tc := range cases {
		if got := Classify(tc.t, l); got != tc.want {
			t.Fatalf("Classify(%v) = %v, want %v", tc.t, got, tc.want)
		}
	}
	if Classify(10, NewList()) != BucketBest {
		t.Fatalf("empty list should classify as best")
	}
}

func TestSparklineAndMovingAverage(t *testing.T) {
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
	avg := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if avg[i] != want[i] {
			t.Fatalf("moving average[%d] = %v, want %v", i, avg[i], want[i])
		}
	}
}
