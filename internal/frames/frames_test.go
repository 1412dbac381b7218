package frames

import "testing"

func TestSecondsRoundTrip(t *testing.T) {
	for c := Count(0); c < 100000; c += 7 {
		if got := FromSeconds(c.Seconds()); got != c {
			t.Fatalf("round trip of %d gave %d", c, got)
		}
	}
}

func TestRoundTripThroughThreeDecimals(t *testing.T) {
	for c := Count(0); c < 20000; c++ {
		secs := float64(int64(c.Seconds()*1000+0.5)) / 1000
		if got := FromSeconds(secs); got != c {
			t.Fatalf("3-decimal round trip of %d gave %d (%.3f)", c, got, secs)
		}
	}
}

func TestString(t *testing.T) {
	cases := []struct {
		in   Count
		want string
	}{
		{0, "0'00"},
		{59, "0'59"},
		{61, "1'01"},
		{3599, "59'59"},
		{3600, "1:00'00"},
		{3600*12 + 60*5 + 3, "12:05'03"},
		{-61, "-1'01"},
		{Max, "-"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Fatalf("String(%d) = %q, want %q", int64(tc.in), got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	c, err := Parse("12'34")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != 12*60+34 {
		t.Fatalf("unexpected count %d", c)
	}
	if _, err := Parse("1234"); err == nil {
		t.Fatalf("expected error for missing separator")
	}
}

func TestSigned(t *testing.T) {
	if got := Count(60).Signed(); got != "+1'00" {
		t.Fatalf("unexpected signed %q", got)
	}
	if got := Count(-60).Signed(); got != "-1'00" {
		t.Fatalf("unexpected signed %q", got)
	}
	if got := Count(0).Signed(); got != "0'00" {
		t.Fatalf("unexpected signed %q", got)
	}
}
