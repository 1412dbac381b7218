package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Room", "#", "Time"}
	rows := [][]string{
		{"Parlor", "12", "3'20"},
		{"Climb", "3", "1:02'07"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := FormatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Room     #     Time" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "Parlor  12     3'20" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "Climb    3  1:02'07" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableIgnoresColorEscapes(t *testing.T) {
	lines := FormatTable([]string{"Time", "X"}, [][]string{{Colorize("1'00", 214), "y"}}, nil)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "Time  X" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if want := Colorize("1'00", 214) + "  y"; lines[1] != want {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := FormatTable([]string{"A", "B"}, [][]string{{"界", "x"}}, nil)
	if lines[0] != "A   B" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
}
