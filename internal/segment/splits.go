package segment

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/verte-zerg/smtimer/internal/rooms"
	"github.com/verte-zerg/smtimer/internal/route"
	"github.com/verte-zerg/smtimer/internal/transition"
)

var (
	revisitedSuffix = regexp.MustCompile(`^(.*?)\s+Revisited$`)
	ordinalSuffix   = regexp.MustCompile(`^(.*?)\s+(\d+)$`)
)

// splitAliases maps split names used by common split files to route
// room names.
var splitAliases = map[string]string{
	"Alcatraz": "Parlor 3",
}

// TransitionFromName resolves a split name such as "Kraid" or
// "Parlor 2" to the matching transition of r. "X Revisited" is the
// second visit to X.
func TransitionFromName(name string, reg *rooms.Registry, r *route.Route) (transition.ID, error) {
	if alias, ok := splitAliases[name]; ok {
		name = alias
	}
	if m := revisitedSuffix.FindStringSubmatch(name); m != nil {
		name = m[1] + " 2"
	}

	roomName, n := name, 1
	if m := ordinalSuffix.FindStringSubmatch(name); m != nil {
		v, err := strconv.Atoi(m[2])
		if err != nil {
			return transition.ID{}, fmt.Errorf("invalid ordinal in %q: %w", name, err)
		}
		roomName, n = m[1], v
	}

	room, err := reg.RoomByName(roomName)
	if err != nil {
		return transition.ID{}, fmt.Errorf("%w: %v", ErrRoomNotInRoute, err)
	}
	return r.FindNthByRoom(room, n)
}

// FromName resolves "A to B" into the segment of r between the two
// splits.
func FromName(name string, reg *rooms.Registry, r *route.Route) (Segment, error) {
	startName, endName, ok := strings.Cut(name, " to ")
	if !ok {
		return Segment{}, fmt.Errorf("segment name %q is not of the form \"A to B\"", name)
	}
	start, err := TransitionFromName(startName, reg, r)
	if err != nil {
		return Segment{}, err
	}
	end, err := TransitionFromName(endName, reg, r)
	if err != nil {
		return Segment{}, err
	}
	return FromRoute(r, start, end), nil
}

// FromSplits cuts r into consecutive segments, each ending at one of
// splits. Route transitions after the last split are not covered.
func FromSplits(r *route.Route, splits []transition.ID) []Segment {
	if r.Len() == 0 {
		return nil
	}
	isSplit := make(map[transition.Key]bool, len(splits))
	for _, id := range splits {
		isSplit[id.Key()] = true
	}

	var segments []Segment
	start := r.At(0)
	startNext := false
	for _, id := range r.IDs() {
		if startNext {
			start = id
			startNext = false
		}
		if isSplit[id.Key()] {
			segments = append(segments, FromRoute(r, start, id))
			startNext = true
		}
	}
	return segments
}

// FromSegmentAndSplitNames resolves explicit "A to B" segments followed by
// the segments cut at the named splits.
func FromSegmentAndSplitNames(segmentNames, splitNames []string, reg *rooms.Registry, r *route.Route) ([]Segment, error) {
	var segments []Segment
	for _, name := range segmentNames {
		seg, err := FromName(name, reg, r)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve segment %q: %w", name, err)
		}
		segments = append(segments, seg)
	}

	splits := make([]transition.ID, 0, len(splitNames))
	for _, name := range splitNames {
		id, err := TransitionFromName(name, reg, r)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve split %q: %w", name, err)
		}
		splits = append(splits, id)
	}
	return append(segments, FromSplits(r, splits)...), nil
}

// ReadSplitNames reads one split name per line, skipping blank lines and
// lines starting with #.
func ReadSplitNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open splits file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var names []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		names = append(names, strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read splits file: %w", err)
	}
	return names, nil
}
