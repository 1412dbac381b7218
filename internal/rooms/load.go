package rooms

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type doorEntry struct {
	From        string `json:"from" yaml:"from"`
	To          string `json:"to" yaml:"to"`
	Description string `json:"description" yaml:"description"`
}

// Load builds a registry from a rooms table and a doors table. Either
// path may be empty, in which case the built-in table is used. The
// built-in doors only cover the Ceres escape; other doors are learned as
// they are crossed (see LearnDoor). Files ending in .yaml or .yml are
// parsed as YAML, everything else as JSON.
func Load(roomsPath, doorsPath string, log logrus.FieldLogger) (*Registry, error) {
	reg := NewRegistry(log)
	if roomsPath == "" {
		for _, room := range builtinRooms {
			reg.AddRoom(room)
		}
	} else {
		var raw map[string]string
		if err := decodeFile(roomsPath, &raw); err != nil {
			return nil, fmt.Errorf("failed to read rooms: %w", err)
		}
		if err := reg.addRawRooms(raw); err != nil {
			return nil, err
		}
	}
	if doorsPath == "" {
		reg.log.Info("No doors table given; doors will be learned as they are crossed")
		for _, d := range builtinDoors {
			reg.AddDoor(d.id, d.entry, d.exit, d.description)
		}
	} else {
		var raw map[string]doorEntry
		if err := decodeFile(doorsPath, &raw); err != nil {
			return nil, fmt.Errorf("failed to read doors: %w", err)
		}
		if err := reg.addRawDoors(raw); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (r *Registry) addRawRooms(raw map[string]string) error {
	for _, key := range sortedKeys(raw) {
		id, err := parseID(key)
		if err != nil {
			return fmt.Errorf("failed to parse room id: %w", err)
		}
		r.AddRoom(Room{ID: id, Name: raw[key]})
	}
	return nil
}

func (r *Registry) addRawDoors(raw map[string]doorEntry) error {
	for _, key := range sortedKeys(raw) {
		entry := raw[key]
		id, err := parseID(key)
		if err != nil {
			return fmt.Errorf("failed to parse door id: %w", err)
		}
		from, err := parseID(entry.From)
		if err != nil {
			return fmt.Errorf("failed to parse door %s entry room: %w", key, err)
		}
		to, err := parseID(entry.To)
		if err != nil {
			return fmt.Errorf("failed to parse door %s exit room: %w", key, err)
		}
		r.AddDoor(id, from, to, entry.Description)
	}
	return nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}

// parseID parses a hexadecimal id with or without a 0x prefix.
func parseID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// builtinRooms are the rooms the timer refers to by name.
var builtinRooms = []Room{
	{ID: LandingSiteID, Name: LandingSite},
	{ID: 0xDF45, Name: CeresElevator},
	{ID: 0xDD58, Name: MotherBrain},
}

// builtinDoors are the doors the timer synthesises transitions through.
var builtinDoors = []struct {
	id, entry, exit uint16
	description     string
}{
	{CeresEscapeDoor, 0xDF45, LandingSiteID, "Ceres escape"},
}
