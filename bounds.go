package blackmarble

import (
	"strconv"
	"strings"
)

// Presets maps region names to bounding boxes. The regions cover Sudan,
// where nighttime-light change tracks the progression of the war.
var Presets = map[string]Bounds{
	"Sudan":      {South: 9, North: 23, West: 21, East: 39},
	"Khartoum":   {South: 14.75, North: 16.5, West: 31.6, East: 33.5},
	"Darfur":     {South: 8, North: 21, West: 21, East: 30},
	"Nile River": {South: 16, North: 23, West: 28, East: 36},
}

// ParseBounds parses four comma-separated numeric bounds in the fixed order
// south, north, west, east. Malformed input returns a *BoundsParseError so
// callers can report it and fall back to a preset.
func ParseBounds(s string) (Bounds, error) {
	fields := strings.Split(s, ",")
	if len(fields) != 4 {
		return Bounds{}, &BoundsParseError{Input: s, Reason: "expected south, north, west, east"}
	}
	var vals [4]float64
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return Bounds{}, &BoundsParseError{Input: s, Reason: "bounds must be numeric"}
		}
		vals[i] = v
	}
	b := Bounds{South: vals[0], North: vals[1], West: vals[2], East: vals[3]}
	if !b.Valid() {
		return Bounds{}, &BoundsParseError{Input: s, Reason: "south must not exceed north and west must not exceed east"}
	}
	return b, nil
}
