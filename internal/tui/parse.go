package tui

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var errEmptyName = errors.New("preset name is empty")

// parseSchedule reads "name@seconds". A bare name schedules at 0s.
// The split is on the last '@' so names may contain one.
func parseSchedule(input string) (string, uint64, error) {
	input = strings.TrimSpace(input)

	name, secs := input, ""
	if i := strings.LastIndex(input, "@"); i >= 0 {
		name, secs = strings.TrimSpace(input[:i]), strings.TrimSpace(input[i+1:])
	}
	if name == "" {
		return "", 0, errEmptyName
	}
	if secs == "" {
		return name, 0, nil
	}

	ms, err := secondsToMs(secs)
	if err != nil {
		return "", 0, err
	}
	return name, ms, nil
}

func secondsToMs(s string) (uint64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid time %q: want seconds", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("invalid time %q: must not be negative", s)
	}
	ms := math.Round(v * 1000)
	if ms >= math.MaxUint64 {
		return 0, fmt.Errorf("invalid time %q: too large", s)
	}
	return uint64(ms), nil
}

// formatSeconds renders milliseconds as seconds with two decimals.
func formatSeconds(ms uint64) string {
	return strconv.FormatFloat(float64(ms)/1000, 'f', 2, 64)
}
