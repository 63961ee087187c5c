package calendar

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock parses "HH:MM" into minutes after midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q (use HH:MM)", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ClockBefore reports whether a < b. Unparseable values compare false.
func ClockBefore(a, b string) bool {
	am, err := ParseClock(a)
	if err != nil {
		return false
	}
	bm, err := ParseClock(b)
	if err != nil {
		return false
	}
	return am < bm
}
