package availability

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseClock converts "HH:MM" (or "H:MM") into minutes from midnight. "24:00" is accepted
// as end of day.
func ParseClock(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok || len(mm) != 2 || hh == "" || len(hh) > 2 {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	total := h*60 + m
	if total > MinutesPerDay {
		return 0, false
	}
	return total, true
}

// FormatClock renders minutes from midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
