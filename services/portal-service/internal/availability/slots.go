package availability

// DefaultStep is the grid, in minutes, slot start times are aligned to.
const DefaultStep = 30

// AvailableSlots walks each window on the step grid and returns every start s with
// s+duration inside the window and no busy block overlapping [s, s+duration).
// earliest raises the first candidate (same-day truncation); pass 0 for other days.
func AvailableSlots(windows, busy []Interval, duration, step, earliest int) []int {
	if duration <= 0 || step <= 0 || len(windows) == 0 {
		return nil
	}
	floor := ceilToStep(earliest, step)

	var slots []int
	for _, w := range windows {
		start := ceilToStep(w.Start, step)
		if start < floor {
			start = floor
		}
		for s := start; s <= w.End-duration; s += step {
			candidate := Interval{Start: s, End: s + duration}
			if !overlapsAny(candidate, busy) {
				slots = append(slots, s)
			}
		}
	}
	return slots
}

// FormatSlots renders slot offsets as "HH:MM".
func FormatSlots(slots []int) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, FormatClock(s))
	}
	return out
}

func ceilToStep(minutes, step int) int {
	if minutes <= 0 {
		return 0
	}
	return (minutes + step - 1) / step * step
}

func overlapsAny(candidate Interval, busy []Interval) bool {
	for _, b := range busy {
		if candidate.Overlaps(b) {
			return true
		}
	}
	return false
}
