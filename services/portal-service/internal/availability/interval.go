package availability

import "sort"

// MinutesPerDay is the exclusive upper bound of a minute-of-day offset; 1440 is "24:00".
const MinutesPerDay = 24 * 60

// Interval is a half-open [Start, End) range of minutes from local midnight.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (i Interval) Len() int {
	return i.End - i.Start
}

// Overlaps reports whether [i.Start,i.End) and [o.Start,o.End) share a point.
// Touching endpoints do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

// Normalize drops empty intervals, sorts by start and merges anything that overlaps or touches.
// The input slice is not modified.
func Normalize(in []Interval) []Interval {
	valid := make([]Interval, 0, len(in))
	for _, iv := range in {
		if iv.End > iv.Start {
			valid = append(valid, iv)
		}
	}
	if len(valid) == 0 {
		return nil
	}
	sort.Slice(valid, func(a, b int) bool {
		if valid[a].Start == valid[b].Start {
			return valid[a].End < valid[b].End
		}
		return valid[a].Start < valid[b].Start
	})

	out := []Interval{valid[0]}
	for _, iv := range valid[1:] {
		cur := &out[len(out)-1]
		if iv.Start <= cur.End {
			if iv.End > cur.End {
				cur.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

func Union(base, additions []Interval) []Interval {
	all := make([]Interval, 0, len(base)+len(additions))
	all = append(all, base...)
	all = append(all, additions...)
	return Normalize(all)
}

// Subtract removes every removal from base, trimming or splitting the base intervals it hits.
func Subtract(base, removals []Interval) []Interval {
	result := Normalize(base)
	for _, rm := range Normalize(removals) {
		next := make([]Interval, 0, len(result)+1)
		for _, iv := range result {
			if !iv.Overlaps(rm) {
				next = append(next, iv)
				continue
			}
			if iv.Start < rm.Start {
				next = append(next, Interval{Start: iv.Start, End: rm.Start})
			}
			if rm.End < iv.End {
				next = append(next, Interval{Start: rm.End, End: iv.End})
			}
		}
		result = next
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
