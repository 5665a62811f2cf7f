package availability

import (
	"strings"
	"time"
)

type ExceptionKind string

const (
	DayOff ExceptionKind = "DAY_OFF"
	Add    ExceptionKind = "ADD"
	Remove ExceptionKind = "REMOVE"
)

// Exception overrides the weekly schedule for one date. Start and End are "HH:MM" and only
// matter for Add and Remove.
type Exception struct {
	Kind   ExceptionKind `json:"kind"`
	Start  string        `json:"start,omitempty"`
	End    string        `json:"end,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// Interval returns the exception's range, or false when either bound is missing or unparsable.
func (e Exception) Interval() (Interval, bool) {
	start, ok := ParseClock(e.Start)
	if !ok {
		return Interval{}, false
	}
	end, ok := ParseClock(e.End)
	if !ok {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// DayConfig is one weekday's default hours. Empty Start or End means the bound is unset.
type DayConfig struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

func (d DayConfig) window() []Interval {
	if !d.Enabled || strings.TrimSpace(d.Start) == "" || strings.TrimSpace(d.End) == "" {
		return nil
	}
	start, ok := ParseClock(d.Start)
	if !ok {
		return nil
	}
	end, ok := ParseClock(d.End)
	if !ok {
		return nil
	}
	return []Interval{{Start: start, End: end}}
}

// WeekSchedule holds default hours indexed by time.Weekday (Sunday = 0).
type WeekSchedule [7]DayConfig

func (w WeekSchedule) For(day time.Weekday) DayConfig {
	return w[day]
}

// UniformWeek applies the same hours to every day.
func UniformWeek(start, end string) WeekSchedule {
	var w WeekSchedule
	for i := range w {
		w[i] = DayConfig{Enabled: true, Start: start, End: end}
	}
	return w
}

// ResolveWindows returns the bookable windows of a day. A DAY_OFF exception closes the day
// outright; otherwise ADD ranges are unioned with the base hours and REMOVE ranges are cut
// out of the result.
func ResolveWindows(day DayConfig, exceptions []Exception) []Interval {
	var adds, rems []Interval
	for _, ex := range exceptions {
		switch ex.Kind {
		case DayOff:
			return nil
		case Add:
			if iv, ok := ex.Interval(); ok {
				adds = append(adds, iv)
			}
		case Remove:
			if iv, ok := ex.Interval(); ok {
				rems = append(rems, iv)
			}
		}
	}
	return Subtract(Union(day.window(), adds), rems)
}
