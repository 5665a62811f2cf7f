package availability

import "time"

// Request carries everything one slot computation needs. Date is the calendar day in the
// facility's location; Now is compared against it to decide same-day truncation.
type Request struct {
	Date       time.Time
	Duration   int
	Week       WeekSchedule
	ForDate    *DayConfig
	Exceptions []Exception
	Bookings   []Booking
	Durations  map[string]int
	ExcludeID  string
	Now        time.Time
	Step       int
}

type Result struct {
	Windows []Interval
	Busy    []Interval
	Slots   []string
}

// Closed reports a day with no working windows at all, as opposed to one that is fully booked.
func (r Result) Closed() bool {
	return len(r.Windows) == 0
}

func (r Request) dayConfig() DayConfig {
	if r.ForDate != nil {
		return *r.ForDate
	}
	return r.Week.For(r.Date.Weekday())
}

// Compute runs the resolver, the busy-block extractor and the slot generator for one day.
func Compute(req Request) Result {
	step := req.Step
	if step <= 0 {
		step = DefaultStep
	}
	windows := ResolveWindows(req.dayConfig(), req.Exceptions)
	busy := BusyBlocks(req.Bookings, req.Durations, req.ExcludeID)

	earliest := 0
	if !req.Now.IsZero() && SameDay(req.Date, req.Now) {
		now := req.Now.In(req.Date.Location())
		earliest = now.Hour()*60 + now.Minute()
	}

	slots := AvailableSlots(windows, busy, req.Duration, step, earliest)
	return Result{
		Windows: windows,
		Busy:    busy,
		Slots:   FormatSlots(slots),
	}
}

// ComputeAvailableSlots returns the bookable "HH:MM" start times for date.
func ComputeAvailableSlots(date time.Time, duration int, week WeekSchedule, exceptions []Exception, bookings []Booking, durations map[string]int, excludeID string, now time.Time) []string {
	return Compute(Request{
		Date:       date,
		Duration:   duration,
		Week:       week,
		Exceptions: exceptions,
		Bookings:   bookings,
		Durations:  durations,
		ExcludeID:  excludeID,
		Now:        now,
	}).Slots
}

// SameDay compares calendar dates in date's location.
func SameDay(date, now time.Time) bool {
	n := now.In(date.Location())
	y1, m1, d1 := date.Date()
	y2, m2, d2 := n.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// ParseDate parses "YYYY-MM-DD" (ignoring any time suffix) as midnight in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if len(raw) > 10 {
		raw = raw[:10]
	}
	return time.ParseInLocation(time.DateOnly, raw, loc)
}
