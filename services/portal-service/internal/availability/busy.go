package availability

// Booking is an existing appointment on the day being computed. Procedures lists procedure
// names; Procedure is the single-name field older appointments carry instead.
type Booking struct {
	ID         string   `json:"id"`
	Time       string   `json:"time"`
	Procedures []string `json:"procedures,omitempty"`
	Procedure  string   `json:"procedure,omitempty"`
}

// Duration sums the booking's procedure durations. Unknown names count as zero.
func (b Booking) Duration(durations map[string]int) int {
	total := 0
	if len(b.Procedures) > 0 {
		for _, name := range b.Procedures {
			total += durations[name]
		}
		return total
	}
	if b.Procedure != "" {
		total = durations[b.Procedure]
	}
	return total
}

// BusyBlocks converts bookings into occupied intervals. The booking whose ID equals excludeID
// is skipped so a rescheduled appointment does not block its own slot. Bookings with an
// unparsable time or zero length are dropped.
func BusyBlocks(bookings []Booking, durations map[string]int, excludeID string) []Interval {
	var blocks []Interval
	for _, b := range bookings {
		if excludeID != "" && b.ID == excludeID {
			continue
		}
		start, ok := ParseClock(b.Time)
		if !ok {
			continue
		}
		length := b.Duration(durations)
		if length <= 0 {
			continue
		}
		blocks = append(blocks, Interval{Start: start, End: start + length})
	}
	return blocks
}
