package model

type CalendarDay struct {
	Date   string `json:"date"`
	Closed bool   `json:"closed"`
	DayOff bool   `json:"day_off"`
	Past   bool   `json:"past"`
	Slots  int    `json:"slots"`
}

type MonthCalendar struct {
	Year  int           `json:"year"`
	Month int           `json:"month"`
	Days  []CalendarDay `json:"days"`
}
