package model

import (
	"time"

	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/availability"
)

// DaySchedule is the backend's schedule for one date, normalized. ForDate, when set,
// replaces the weekday entry of Week.
type DaySchedule struct {
	Week       availability.WeekSchedule `json:"week"`
	ForDate    *availability.DayConfig   `json:"for_date,omitempty"`
	Exceptions []availability.Exception  `json:"exceptions"`
}

// Hours served when the backend sends no usable hours.
const (
	FallbackStart = "07:00"
	FallbackEnd   = "19:00"
)

// FallbackSchedule opens every day 07:00-19:00 with no exceptions.
func FallbackSchedule() DaySchedule {
	return DaySchedule{Week: availability.UniformWeek(FallbackStart, FallbackEnd)}
}

// BookingRequest is a client's chosen date, start time and procedures. EditID is set when
// rescheduling an existing appointment.
type BookingRequest struct {
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	ProcedureIDs []string `json:"procedure_ids"`
	EditID       string   `json:"edit_id,omitempty"`
}

func (r BookingRequest) Reschedule() bool {
	return r.EditID != ""
}

// PendingBooking is a selection parked while the client signs in or confirms.
type PendingBooking struct {
	TenantID string         `json:"tenant_id"`
	ClientID string         `json:"client_id"`
	Request  BookingRequest `json:"request"`
	SavedAt  time.Time      `json:"saved_at"`
}
