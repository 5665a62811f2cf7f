package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topics the portal produces. The Kafka topic equals the event type.
const (
	EventAppointmentRequested   = "portal.appointment.requested.v1"
	EventAppointmentRescheduled = "portal.appointment.rescheduled.v1"
)

const AggregateAppointment = "appointment"

// Event is the envelope written to portal_outbox_events in the same transaction as the
// booking it describes.
type Event struct {
	EventID       string
	TenantID      string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the body of both appointment events.
type AppointmentPayload struct {
	TenantID        string    `json:"tenant_id"`
	ClientID        string    `json:"client_id,omitempty"`
	AppointmentID   string    `json:"appointment_id"`
	PreviousID      string    `json:"previous_id,omitempty"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	ProcedureIDs    []string  `json:"procedure_ids"`
	DurationMinutes int       `json:"duration_minutes"`
	Total           string    `json:"total"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewAppointmentEvent picks the requested or rescheduled topic from p.PreviousID.
func NewAppointmentEvent(p AppointmentPayload) (Event, error) {
	eventType := EventAppointmentRequested
	if p.PreviousID != "" {
		eventType = EventAppointmentRescheduled
	}
	if p.OccurredAt.IsZero() {
		p.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		EventID:       uuid.NewString(),
		TenantID:      p.TenantID,
		AggregateType: AggregateAppointment,
		AggregateID:   p.AppointmentID,
		EventType:     eventType,
		Payload:       body,
	}, nil
}
