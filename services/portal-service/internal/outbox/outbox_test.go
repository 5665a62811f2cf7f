package outbox

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/md-rashed-zaman/salonportal/libs/kafkax"
)

func TestNewAppointmentEventTopic(t *testing.T) {
	evt, err := NewAppointmentEvent(AppointmentPayload{TenantID: "salon-1", AppointmentID: "a1", Date: "2026-01-28", Time: "10:00"})
	if err != nil {
		t.Fatalf("NewAppointmentEvent failed: %v", err)
	}
	if evt.EventType != EventAppointmentRequested || evt.EventID == "" || evt.AggregateID != "a1" {
		t.Fatalf("unexpected event %+v", evt)
	}
	var p AppointmentPayload
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.OccurredAt.IsZero() {
		t.Fatal("expected occurred_at to be filled")
	}

	evt, err = NewAppointmentEvent(AppointmentPayload{TenantID: "salon-1", AppointmentID: "a2", PreviousID: "a1"})
	if err != nil {
		t.Fatal(err)
	}
	if evt.EventType != EventAppointmentRescheduled {
		t.Fatalf("expected reschedule topic, got %s", evt.EventType)
	}
}

func TestMessageCarriesTenantHeaders(t *testing.T) {
	msg := Message(context.Background(), Record{
		EventID:     "e1",
		TenantID:    "salon-1",
		AggregateID: "a1",
		EventType:   EventAppointmentRequested,
		Payload:     []byte(`{}`),
	})
	if msg.Topic != EventAppointmentRequested || string(msg.Key) != "salon-1" {
		t.Fatalf("unexpected message topic=%s key=%s", msg.Topic, msg.Key)
	}
	meta := kafkax.ExtractEventMeta(msg)
	if meta.EventID != "e1" || meta.TenantID != "salon-1" {
		t.Fatalf("unexpected meta %+v", meta)
	}

	msg = Message(context.Background(), Record{EventID: "e2", AggregateID: "a9", EventType: EventAppointmentRequested})
	if string(msg.Key) != "a9" {
		t.Fatalf("expected aggregate key without tenant, got %s", msg.Key)
	}
}
