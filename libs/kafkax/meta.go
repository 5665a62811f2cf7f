package kafkax

import (
	"context"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Header keys shared by every producer and consumer in the portal.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
	HeaderTenantID  = "tenant_id"
)

// EventMeta is the metadata carried on every portal Kafka message.
type EventMeta struct {
	EventID   string
	EventType string
	TenantID  string
}

func ExtractEventMeta(msg kafka.Message) EventMeta {
	eventID := HeaderValue(msg.Headers, HeaderEventID)
	eventType := HeaderValue(msg.Headers, HeaderEventType)
	if eventID == "" {
		eventID = string(msg.Key)
	}
	if eventType == "" {
		eventType = msg.Topic
	}
	return EventMeta{
		EventID:   eventID,
		EventType: eventType,
		TenantID:  HeaderValue(msg.Headers, HeaderTenantID),
	}
}

// Headers renders meta as Kafka headers with the trace context of ctx appended.
func Headers(ctx context.Context, meta EventMeta) []kafka.Header {
	headers := []kafka.Header{
		{Key: HeaderEventID, Value: []byte(meta.EventID)},
		{Key: HeaderEventType, Value: []byte(meta.EventType)},
	}
	if meta.TenantID != "" {
		headers = append(headers, kafka.Header{Key: HeaderTenantID, Value: []byte(meta.TenantID)})
	}
	return InjectTraceHeaders(ctx, headers)
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
