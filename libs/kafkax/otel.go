package kafkax

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/md-rashed-zaman/salonportal/libs/kafkax"

// headerCarrier adapts a Kafka header slice to the propagation API. Set replaces an existing
// key so re-injecting never duplicates traceparent.
type headerCarrier []kafka.Header

func (c *headerCarrier) Get(key string) string {
	return HeaderValue(*c, key)
}

func (c *headerCarrier) Set(key, value string) {
	for i := range *c {
		if (*c)[i].Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, len(*c))
	for i, h := range *c {
		keys[i] = h.Key
	}
	return keys
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

// InjectTraceHeaders returns headers with the trace context of ctx added.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	c := headerCarrier(headers)
	otel.GetTextMapPropagator().Inject(ctx, &c)
	return c
}

// ExtractTraceContext continues the producer's trace from the message headers.
func ExtractTraceContext(ctx context.Context, msg kafka.Message) context.Context {
	c := headerCarrier(msg.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &c)
}

// StartConsumerSpan starts a consumer span parented on the producer's trace.
func StartConsumerSpan(ctx context.Context, msg kafka.Message) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ExtractTraceContext(ctx, msg), "kafka.consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.String("messaging.kafka.partition", strconv.Itoa(msg.Partition)),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
		),
	)
}
