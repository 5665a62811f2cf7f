package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Inbox deduplicates deliveries by event id. Forget undoes Record when handling failed so a
// retry is not mistaken for a duplicate.
type Inbox interface {
	Record(ctx context.Context, eventID, eventType, tenantID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// Reader is the part of *kafka.Reader the consumer needs. Offsets are committed only after a
// message was handled or given up on.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader   Reader
	logger   *slog.Logger
	inbox    Inbox
	handler  Handler
	attempts int
	backoff  time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inboxRepo Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(logger, inboxRepo, reader, handler)
}

func NewWithReader(logger *slog.Logger, inboxRepo Inbox, reader Reader, handler Handler) *Consumer {
	return &Consumer{reader: reader, logger: logger, inbox: inboxRepo, handler: handler, attempts: 3, backoff: time.Second}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch error", "err", err)
			if !c.sleep(ctx, c.backoff) {
				return
			}
			continue
		}

		for attempt := 1; ; attempt++ {
			err := c.process(ctx, msg)
			if err == nil {
				break
			}
			if attempt >= c.attempts {
				c.logger.Error("giving up on event", "topic", msg.Topic, "offset", msg.Offset, "err", err)
				break
			}
			if !c.sleep(ctx, time.Duration(attempt)*c.backoff) {
				return
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "offset", msg.Offset, "err", err)
		}
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// process handles one message; duplicates are a no-op. An error leaves the event out of the
// inbox so the message may be retried.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	ctxSpan, span := kafkax.StartConsumerSpan(ctx, msg)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	logger := c.logger.With("event_id", meta.EventID, "event_type", meta.EventType, "tenant_id", meta.TenantID)

	fresh, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType, meta.TenantID)
	if err != nil {
		logger.Error("inbox record failed", "err", err)
		span.RecordError(err)
		return err
	}
	if !fresh {
		logger.Info("duplicate event ignored")
		return nil
	}
	if err := c.handler(ctxSpan, msg); err != nil {
		logger.Error("handler error", "err", err)
		span.RecordError(err)
		if ferr := c.inbox.Forget(ctxSpan, meta.EventID); ferr != nil {
			logger.Warn("inbox forget failed", "err", ferr)
		}
		return err
	}
	return nil
}
