package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonportal/libs/db"
	"github.com/md-rashed-zaman/salonportal/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonportal/libs/otel"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	pool        *db.Pool
	repo        *Repository
	logger      *slog.Logger
	brokers     []string
	pollEvery   time.Duration
	batchSize   int
	maxAttempts int
}

type PublisherConfig struct {
	Brokers     string
	PollEvery   time.Duration
	BatchSize   int
	MaxAttempts int
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Publisher{
		pool:        pool,
		repo:        repo,
		logger:      logger,
		brokers:     kafkax.SplitBrokers(cfg.Brokers),
		pollEvery:   cfg.PollEvery,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 || p.pool == nil {
		p.logger.Warn("outbox publisher disabled (no kafka brokers or database configured)")
		return
	}

	writer := &kafka.Writer{
		Addr:     kafka.TCP(p.brokers...),
		Balancer: &kafka.Hash{},
	}
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.publishBatch(ctx, writer); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			}
		}
	}
}

// publishBatch sends one claimed batch in a single write. A failed write is recorded on the
// rows and committed, so a poison batch eventually parks instead of blocking the table.
func (p *Publisher) publishBatch(ctx context.Context, writer MessageWriter) error {
	var writeErr error
	err := p.pool.InTx(ctx, func(tx pgx.Tx) error {
		records, err := p.repo.Claim(ctx, tx, p.batchSize, p.maxAttempts)
		if err != nil || len(records) == 0 {
			return err
		}
		ids := make([]int64, len(records))
		msgs := make([]kafka.Message, len(records))
		for i, r := range records {
			ids[i] = r.ID
			msgs[i] = Message(ctx, r)
		}
		if writeErr = writer.WriteMessages(ctx, msgs...); writeErr != nil {
			return p.repo.MarkFailed(ctx, tx, ids, writeErr)
		}
		p.logger.Debug("outbox batch published", "count", len(records))
		return p.repo.MarkPublished(ctx, tx, ids)
	})
	if err != nil {
		return err
	}
	return writeErr
}

// Message builds the Kafka message for r, restoring the trace context captured at insert.
// Messages are keyed by tenant so a salon's events stay ordered.
func Message(ctx context.Context, r Record) kafka.Message {
	msgCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
	key := r.TenantID
	if key == "" {
		key = r.AggregateID
	}
	return kafka.Message{
		Topic: r.EventType,
		Key:   []byte(key),
		Value: r.Payload,
		Headers: kafkax.Headers(msgCtx, kafkax.EventMeta{
			EventID:   r.EventID,
			EventType: r.EventType,
			TenantID:  r.TenantID,
		}),
	}
}
