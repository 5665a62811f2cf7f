package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	otelx "github.com/md-rashed-zaman/salonportal/libs/otel"
)

// Repository works on a caller's transaction: Insert runs inside the booking transaction,
// Claim/MarkPublished/MarkFailed inside the publisher's.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert stores evt together with the trace context of ctx so the publish span links back to
// the request that produced it.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, `
		INSERT INTO portal_outbox_events
			(event_id, tenant_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		evt.EventID, evt.TenantID, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, traceparent, tracestate)
	return err
}

type Record struct {
	ID          int64     `db:"id"`
	EventID     string    `db:"event_id"`
	TenantID    string    `db:"tenant_id"`
	AggregateID string    `db:"aggregate_id"`
	EventType   string    `db:"event_type"`
	Payload     []byte    `db:"payload"`
	Traceparent string    `db:"traceparent"`
	Tracestate  string    `db:"tracestate"`
	Attempts    int       `db:"attempts"`
	CreatedAt   time.Time `db:"created_at"`
}

// Claim locks up to limit unpublished rows in insertion order. Rows that already failed
// maxAttempts times stay parked for an operator.
func (r *Repository) Claim(ctx context.Context, tx pgx.Tx, limit, maxAttempts int) ([]Record, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event_id::text AS event_id, tenant_id, aggregate_id, event_type, payload,
		       traceparent, tracestate, attempts, created_at
		FROM portal_outbox_events
		WHERE published_at IS NULL AND attempts < $2
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Record])
}

func (r *Repository) MarkPublished(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `UPDATE portal_outbox_events SET published_at = now(), last_error = '' WHERE id = ANY($1)`, ids)
	return err
}

// MarkFailed counts a failed delivery attempt for every id.
func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, ids []int64, cause error) error {
	if len(ids) == 0 {
		return nil
	}
	msg := cause.Error()
	if len(msg) > 500 {
		msg = msg[:500]
	}
	_, err := tx.Exec(ctx, `UPDATE portal_outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = ANY($1)`, ids, msg)
	return err
}
