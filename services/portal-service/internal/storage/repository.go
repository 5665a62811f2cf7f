package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonportal/libs/db"
	"github.com/shopspring/decimal"
)

type Repository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	TenantID        string
	IdempotencyKey  string
	Fingerprint     string
	AppointmentID   string
	StatusCode      int
	ResponsePayload []byte
}

// BookingRow is the portal's own log of a booking it forwarded to the salon backend.
type BookingRow struct {
	TenantID        string
	ClientID        string
	AppointmentID   string
	PreviousID      string
	Date            string
	Time            string
	ProcedureIDs    []string
	DurationMinutes int
	Total           decimal.Decimal
	RequestID       string
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) InTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return r.pool.InTx(ctx, fn)
}

// LockIdempotencyKey claims (tenantID, key) inside tx and returns the stored record, locked
// until tx ends. Concurrent requests with the same key queue on the row lock. created reports
// whether this call inserted the row.
func (r *Repository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, tenantID string, key Key) (rec IdempotencyRecord, created bool, err error) {
	var response []byte
	err = tx.QueryRow(ctx, `
		INSERT INTO portal_idempotency_keys (tenant_id, idempotency_key, request_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id, idempotency_key)
		DO UPDATE SET updated_at = portal_idempotency_keys.updated_at
		RETURNING tenant_id, idempotency_key, request_hash, COALESCE(appointment_id, ''),
		          COALESCE(status_code, 0), response_payload, (xmax = 0)`,
		tenantID, key.Value, key.Fingerprint,
	).Scan(&rec.TenantID, &rec.IdempotencyKey, &rec.Fingerprint, &rec.AppointmentID, &rec.StatusCode, &response, &created)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	rec.ResponsePayload = response
	return rec, created, nil
}

func (r *Repository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, tenantID, key, appointmentID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE portal_idempotency_keys
		SET appointment_id = NULLIF($3, ''),
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE tenant_id = $1 AND idempotency_key = $2
	`, tenantID, key, appointmentID, statusCode, response)
	return err
}

func (r *Repository) InsertBooking(ctx context.Context, tx pgx.Tx, row BookingRow) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO portal_bookings
			(tenant_id, client_id, appointment_id, previous_id, booking_date, start_time, procedure_ids, duration_minutes, total, request_id)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5::date, $6, $7, $8, $9::text::numeric, NULLIF($10, ''))
	`, row.TenantID, row.ClientID, row.AppointmentID, row.PreviousID, row.Date, row.Time,
		row.ProcedureIDs, row.DurationMinutes, row.Total.String(), row.RequestID)
	return err
}
