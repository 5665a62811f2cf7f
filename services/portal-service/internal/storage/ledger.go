package storage

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/outbox"
)

// Entry is what one booking attempt produced. Booking and Event are nil when the attempt
// ended with a final refusal, such as the slot being taken.
type Entry struct {
	Status        int
	Body          []byte
	AppointmentID string
	Booking       *BookingRow
	Event         *outbox.Event
}

// Attempt performs the booking. A returned error is a dependency failure: nothing is
// recorded and the same idempotency key may be retried.
type Attempt func(ctx context.Context) (Entry, error)

type Result struct {
	Status   int
	Body     []byte
	Replayed bool
}

// Ledger runs attempts under an idempotency key and records the booking and its outbox
// event in one transaction.
type Ledger struct {
	repo   *Repository
	outbox *outbox.Repository
}

func NewLedger(repo *Repository, outboxRepo *outbox.Repository) *Ledger {
	return &Ledger{repo: repo, outbox: outboxRepo}
}

// Execute runs attempt once per key. A finished key replays its stored answer, a key reused for
// a different request fails with ErrKeyReused, and a dependency error rolls everything back.
func (l *Ledger) Execute(ctx context.Context, tenantID string, key Key, attempt Attempt) (Result, error) {
	var res Result
	err := l.repo.InTx(ctx, func(tx pgx.Tx) error {
		if key.Enabled() {
			rec, _, err := l.repo.LockIdempotencyKey(ctx, tx, tenantID, key)
			if err != nil {
				return err
			}
			if !key.Matches(rec.Fingerprint) {
				return ErrKeyReused
			}
			if rec.StatusCode > 0 {
				res = replay(rec)
				return nil
			}
		}

		entry, err := attempt(ctx)
		if err != nil {
			return err
		}
		if entry.Booking != nil {
			if err := l.repo.InsertBooking(ctx, tx, *entry.Booking); err != nil {
				return err
			}
		}
		if entry.Event != nil {
			if err := l.outbox.Insert(ctx, tx, *entry.Event); err != nil {
				return err
			}
		}
		if key.Enabled() {
			if err := l.repo.FinalizeIdempotency(ctx, tx, tenantID, key.Value, entry.AppointmentID, entry.Status, entry.Body); err != nil {
				return err
			}
		}
		res = Result{Status: entry.Status, Body: entry.Body}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func replay(rec IdempotencyRecord) Result {
	return Result{Status: rec.StatusCode, Body: rec.ResponsePayload, Replayed: true}
}

// DirectLedger runs attempts without persistence, for deployments without a database.
// Idempotency keys are ignored and events are only logged.
type DirectLedger struct {
	Logger *slog.Logger
}

func (d DirectLedger) Execute(ctx context.Context, tenantID string, _ Key, attempt Attempt) (Result, error) {
	entry, err := attempt(ctx)
	if err != nil {
		return Result{}, err
	}
	if entry.Event != nil && d.Logger != nil {
		d.Logger.Info("booking event not persisted (no database)", "tenant_id", tenantID, "event_type", entry.Event.EventType, "appointment_id", entry.AppointmentID)
	}
	return Result{Status: entry.Status, Body: entry.Body}, nil
}
