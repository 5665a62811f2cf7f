package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/md-rashed-zaman/salonportal/libs/redisx"
	"github.com/md-rashed-zaman/salonportal/libs/tenant"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/backend"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/outbox"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/pending"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/scheduling"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/storage"
	"github.com/shopspring/decimal"
)

type fakeValidator struct {
	err   error
	calls int
}

func (f *fakeValidator) ValidateBooking(_ context.Context, req model.BookingRequest) (model.Selection, error) {
	f.calls++
	if f.err != nil {
		return model.Selection{}, f.err
	}
	return model.Selection{Procedures: []model.Procedure{
		{ID: "cut", Name: "Cut", Duration: 45, Price: decimal.RequireFromString("30")},
		{ID: "wash", Name: "Wash", Duration: 15, Price: decimal.RequireFromString("12.5")},
	}}, nil
}

type fakeBackend struct {
	createErr error
	updateErr error
	created   int
	updated   []string
}

func (f *fakeBackend) CreateAppointment(context.Context, string, string, model.Selection) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	return fmt.Sprintf("appt-%d", f.created), nil
}

func (f *fakeBackend) UpdateAppointment(_ context.Context, id, _, _ string, _ model.Selection) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, id)
	return nil
}

// memLedger mirrors the pgx ledger: it finalizes outcomes per key and records entries.
type memLedger struct {
	results      map[string]storage.Result
	fingerprints map[string]string
	entries      []storage.Entry
}

func (m *memLedger) Execute(ctx context.Context, tenantID string, key storage.Key, attempt storage.Attempt) (storage.Result, error) {
	id := tenantID + "/" + key.Value
	if key.Enabled() {
		if fp, ok := m.fingerprints[id]; ok && !key.Matches(fp) {
			return storage.Result{}, storage.ErrKeyReused
		}
		if res, ok := m.results[id]; ok {
			res.Replayed = true
			return res, nil
		}
	}
	entry, err := attempt(ctx)
	if err != nil {
		return storage.Result{}, err
	}
	m.entries = append(m.entries, entry)
	res := storage.Result{Status: entry.Status, Body: entry.Body}
	if key.Enabled() {
		m.results[id] = res
		m.fingerprints[id] = key.Fingerprint
	}
	return res, nil
}

func newTestService(v *fakeValidator, b *fakeBackend) (*Service, *memLedger, *pending.Store) {
	ledger := &memLedger{results: map[string]storage.Result{}, fingerprints: map[string]string{}}
	store := pending.NewStore(redisx.NewMemoryKV(), 0)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(v, b, ledger, store, logger, nil), ledger, store
}

func clientCtx() context.Context {
	return tenant.WithTenant(context.Background(), tenant.Tenant{ID: "salon-1", ClientID: "client-1"})
}

func TestSubmitCreatesAndRecords(t *testing.T) {
	v, b := &fakeValidator{}, &fakeBackend{}
	svc, ledger, store := newTestService(v, b)
	ctx := clientCtx()
	if _, err := store.Save(ctx, model.PendingBooking{TenantID: "salon-1", ClientID: "client-1"}); err != nil {
		t.Fatal(err)
	}

	res, err := svc.Submit(ctx, model.BookingRequest{Date: "2026-01-28", Time: "9:00", ProcedureIDs: []string{"cut", "wash"}}, "k1")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.Status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Status)
	}
	var conf Confirmation
	if err := json.Unmarshal(res.Body, &conf); err != nil {
		t.Fatal(err)
	}
	if conf.AppointmentID != "appt-1" || conf.Time != "09:00" || conf.Summary.Total != "42.50" || conf.Summary.DurationText != "1h 0m" {
		t.Fatalf("unexpected confirmation %+v", conf)
	}
	if len(ledger.entries) != 1 || ledger.entries[0].Event == nil || ledger.entries[0].Event.EventType != outbox.EventAppointmentRequested {
		t.Fatalf("expected one requested event, got %+v", ledger.entries)
	}
	if row := ledger.entries[0].Booking; row == nil || row.DurationMinutes != 60 || row.TenantID != "salon-1" {
		t.Fatalf("unexpected booking row %+v", row)
	}
	if _, err := store.Load(ctx, "salon-1", "client-1"); !errors.Is(err, pending.ErrNotFound) {
		t.Fatalf("expected pending booking to be cleared, got %v", err)
	}

	// Same key and same booking replays without a second backend call.
	res, err = svc.Submit(ctx, model.BookingRequest{Date: "2026-01-28", Time: "09:00", ProcedureIDs: []string{"wash", "cut"}}, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Replayed || b.created != 1 || v.calls != 1 {
		t.Fatalf("expected replay, got %+v created=%d validations=%d", res, b.created, v.calls)
	}

	if _, err := svc.Submit(ctx, model.BookingRequest{Date: "2026-01-28", Time: "09:00", ProcedureIDs: []string{"cut"}}, "k1"); !errors.Is(err, storage.ErrKeyReused) {
		t.Fatalf("expected ErrKeyReused for a different booking, got %v", err)
	}
}

func TestSubmitReschedule(t *testing.T) {
	b := &fakeBackend{}
	svc, ledger, _ := newTestService(&fakeValidator{}, b)
	res, err := svc.Submit(clientCtx(), model.BookingRequest{Date: "2026-01-28", Time: "10:30", ProcedureIDs: []string{"cut"}, EditID: "a9"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != http.StatusOK || len(b.updated) != 1 || b.updated[0] != "a9" {
		t.Fatalf("unexpected reschedule result %+v updated=%v", res, b.updated)
	}
	evt := ledger.entries[0].Event
	if evt.EventType != outbox.EventAppointmentRescheduled || evt.AggregateID != "a9" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestSubmitSlotTaken(t *testing.T) {
	svc, ledger, _ := newTestService(&fakeValidator{err: scheduling.ErrSlotUnavailable}, &fakeBackend{})
	res, err := svc.Submit(clientCtx(), model.BookingRequest{Date: "2026-01-28", Time: "10:00", ProcedureIDs: []string{"cut"}}, "k2")
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Status)
	}
	if ledger.entries[0].Booking != nil || ledger.entries[0].Event != nil {
		t.Fatal("a refusal must not record a booking")
	}

	svc, _, _ = newTestService(&fakeValidator{}, &fakeBackend{createErr: &backend.APIError{Status: http.StatusConflict}})
	res, err = svc.Submit(clientCtx(), model.BookingRequest{Date: "2026-01-28", Time: "10:00", ProcedureIDs: []string{"cut"}}, "")
	if err != nil || res.Status != http.StatusUnprocessableEntity {
		t.Fatalf("expected backend conflict to become 422, got %+v err=%v", res, err)
	}
}

func TestSubmitDependencyErrorIsNotFinalized(t *testing.T) {
	b := &fakeBackend{createErr: &backend.APIError{Status: http.StatusBadGateway}}
	svc, ledger, _ := newTestService(&fakeValidator{}, b)
	req := model.BookingRequest{Date: "2026-01-28", Time: "10:00", ProcedureIDs: []string{"cut"}}
	if _, err := svc.Submit(clientCtx(), req, "k3"); backend.StatusOf(err) != http.StatusBadGateway {
		t.Fatalf("expected backend error, got %v", err)
	}
	b.createErr = nil
	res, err := svc.Submit(clientCtx(), req, "k3")
	if err != nil || res.Replayed || res.Status != http.StatusCreated {
		t.Fatalf("expected retry with same key to succeed, got %+v err=%v", res, err)
	}
	if len(ledger.entries) != 1 {
		t.Fatalf("expected a single recorded entry, got %d", len(ledger.entries))
	}
}

func TestSubmitRequiresTenant(t *testing.T) {
	svc, _, _ := newTestService(&fakeValidator{}, &fakeBackend{})
	if _, err := svc.Submit(context.Background(), model.BookingRequest{}, ""); !errors.Is(err, tenant.ErrMissing) {
		t.Fatalf("expected ErrMissing, got %v", err)
	}
}
