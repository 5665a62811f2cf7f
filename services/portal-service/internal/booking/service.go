// Package booking submits new and rescheduled appointments to the salon backend after
// re-checking that the requested start is still free.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/httpx"
	"github.com/md-rashed-zaman/salonportal/libs/metrics"
	"github.com/md-rashed-zaman/salonportal/libs/tenant"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/backend"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/outbox"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/scheduling"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/storage"
)

const msgSlotTaken = "requested time is no longer available"

type Validator interface {
	ValidateBooking(ctx context.Context, req model.BookingRequest) (model.Selection, error)
}

type Backend interface {
	CreateAppointment(ctx context.Context, date, clock string, sel model.Selection) (string, error)
	UpdateAppointment(ctx context.Context, id, date, clock string, sel model.Selection) error
}

type Ledger interface {
	Execute(ctx context.Context, tenantID string, key storage.Key, attempt storage.Attempt) (storage.Result, error)
}

// PendingClearer forgets the client's parked selection once it is booked.
type PendingClearer interface {
	Clear(ctx context.Context, tenantID, clientID string) error
}

type Service struct {
	validator Validator
	backend   Backend
	ledger    Ledger
	pending   PendingClearer
	logger    *slog.Logger
	metrics   *metrics.Collector
	now       func() time.Time
}

func NewService(validator Validator, be Backend, ledger Ledger, pending PendingClearer, logger *slog.Logger, collector *metrics.Collector) *Service {
	return &Service{
		validator: validator,
		backend:   be,
		ledger:    ledger,
		pending:   pending,
		logger:    logger,
		metrics:   collector,
		now:       time.Now,
	}
}

// Confirmation is the body returned for an accepted booking.
type Confirmation struct {
	AppointmentID string        `json:"appointment_id"`
	Rescheduled   bool          `json:"rescheduled"`
	Date          string        `json:"date"`
	Time          string        `json:"time"`
	Procedures    []string      `json:"procedures"`
	Summary       model.Summary `json:"summary"`
}

// Submit books req, or reschedules req.EditID when set. The returned result carries the
// HTTP status and body to send; a replayed idempotency key returns the stored answer.
// Errors are invalid input (scheduling.ErrInvalidRequest, model.ErrUnknownProcedure), a key
// reused for another request (storage.ErrKeyReused) or dependency failures.
func (s *Service) Submit(ctx context.Context, req model.BookingRequest, idempotencyKey string) (storage.Result, error) {
	t, err := tenant.Require(ctx)
	if err != nil {
		return storage.Result{}, err
	}
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.EditID = strings.TrimSpace(req.EditID)
	if start, ok := availability.ParseClock(req.Time); ok {
		req.Time = availability.FormatClock(start)
	}

	kind := "create"
	if req.Reschedule() {
		kind = "reschedule"
	}

	key := storage.Key{Value: strings.TrimSpace(idempotencyKey)}
	if key.Enabled() {
		ids := append([]string(nil), req.ProcedureIDs...)
		sort.Strings(ids)
		key.Fingerprint = storage.Fingerprint(t.ClientID, req.Date, req.Time, strings.Join(ids, ","), req.EditID)
	}

	res, err := s.ledger.Execute(ctx, t.ID, key, func(ctx context.Context) (storage.Entry, error) {
		return s.attempt(ctx, t, req)
	})
	if errors.Is(err, storage.ErrKeyReused) {
		s.metrics.ObserveBooking(kind, "key_reused")
		return storage.Result{}, err
	}
	if err != nil {
		s.metrics.ObserveBooking(kind, "error")
		return storage.Result{}, err
	}

	switch {
	case res.Replayed:
		s.metrics.ObserveBooking(kind, "replayed")
	case res.Status == http.StatusUnprocessableEntity:
		s.metrics.ObserveBooking(kind, "unavailable")
	default:
		s.metrics.ObserveBooking(kind, "accepted")
		if s.pending != nil && t.ClientID != "" {
			if err := s.pending.Clear(ctx, t.ID, t.ClientID); err != nil {
				s.logger.Warn("pending booking clear failed", "err", err, "tenant_id", t.ID)
			}
		}
	}
	return res, nil
}

func (s *Service) attempt(ctx context.Context, t tenant.Tenant, req model.BookingRequest) (storage.Entry, error) {
	sel, err := s.validator.ValidateBooking(ctx, req)
	if errors.Is(err, scheduling.ErrSlotUnavailable) {
		return refusal(msgSlotTaken), nil
	}
	if err != nil {
		return storage.Entry{}, err
	}

	id := req.EditID
	status := http.StatusCreated
	if req.Reschedule() {
		err = s.backend.UpdateAppointment(ctx, req.EditID, req.Date, req.Time, sel)
		status = http.StatusOK
	} else {
		id, err = s.backend.CreateAppointment(ctx, req.Date, req.Time, sel)
	}
	if backend.StatusOf(err) == http.StatusConflict {
		// Someone else took the slot between our check and the backend write.
		return refusal(msgSlotTaken), nil
	}
	if err != nil {
		return storage.Entry{}, err
	}

	ids := make([]string, 0, len(sel.Procedures))
	for _, p := range sel.Procedures {
		ids = append(ids, p.ID)
	}
	conf := Confirmation{
		AppointmentID: id,
		Date:          req.Date,
		Time:          req.Time,
		Rescheduled:   req.Reschedule(),
		Procedures:    sel.Names(),
		Summary:       sel.Summary(),
	}
	body, err := json.Marshal(conf)
	if err != nil {
		return storage.Entry{}, err
	}

	payload := outbox.AppointmentPayload{
		TenantID:        t.ID,
		ClientID:        t.ClientID,
		AppointmentID:   id,
		Date:            req.Date,
		Time:            req.Time,
		ProcedureIDs:    ids,
		DurationMinutes: sel.Duration(),
		Total:           sel.Total().StringFixed(2),
		OccurredAt:      s.now().UTC(),
	}
	if req.Reschedule() {
		payload.PreviousID = req.EditID
	}
	evt, err := outbox.NewAppointmentEvent(payload)
	if err != nil {
		return storage.Entry{}, err
	}

	return storage.Entry{
		Status:        status,
		Body:          body,
		AppointmentID: id,
		Booking: &storage.BookingRow{
			TenantID:        t.ID,
			ClientID:        t.ClientID,
			AppointmentID:   id,
			PreviousID:      payload.PreviousID,
			Date:            req.Date,
			Time:            req.Time,
			ProcedureIDs:    ids,
			DurationMinutes: sel.Duration(),
			Total:           sel.Total(),
			RequestID:       httpx.RequestIDFromContext(ctx),
		},
		Event: &evt,
	}, nil
}

func refusal(msg string) storage.Entry {
	body, _ := json.Marshal(map[string]string{"error": msg})
	return storage.Entry{Status: http.StatusUnprocessableEntity, Body: body}
}
