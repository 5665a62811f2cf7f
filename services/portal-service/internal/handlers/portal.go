package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/md-rashed-zaman/salonportal/libs/metrics"
	"github.com/md-rashed-zaman/salonportal/libs/tenant"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/backend"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/booking"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/pending"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/scheduling"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/storage"
)

const prefix = "/api/v1/portal"

type Handler struct {
	slots   *scheduling.Service
	booking *booking.Service
	pending *pending.Store
	logger  *slog.Logger
}

func New(slots *scheduling.Service, bookings *booking.Service, pendingStore *pending.Store, logger *slog.Logger) *Handler {
	return &Handler{slots: slots, booking: bookings, pending: pendingStore, logger: logger}
}

// Register mounts the portal API on mux behind the tenant middleware.
func (h *Handler) Register(mux *http.ServeMux, collector *metrics.Collector, withTenant func(http.Handler) http.Handler) {
	route := func(path string, fn http.HandlerFunc) {
		mux.Handle(path, collector.Middleware(path, withTenant(fn)))
	}
	route(prefix+"/procedures", h.Procedures)
	route(prefix+"/slots", h.Slots)
	route(prefix+"/calendar", h.Calendar)
	route(prefix+"/appointments", requireClient(h.CreateAppointment))
	route(prefix+"/appointments/", requireClient(h.RescheduleAppointment))
	route(prefix+"/pending", requireClient(h.Pending))
}

func (h *Handler) Procedures(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	catalog, err := h.slots.Procedures(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"procedures": catalog})
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	query := scheduling.SlotQuery{
		Date:         strings.TrimSpace(q.Get("date")),
		ProcedureIDs: splitIDs(q.Get("procedure_ids")),
		EditID:       strings.TrimSpace(q.Get("edit_id")),
	}
	if raw := strings.TrimSpace(q.Get("duration")); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "invalid duration", http.StatusBadRequest)
			return
		}
		query.Duration = d
	}

	res, err := h.slots.Slots(r.Context(), query)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":             res.Date,
		"duration_minutes": res.Duration,
		"closed":           res.Closed,
		"windows":          res.WindowClocks(),
		"slots":            nonNil(res.Slots),
		"summary":          res.Selection.Summary(),
	})
}

func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	year, errY := strconv.Atoi(q.Get("year"))
	month, errM := strconv.Atoi(q.Get("month"))
	if errY != nil || errM != nil {
		http.Error(w, "year and month are required", http.StatusBadRequest)
		return
	}
	cal, err := h.slots.Calendar(r.Context(), scheduling.CalendarQuery{
		Year:         year,
		Month:        month,
		ProcedureIDs: splitIDs(q.Get("procedure_ids")),
		EditID:       strings.TrimSpace(q.Get("edit_id")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.EditID = ""
	h.submit(w, r, req)
}

// RescheduleAppointment handles PUT /appointments/{id}; the id is the appointment being moved.
func (h *Handler) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix+"/appointments/"), "/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "missing appointment id", http.StatusBadRequest)
		return
	}
	var req model.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.EditID = id
	h.submit(w, r, req)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, req model.BookingRequest) {
	res, err := h.booking.Submit(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if res.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	w.WriteHeader(res.Status)
	_, _ = w.Write(res.Body)
}

// Pending parks (PUT), returns (GET) or drops (DELETE) the client's unfinished selection.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	t, _ := tenant.FromContext(r.Context())
	switch r.Method {
	case http.MethodGet:
		p, err := h.pending.Load(r.Context(), t.ID, t.ClientID)
		if errors.Is(err, pending.ErrNotFound) {
			http.Error(w, "no pending booking", http.StatusNotFound)
			return
		}
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPut:
		var req model.BookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		p, err := h.pending.Save(r.Context(), model.PendingBooking{TenantID: t.ID, ClientID: t.ClientID, Request: req})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodDelete:
		if err := h.pending.Clear(r.Context(), t.ID, t.ClientID); err != nil {
			h.fail(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// fail maps service errors to status codes. Backend 4xx answers pass through; anything
// else from the backend is a bad gateway.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrInvalidRequest), errors.Is(err, model.ErrUnknownProcedure):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, tenant.ErrMissing):
		http.Error(w, "missing "+tenant.Header, http.StatusBadRequest)
		return
	case errors.Is(err, storage.ErrKeyReused):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if status := backend.StatusOf(err); status >= 400 && status < 500 {
		http.Error(w, err.Error(), status)
		return
	}
	h.logger.Error("request failed", "err", err, "path", r.URL.Path, "tenant_id", tenant.IDFromContext(r.Context()))
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) || errors.Is(err, backend.ErrUnavailable) {
		http.Error(w, "salon backend unavailable", http.StatusBadGateway)
		return
	}
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func splitIDs(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
