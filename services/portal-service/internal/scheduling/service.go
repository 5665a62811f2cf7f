package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/salonportal/libs/metrics"
	otelx "github.com/md-rashed-zaman/salonportal/libs/otel"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrSlotUnavailable = errors.New("requested time is not available")
)

type Config struct {
	// Location is the facility's wall-clock zone; dates and "today" are evaluated in it.
	Location *time.Location
	Step     int
	// FallbackOnError serves the 07:00-19:00 default week when the schedule fetch fails
	// instead of returning the error.
	FallbackOnError bool
	// CalendarConcurrency bounds per-day fetches while building a month view.
	CalendarConcurrency int
}

type Service struct {
	provider Provider
	logger   *slog.Logger
	metrics  *metrics.Collector
	cfg      Config
	now      func() time.Time
	tracer   trace.Tracer
}

func NewService(provider Provider, logger *slog.Logger, collector *metrics.Collector, cfg Config) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Step <= 0 {
		cfg.Step = availability.DefaultStep
	}
	if cfg.CalendarConcurrency <= 0 {
		cfg.CalendarConcurrency = 4
	}
	return &Service{
		provider: provider,
		logger:   logger,
		metrics:  collector,
		cfg:      cfg,
		now:      time.Now,
		tracer:   otelx.Tracer("portal/scheduling"),
	}
}

// SetClock replaces the wall clock; tests pin "now" with it.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

func (s *Service) Location() *time.Location {
	return s.cfg.Location
}

type SlotQuery struct {
	Date         string
	ProcedureIDs []string
	// Duration is used as-is when ProcedureIDs is empty.
	Duration int
	EditID   string
}

type SlotResult struct {
	Date      string                  `json:"date"`
	Duration  int                     `json:"duration_minutes"`
	Windows   []availability.Interval `json:"-"`
	Slots     []string                `json:"slots"`
	Closed    bool                    `json:"closed"`
	Past      bool                    `json:"past"`
	Selection model.Selection         `json:"-"`
}

// Windows as "HH:MM" pairs for API responses.
func (r SlotResult) WindowClocks() [][2]string {
	out := make([][2]string, 0, len(r.Windows))
	for _, w := range r.Windows {
		out = append(out, [2]string{availability.FormatClock(w.Start), availability.FormatClock(w.End)})
	}
	return out
}

func (r SlotResult) Has(clock string) bool {
	for _, s := range r.Slots {
		if s == clock {
			return true
		}
	}
	return false
}

func (s *Service) parseDate(raw string) (time.Time, error) {
	d, err := availability.ParseDate(raw, s.cfg.Location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidRequest)
	}
	return d, nil
}

func (s *Service) Procedures(ctx context.Context) (model.Catalog, error) {
	catalog, err := s.provider.Procedures(ctx)
	if err != nil {
		return nil, fmt.Errorf("load procedures: %w", err)
	}
	return catalog, nil
}

// Selection resolves procedure ids against the tenant catalog.
func (s *Service) Selection(ctx context.Context, ids []string) (model.Selection, model.Catalog, error) {
	catalog, err := s.Procedures(ctx)
	if err != nil {
		return model.Selection{}, nil, err
	}
	sel, err := catalog.Select(ids)
	if err != nil {
		return model.Selection{}, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return sel, catalog, nil
}

type dayData struct {
	schedule model.DaySchedule
	bookings []availability.Booking
}

func (s *Service) loadDay(ctx context.Context, date string) (dayData, error) {
	var data dayData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched, err := s.provider.DaySchedule(gctx, date)
		if err != nil {
			return fmt.Errorf("load schedule %s: %w", date, err)
		}
		data.schedule = sched
		return nil
	})
	g.Go(func() error {
		bookings, err := s.provider.DayAppointments(gctx, date)
		if err != nil {
			return fmt.Errorf("load appointments %s: %w", date, err)
		}
		data.bookings = bookings
		return nil
	})
	if err := g.Wait(); err != nil {
		if !s.cfg.FallbackOnError {
			return dayData{}, err
		}
		s.logger.Warn("day data unavailable; serving default hours", "date", date, "err", err)
		return dayData{schedule: model.FallbackSchedule()}, nil
	}
	return data, nil
}

// Slots computes the bookable start times for one date and selection.
func (s *Service) Slots(ctx context.Context, q SlotQuery) (SlotResult, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.Slots", trace.WithAttributes(attribute.String("portal.date", q.Date)))
	defer span.End()

	date, err := s.parseDate(q.Date)
	if err != nil {
		return SlotResult{}, err
	}

	duration := q.Duration
	var sel model.Selection
	var catalog model.Catalog
	if len(q.ProcedureIDs) > 0 {
		sel, catalog, err = s.Selection(ctx, q.ProcedureIDs)
		if err != nil {
			span.RecordError(err)
			return SlotResult{}, err
		}
		duration = sel.Duration()
	} else {
		catalog, err = s.Procedures(ctx)
		if err != nil {
			span.RecordError(err)
			return SlotResult{}, err
		}
	}

	res, err := s.compute(ctx, date, duration, catalog, q.EditID)
	if err != nil {
		span.RecordError(err)
		return SlotResult{}, err
	}
	res.Selection = sel
	span.SetAttributes(attribute.Int("portal.slots", len(res.Slots)))
	return res, nil
}

// isPast reports whether date lies before today in the facility location.
func (s *Service) isPast(date time.Time) bool {
	now := s.now().In(date.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, date.Location())
	return date.Before(today)
}

func (s *Service) compute(ctx context.Context, date time.Time, duration int, catalog model.Catalog, editID string) (SlotResult, error) {
	ymd := date.Format(time.DateOnly)
	if s.isPast(date) {
		s.metrics.ObserveSlots("past", 0)
		return SlotResult{Date: ymd, Duration: duration, Closed: true, Past: true}, nil
	}
	data, err := s.loadDay(ctx, ymd)
	if err != nil {
		return SlotResult{}, err
	}
	out := availability.Compute(availability.Request{
		Date:       date,
		Duration:   duration,
		Week:       data.schedule.Week,
		ForDate:    data.schedule.ForDate,
		Exceptions: data.schedule.Exceptions,
		Bookings:   data.bookings,
		Durations:  catalog.Durations(),
		ExcludeID:  editID,
		Now:        s.now(),
		Step:       s.cfg.Step,
	})

	outcome := "open"
	switch {
	case out.Closed():
		outcome = "closed"
	case len(out.Slots) == 0:
		outcome = "full"
	}
	s.metrics.ObserveSlots(outcome, len(out.Slots))

	return SlotResult{
		Date:     ymd,
		Duration: duration,
		Windows:  out.Windows,
		Slots:    out.Slots,
		Closed:   out.Closed(),
	}, nil
}

// ValidateBooking recomputes the day's slots and accepts req only when its time is among
// them. The appointment being rescheduled does not block itself.
func (s *Service) ValidateBooking(ctx context.Context, req model.BookingRequest) (model.Selection, error) {
	if req.Date == "" || req.Time == "" || len(req.ProcedureIDs) == 0 {
		return model.Selection{}, fmt.Errorf("%w: date, time and procedure_ids are required", ErrInvalidRequest)
	}
	start, ok := availability.ParseClock(req.Time)
	if !ok {
		return model.Selection{}, fmt.Errorf("%w: time must be HH:MM", ErrInvalidRequest)
	}
	res, err := s.Slots(ctx, SlotQuery{Date: req.Date, ProcedureIDs: req.ProcedureIDs, EditID: req.EditID})
	if err != nil {
		return model.Selection{}, err
	}
	if res.Selection.Duration() <= 0 {
		return model.Selection{}, fmt.Errorf("%w: selected procedures have no duration", ErrInvalidRequest)
	}
	if !res.Has(availability.FormatClock(start)) {
		return model.Selection{}, ErrSlotUnavailable
	}
	return res.Selection, nil
}
