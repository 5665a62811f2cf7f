package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type CalendarQuery struct {
	Year         int
	Month        int
	ProcedureIDs []string
	EditID       string
}

// Calendar marks every date of a month open or closed. A date is closed when it is in the
// past, when the backend lists it as a day off, or when it has no slot for the selection.
// The day-off list only saves work; each remaining day is resolved individually.
func (s *Service) Calendar(ctx context.Context, q CalendarQuery) (model.MonthCalendar, error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.Calendar", trace.WithAttributes(
		attribute.Int("portal.year", q.Year),
		attribute.Int("portal.month", q.Month),
	))
	defer span.End()

	if q.Year < 1970 || q.Month < 1 || q.Month > 12 {
		return model.MonthCalendar{}, fmt.Errorf("%w: year and month are required", ErrInvalidRequest)
	}
	sel, catalog, err := s.Selection(ctx, q.ProcedureIDs)
	if err != nil {
		return model.MonthCalendar{}, err
	}

	dayOff := map[string]bool{}
	dates, err := s.provider.MonthDayOff(ctx, q.Year, q.Month)
	if err != nil {
		// The summary is advisory; per-day resolution still closes those days.
		s.logger.Warn("month day-off summary unavailable", "year", q.Year, "month", q.Month, "err", err)
	}
	for _, d := range dates {
		dayOff[d] = true
	}

	loc := s.cfg.Location
	first := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, loc)
	now := s.now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	cal := model.MonthCalendar{Year: q.Year, Month: q.Month}
	for d := first; d.Month() == first.Month(); d = d.AddDate(0, 0, 1) {
		ymd := d.Format(time.DateOnly)
		cal.Days = append(cal.Days, model.CalendarDay{
			Date:   ymd,
			Past:   d.Before(today),
			DayOff: dayOff[ymd],
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.CalendarConcurrency)
	duration := sel.Duration()
	if duration <= 0 {
		// No selection yet: a day is open when it fits one step.
		duration = s.cfg.Step
	}
	for i := range cal.Days {
		day := &cal.Days[i]
		if day.Past || day.DayOff {
			day.Closed = true
			continue
		}
		date := first.AddDate(0, 0, i)
		g.Go(func() error {
			res, err := s.compute(gctx, date, duration, catalog, q.EditID)
			if err != nil {
				return err
			}
			day.Slots = len(res.Slots)
			day.Closed = day.Slots == 0
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return model.MonthCalendar{}, err
	}
	return cal, nil
}
