package scheduling

import (
	"context"

	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
)

// Provider supplies the tenant data slot computation reads. The tenant comes from ctx.
type Provider interface {
	Procedures(ctx context.Context) (model.Catalog, error)
	DaySchedule(ctx context.Context, date string) (model.DaySchedule, error)
	DayAppointments(ctx context.Context, date string) ([]availability.Booking, error)
	MonthDayOff(ctx context.Context, year, month int) ([]string, error)
}
