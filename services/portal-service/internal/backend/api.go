package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
	"github.com/shopspring/decimal"
)

func (c *Client) Procedures(ctx context.Context) (model.Catalog, error) {
	var resp proceduresResponse
	if err := c.do(ctx, "procedures", http.MethodGet, "/api/client-portal/procedures", nil, nil, &resp); err != nil {
		return nil, err
	}
	catalog := make(model.Catalog, 0, len(resp.Procedures))
	for _, p := range resp.Procedures {
		price := decimal.Zero
		if p.Price != nil {
			price = *p.Price
		}
		catalog = append(catalog, model.Procedure{
			ID:       p.ID,
			Name:     p.Name,
			Duration: int(p.Duration),
			Price:    price,
		})
	}
	return catalog, nil
}

func (c *Client) DaySchedule(ctx context.Context, date string) (model.DaySchedule, error) {
	var resp scheduleResponse
	if err := c.do(ctx, "schedule_day", http.MethodGet, "/api/client-portal/schedule/detailed", dateQuery(date), nil, &resp); err != nil {
		return model.DaySchedule{}, err
	}
	return resp.toSchedule(), nil
}

func (c *Client) DayAppointments(ctx context.Context, date string) ([]availability.Booking, error) {
	var resp appointmentsResponse
	if err := c.do(ctx, "appointments_day", http.MethodGet, "/api/client-portal/appointments/day", dateQuery(date), nil, &resp); err != nil {
		return nil, err
	}
	bookings := make([]availability.Booking, 0, len(resp.Appointments))
	for _, a := range resp.Appointments {
		b := availability.Booking{ID: a.ID, Time: strings.TrimSpace(a.Time), Procedure: a.Procedure}
		for _, p := range a.Procedures {
			b.Procedures = append(b.Procedures, p.Name)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

// MonthDayOff returns the "YYYY-MM-DD" dates the backend marks as closed in a month.
func (c *Client) MonthDayOff(ctx context.Context, year, month int) ([]string, error) {
	var resp monthResponse
	if err := c.do(ctx, "schedule_month", http.MethodGet, "/api/client-portal/schedule/month", monthQuery(year, month), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp.DayOff))
	for _, d := range resp.DayOff {
		if len(d) >= 10 {
			out = append(out, d[:10])
		}
	}
	return out, nil
}

func appointmentPayload(date, clock string, sel model.Selection) appointmentBody {
	body := appointmentBody{Date: date, Time: clock}
	for _, p := range sel.Procedures {
		body.Procedures = append(body.Procedures, appointmentProcedureBody{ID: p.ID, Name: p.Name, Price: json.Number(p.Price.String())})
	}
	return body
}

// CreateAppointment books a new appointment and returns its backend id.
func (c *Client) CreateAppointment(ctx context.Context, date, clock string, sel model.Selection) (string, error) {
	var resp createResponse
	if err := c.do(ctx, "appointment_create", http.MethodPost, "/api/client-portal/appointments", nil, appointmentPayload(date, clock, sel), &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return resp.OID, nil
	}
	return resp.ID, nil
}

// UpdateAppointment moves an existing appointment.
func (c *Client) UpdateAppointment(ctx context.Context, id, date, clock string, sel model.Selection) error {
	path := "/api/client-portal/appointments/" + url.PathEscape(id)
	return c.do(ctx, "appointment_update", http.MethodPut, path, nil, appointmentPayload(date, clock, sel), nil)
}
