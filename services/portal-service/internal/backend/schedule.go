package backend

import (
	"strings"

	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
)

// normalizeException maps the backend's two exception vocabularies onto the resolver's kinds.
// type DAY_OFF or kind "absent" closes the day, type ADD or kind "add" opens a range, and
// everything else removes one.
func normalizeException(raw exceptionWire) availability.Exception {
	typ := strings.ToUpper(strings.TrimSpace(raw.Type))
	kind := strings.ToLower(strings.TrimSpace(raw.Kind))

	ex := availability.Exception{
		Start:  strings.TrimSpace(raw.Start),
		End:    strings.TrimSpace(raw.End),
		Reason: raw.Reason,
	}
	switch {
	case typ == string(availability.DayOff) || kind == "absent":
		ex.Kind = availability.DayOff
	case typ == string(availability.Add) || kind == "add":
		ex.Kind = availability.Add
	default:
		ex.Kind = availability.Remove
	}
	return ex
}

func (w dayConfigWire) toConfig() availability.DayConfig {
	cfg := availability.DayConfig{}
	if w.Enabled != nil {
		cfg.Enabled = *w.Enabled
	}
	if w.Start != nil {
		cfg.Start = strings.TrimSpace(*w.Start)
	}
	if w.End != nil {
		cfg.End = strings.TrimSpace(*w.End)
	}
	return cfg
}

func (r scheduleResponse) toSchedule() model.DaySchedule {
	var s model.DaySchedule
	if len(r.DefaultHoursByDay) > 0 {
		for i := range s.Week {
			if i < len(r.DefaultHoursByDay) {
				s.Week[i] = r.DefaultHoursByDay[i].toConfig()
			} else {
				s.Week[i] = availability.DayConfig{Enabled: true, Start: model.FallbackStart, End: model.FallbackEnd}
			}
		}
		// forDate only counts when it says whether the day is enabled.
		if r.ForDate != nil && r.ForDate.Enabled != nil {
			cfg := r.ForDate.toConfig()
			s.ForDate = &cfg
		}
	} else {
		start, end := model.FallbackStart, model.FallbackEnd
		if r.DefaultHours != nil && r.DefaultHours.Start != "" && r.DefaultHours.End != "" {
			start, end = r.DefaultHours.Start, r.DefaultHours.End
		}
		s.Week = availability.UniformWeek(start, end)
	}
	for _, raw := range r.Exceptions {
		s.Exceptions = append(s.Exceptions, normalizeException(raw))
	}
	return s
}
