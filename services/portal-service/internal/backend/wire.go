package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// flexInt accepts numbers, numeric strings and null; anything else decodes as zero.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexInt(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*f = flexInt(v)
			return nil
		}
	}
	*f = 0
	return nil
}

type procedureWire struct {
	ID       string           `json:"_id"`
	Name     string           `json:"name"`
	Duration flexInt          `json:"duration"`
	Price    *decimal.Decimal `json:"price"`
}

type proceduresResponse struct {
	Procedures []procedureWire `json:"procedures"`
}

type dayConfigWire struct {
	Enabled *bool   `json:"enabled"`
	Start   *string `json:"start"`
	End     *string `json:"end"`
}

type hoursWire struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type exceptionWire struct {
	Type   string `json:"type"`
	Kind   string `json:"kind"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

type scheduleResponse struct {
	DefaultHoursByDay []dayConfigWire `json:"defaultHoursByDay"`
	ForDate           *dayConfigWire  `json:"forDate"`
	DefaultHours      *hoursWire      `json:"defaultHours"`
	Exceptions        []exceptionWire `json:"exceptions"`
}

// appointmentProcedureWire tolerates both {"name": ...} objects and bare strings.
type appointmentProcedureWire struct {
	Name string
}

func (p *appointmentProcedureWire) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		p.Name = s
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	p.Name = obj.Name
	return nil
}

type appointmentWire struct {
	ID         string                     `json:"_id"`
	Date       string                     `json:"date"`
	Time       string                     `json:"time"`
	Procedures []appointmentProcedureWire `json:"procedures"`
	Procedure  string                     `json:"procedure"`
}

type appointmentsResponse struct {
	Appointments []appointmentWire `json:"appointments"`
}

type monthResponse struct {
	DayOff []string `json:"dayOff"`
}

type appointmentProcedureBody struct {
	ID    string      `json:"_id"`
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

type appointmentBody struct {
	Date       string                     `json:"date"`
	Time       string                     `json:"time"`
	Procedures []appointmentProcedureBody `json:"procedures"`
}

type createResponse struct {
	ID  string `json:"id"`
	OID string `json:"_id"`
}
