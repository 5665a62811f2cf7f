package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownProcedure = errors.New("unknown procedure")

// Procedure is one bookable service from the tenant's catalog.
type Procedure struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Duration int             `json:"duration_minutes"`
	Price    decimal.Decimal `json:"price"`
}

type Catalog []Procedure

// Durations maps procedure names to minutes, the lookup existing appointments are resolved with.
func (c Catalog) Durations() map[string]int {
	out := make(map[string]int, len(c))
	for _, p := range c {
		out[p.Name] = p.Duration
	}
	return out
}

func (c Catalog) ByID(id string) (Procedure, bool) {
	for _, p := range c {
		if p.ID == id {
			return p, true
		}
	}
	return Procedure{}, false
}

// Select resolves ids against the catalog in request order.
func (c Catalog) Select(ids []string) (Selection, error) {
	var sel Selection
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		p, ok := c.ByID(id)
		if !ok {
			return Selection{}, fmt.Errorf("%w: %s", ErrUnknownProcedure, id)
		}
		sel.Procedures = append(sel.Procedures, p)
	}
	return sel, nil
}

// Selection is the client's chosen procedures.
type Selection struct {
	Procedures []Procedure `json:"procedures"`
}

func (s Selection) Count() int {
	return len(s.Procedures)
}

func (s Selection) Duration() int {
	total := 0
	for _, p := range s.Procedures {
		total += p.Duration
	}
	return total
}

func (s Selection) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Procedures {
		total = total.Add(p.Price)
	}
	return total
}

func (s Selection) Names() []string {
	names := make([]string, 0, len(s.Procedures))
	for _, p := range s.Procedures {
		names = append(names, p.Name)
	}
	return names
}

// Summary is the selection as shown on the confirmation step.
type Summary struct {
	Count           int    `json:"count"`
	DurationMinutes int    `json:"duration_minutes"`
	DurationText    string `json:"duration_text"`
	Total           string `json:"total"`
}

func (s Selection) Summary() Summary {
	d := s.Duration()
	return Summary{
		Count:           s.Count(),
		DurationMinutes: d,
		DurationText:    fmt.Sprintf("%dh %dm", d/60, d%60),
		Total:           s.Total().StringFixed(2),
	}
}
