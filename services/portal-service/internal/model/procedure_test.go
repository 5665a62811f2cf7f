package model

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func testCatalog() Catalog {
	return Catalog{
		{ID: "p1", Name: "Cut", Duration: 30, Price: decimal.RequireFromString("45.50")},
		{ID: "p2", Name: "Color", Duration: 90, Price: decimal.RequireFromString("120.10")},
	}
}

func TestSelectionSummary(t *testing.T) {
	sel, err := testCatalog().Select([]string{"p2", " p1 ", ""})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	sum := sel.Summary()
	if sum.Count != 2 || sum.DurationMinutes != 120 || sum.DurationText != "2h 0m" {
		t.Fatalf("unexpected summary %+v", sum)
	}
	if sum.Total != "165.60" {
		t.Fatalf("expected exact decimal total 165.60, got %s", sum.Total)
	}
	if names := sel.Names(); names[0] != "Color" || names[1] != "Cut" {
		t.Fatalf("unexpected order %v", names)
	}
}

func TestSelectUnknown(t *testing.T) {
	if _, err := testCatalog().Select([]string{"nope"}); !errors.Is(err, ErrUnknownProcedure) {
		t.Fatalf("expected ErrUnknownProcedure, got %v", err)
	}
}

func TestDurations(t *testing.T) {
	d := testCatalog().Durations()
	if d["Cut"] != 30 || d["Color"] != 90 {
		t.Fatalf("unexpected durations %v", d)
	}
}
