// Command slotcalc runs the slot engine over a JSON scenario file, for support staff
// reproducing what a client saw.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/availability"
	"github.com/md-rashed-zaman/salonportal/services/portal-service/internal/model"
)

// scenario is the input file. Duration wins over Procedures when both are set.
type scenario struct {
	Date       string                     `json:"date"`
	Now        string                     `json:"now,omitempty"`
	Timezone   string                     `json:"timezone,omitempty"`
	Duration   int                        `json:"duration,omitempty"`
	Procedures []string                   `json:"procedures,omitempty"`
	Hours      *availability.DayConfig    `json:"hours,omitempty"`
	Week       *availability.WeekSchedule `json:"week,omitempty"`
	ForDate    *availability.DayConfig    `json:"for_date,omitempty"`
	Exceptions []availability.Exception   `json:"exceptions,omitempty"`
	Bookings   []availability.Booking     `json:"appointments,omitempty"`
	Durations  map[string]int             `json:"durations,omitempty"`
	ExcludeID  string                     `json:"exclude_id,omitempty"`
}

type output struct {
	Date     string      `json:"date"`
	Duration int         `json:"duration_minutes"`
	Closed   bool        `json:"closed"`
	Windows  [][2]string `json:"windows"`
	Busy     [][2]string `json:"busy"`
	Slots    []string    `json:"slots"`
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "slotcalc:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("slotcalc", flag.ContinueOnError)
	var (
		file   = fs.String("file", "-", "scenario JSON file, - for stdin")
		asJSON = fs.Bool("json", false, "print windows, busy blocks and slots as JSON")
		step   = fs.Int("step", availability.DefaultStep, "grid step in minutes")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := stdin
	if *file != "-" {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	var sc scenario
	if err := json.NewDecoder(in).Decode(&sc); err != nil {
		return fmt.Errorf("decode scenario: %w", err)
	}

	req, err := sc.request()
	if err != nil {
		return err
	}
	req.Step = *step
	res := availability.Compute(req)

	if !*asJSON {
		_, err := fmt.Fprintln(stdout, strings.Join(res.Slots, "\n"))
		return err
	}
	out := output{
		Date:     req.Date.Format(time.DateOnly),
		Duration: req.Duration,
		Closed:   res.Closed(),
		Windows:  clocks(res.Windows),
		Busy:     clocks(res.Busy),
		Slots:    res.Slots,
	}
	if out.Slots == nil {
		out.Slots = []string{}
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func (sc scenario) request() (availability.Request, error) {
	loc := time.UTC
	if sc.Timezone != "" {
		l, err := time.LoadLocation(sc.Timezone)
		if err != nil {
			return availability.Request{}, err
		}
		loc = l
	}
	date, err := availability.ParseDate(sc.Date, loc)
	if err != nil {
		return availability.Request{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}

	var now time.Time
	if sc.Now != "" {
		now, err = time.Parse(time.RFC3339, sc.Now)
		if err != nil {
			return availability.Request{}, fmt.Errorf("now must be RFC 3339: %w", err)
		}
	}

	var week availability.WeekSchedule
	switch {
	case sc.Week != nil:
		week = *sc.Week
	case sc.Hours != nil:
		week = availability.UniformWeek(sc.Hours.Start, sc.Hours.End)
	default:
		week = model.FallbackSchedule().Week
	}

	duration := sc.Duration
	if duration == 0 {
		for _, name := range sc.Procedures {
			d, ok := sc.Durations[name]
			if !ok {
				return availability.Request{}, fmt.Errorf("%w: %s", model.ErrUnknownProcedure, name)
			}
			duration += d
		}
	}
	if duration <= 0 {
		return availability.Request{}, errors.New("duration or procedures is required")
	}

	return availability.Request{
		Date:       date,
		Duration:   duration,
		Week:       week,
		ForDate:    sc.ForDate,
		Exceptions: sc.Exceptions,
		Bookings:   sc.Bookings,
		Durations:  sc.Durations,
		ExcludeID:  sc.ExcludeID,
		Now:        now,
	}, nil
}

func clocks(in []availability.Interval) [][2]string {
	out := make([][2]string, 0, len(in))
	for _, iv := range in {
		out = append(out, [2]string{availability.FormatClock(iv.Start), availability.FormatClock(iv.End)})
	}
	return out
}
