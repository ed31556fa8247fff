package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Plan describes one collection run.
type Plan struct {
	Cities []string
	Start  time.Time
	End    time.Time

	// Output is the CSV file the run writes. It is checked for existence before any lookup.
	Output string

	// Delay is slept after every weather lookup to stay under the provider's rate limit.
	Delay time.Duration
}

// Summary reports what a collection run did.
type Summary struct {
	RunID          string
	Rows           int
	SkippedCities  []string
	SkippedLookups int
}

// Service runs collections: it resolves cities, fetches one observation per city and day,
// flattens it and hands the row to a RowWriter.
type Service struct {
	geocoder Geocoder
	source   Source
	confirm  ConfirmFunc
	sleep    func(time.Duration)
}

// NewService creates a new Service. A nil confirm refuses every overwrite.
func NewService(geocoder Geocoder, source Source, confirm ConfirmFunc) *Service {
	if confirm == nil {
		confirm = func(string) bool { return false }
	}
	return &Service{
		geocoder: geocoder,
		source:   source,
		confirm:  confirm,
		sleep:    time.Sleep,
	}
}

// WithSleeper replaces the function used for the inter-request delay.
func (s *Service) WithSleeper(sleep func(time.Duration)) *Service {
	s.sleep = sleep
	return s
}

// Collect executes plan sequentially, writing every observation to out.
// It returns ErrCancelled, without touching out, when plan.Output exists and the
// overwrite is not confirmed.
func (s *Service) Collect(ctx context.Context, plan Plan, out RowWriter) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}

	if _, err := os.Stat(plan.Output); err == nil {
		if !s.confirm(plan.Output) {
			return sum, ErrCancelled
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return sum, fmt.Errorf("stat %s: %w", plan.Output, err)
	}

	log.Printf("INFO: collect: run %s started for %d cities into %s", sum.RunID, len(plan.Cities), plan.Output)

	var locations []Location
	for _, city := range plan.Cities {
		loc, err := s.geocoder.Geocode(ctx, city)
		if errors.Is(err, ErrNotFound) {
			log.Printf("collect: no coordinates found for %s; skipping city", city)
			sum.SkippedCities = append(sum.SkippedCities, city)
			continue
		}
		if err != nil {
			return sum, fmt.Errorf("geocode %s: %w", city, err)
		}
		locations = append(locations, loc)
	}

	for _, day := range DaysBetween(plan.Start, plan.End) {
		date := day.Format(DateLayout)
		for _, loc := range locations {
			written, err := s.collectOne(ctx, loc, day, out)
			s.sleep(plan.Delay)
			if err != nil {
				return sum, fmt.Errorf("%s on %s: %w", loc.City, date, err)
			}
			if !written {
				sum.SkippedLookups++
				continue
			}
			sum.Rows++
			log.Printf("INFO: collect: data for %s on %s appended to %s", loc.City, date, plan.Output)
		}
	}

	log.Printf("INFO: collect: run %s complete; %d rows saved to %s", sum.RunID, sum.Rows, plan.Output)
	return sum, nil
}

func (s *Service) collectOne(ctx context.Context, loc Location, day time.Time, out RowWriter) (bool, error) {
	date := day.Format(DateLayout)

	raw, err := s.source.Observation(ctx, loc, ObservationTime(day))
	if errors.Is(err, ErrNotFound) {
		log.Printf("collect: no data found for %s on %s", loc.City, date)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s lookup: %w", s.source.Name(), err)
	}

	rec, err := Flatten(raw)
	if err != nil {
		return false, err
	}
	rec.Set(ColumnCity, loc.City)
	rec.Set(ColumnDate, date)

	change, err := out.Append(rec)
	if err != nil {
		return false, err
	}
	if len(change.Added) > 0 {
		log.Printf("INFO: collect: new column(s) added: %s", strings.Join(change.Added, ", "))
	}
	if len(change.Missing) > 0 {
		log.Printf("DEBUG: collect: some columns are missing: %s; filled with %s", strings.Join(change.Missing, ", "), MissingValue)
	}
	return true, nil
}
