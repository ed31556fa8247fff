package weather

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound marks a lookup that returned no match. The collector skips the unit of work.
	ErrNotFound = errors.New("no match")

	// ErrCancelled is returned when the user declines to overwrite an existing output file.
	ErrCancelled = errors.New("operation cancelled")
)

// Geocoder resolves a city name to its single best-match coordinates.
// A city without a match yields ErrNotFound.
type Geocoder interface {
	Geocode(ctx context.Context, city string) (Location, error)
}

// Source returns the raw observation object recorded for a location at a point in time.
// A missing observation yields ErrNotFound.
type Source interface {
	Name() string
	Observation(ctx context.Context, loc Location, at time.Time) ([]byte, error)
}

// RowWriter is the contract the CSV store satisfies for a collection run.
type RowWriter interface {
	Append(rec *Record) (SchemaChange, error)
}

// SchemaChange describes how a record differed from the schema in force when it was written.
type SchemaChange struct {
	Added   []string
	Missing []string
}

// ConfirmFunc asks whether an existing file may be overwritten.
type ConfirmFunc func(path string) bool
