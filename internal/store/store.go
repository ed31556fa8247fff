package store

import (
	"errors"
	"fmt"

	"github.com/i474232898/weather-history/internal/csvstore"
	"github.com/i474232898/weather-history/internal/weather"
)

var (
	// ErrNotFound is returned when no observation matches a query.
	ErrNotFound = errors.New("no weather data for location")
)

// Observation is one row of the aggregate file.
type Observation struct {
	Line   int               `json:"line"`
	Values map[string]string `json:"values"`
}

// City returns the row's city_name cell.
func (o Observation) City() string { return o.Values[weather.ColumnCity] }

// Date returns the row's date cell.
func (o Observation) Date() string { return o.Values[weather.ColumnDate] }

// Index is the contract the memory and SQLite stores satisfy.
type Index interface {
	// Load replaces the whole contents with rows laid out by columns.
	Load(columns []string, rows [][]string) error
	Columns() ([]string, error)
	Get(city, date string) ([]Observation, error)
	// Range returns observations for city with from <= date <= to, ordered by date then line.
	Range(city, from, to string) ([]Observation, error)
}

// LoadCSV reads the CSV file at path into ix.
func LoadCSV(ix Index, path string) error {
	header, rows, err := csvstore.ReadAll(path)
	if err != nil {
		return err
	}
	if err := ix.Load(header, rows); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// firstDataLine matches the aggregate file's line numbering: the header is line 1.
const firstDataLine = 2

func toObservations(columns []string, rows [][]string) []Observation {
	out := make([]Observation, 0, len(rows))
	for i, row := range rows {
		values := make(map[string]string, len(columns))
		for j, c := range columns {
			if j < len(row) {
				values[c] = row[j]
			} else {
				values[c] = weather.MissingValue
			}
		}
		out = append(out, Observation{Line: i + firstDataLine, Values: values})
	}
	return out
}
