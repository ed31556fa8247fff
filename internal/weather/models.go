package weather

import (
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Reserved columns appended to every observation. Together they form the natural key.
const (
	ColumnCity = "city_name"
	ColumnDate = "date"
)

// MissingValue is written for any cell a row has no value for.
const MissingValue = "NA"

// DateLayout is the YYYYMMDD layout used for the date column and the configured range.
const DateLayout = "20060102"

// Location is a city resolved to coordinates by a Geocoder.
type Location struct {
	City string  `json:"city"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Record is one flattened observation row. Keys keep their first-insertion order,
// which is the order the fields appeared in the source JSON.
type Record struct {
	fields *orderedmap.OrderedMap[string, string]
}

// NewRecord returns an empty Record.
func NewRecord() *Record {
	return &Record{fields: orderedmap.New[string, string]()}
}

// RecordOf builds a Record from alternating key/value pairs. Handy in tests.
func RecordOf(kv ...string) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(kv[i], kv[i+1])
	}
	return r
}

// Set stores value under key. An existing key keeps its position.
func (r *Record) Set(key, value string) {
	r.fields.Set(key, value)
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (string, bool) {
	return r.fields.Get(key)
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.fields.Get(key)
	return ok
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return r.fields.Len()
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	keys := make([]string, 0, r.fields.Len())
	for p := r.fields.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Values projects the record onto columns, using MissingValue for absent keys.
func (r *Record) Values(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		v, ok := r.fields.Get(c)
		if !ok {
			v = MissingValue
		}
		out[i] = v
	}
	return out
}

// Merge copies every field of other into r, overwriting existing keys in place.
func (r *Record) Merge(other *Record) {
	for p := other.fields.Oldest(); p != nil; p = p.Next() {
		r.fields.Set(p.Key, p.Value)
	}
}

// ObservationTime returns the instant an observation is requested for: 06:00:00 UTC on the
// given day.
func ObservationTime(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 6, 0, 0, 0, time.UTC)
}

// DaysBetween returns every calendar day from start to end inclusive. An end before start
// yields no days.
func DaysBetween(start, end time.Time) []time.Time {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}
