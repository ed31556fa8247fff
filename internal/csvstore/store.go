package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/i474232898/weather-history/internal/weather"
)

// ErrNotInitialized is returned by operations that need a schema before one exists.
var ErrNotInitialized = errors.New("csv store has no schema yet")

// Store owns one CSV file for the length of a run. The header always equals the schema and
// every row has exactly one cell per schema column.
type Store struct {
	path   string
	schema *Schema
}

// New returns a Store for path. Nothing touches the disk until the first write.
func New(path string) *Store {
	return &Store{path: path}
}

// Open returns a Store that continues an existing file, taking its header as the schema.
func Open(path string) (*Store, error) {
	header, err := ReadHeader(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, schema: NewSchema(header)}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Columns returns the current schema, or nil before initialization.
func (s *Store) Columns() []string {
	if s.schema == nil {
		return nil
	}
	return s.schema.Columns()
}

// Initialize defines the schema from rec's keys and creates (or truncates) the file with
// just the header. rec itself is not written.
func (s *Store) Initialize(rec *weather.Record) error {
	schema := NewSchema(rec.Keys())

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	if err := writeTable(f, schema.Columns(), nil); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", s.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", s.path, err)
	}

	s.schema = schema
	return nil
}

// Append writes rec as a new row. Keys the schema has never seen extend it and trigger a
// migration of every existing row before rec is written; schema columns rec lacks are
// written as weather.MissingValue. The first Append on an uninitialized store initializes it.
func (s *Store) Append(rec *weather.Record) (weather.SchemaChange, error) {
	var change weather.SchemaChange

	if s.schema == nil {
		if err := s.Initialize(rec); err != nil {
			return change, err
		}
	}

	change.Added, change.Missing = s.schema.Diff(rec.Keys())
	if len(change.Added) > 0 {
		next := s.schema.Extend(change.Added)
		if err := s.Migrate(next); err != nil {
			return weather.SchemaChange{}, err
		}
	}

	if err := s.appendRow(rec.Values(s.schema.Columns())); err != nil {
		return change, err
	}
	return change, nil
}

// Migrate rewrites the whole file under next, which must extend the current schema.
// Existing cells keep their values; new columns are filled with weather.MissingValue.
// The rewrite goes through a temporary file, so a failure leaves the original untouched
// and the schema unchanged.
func (s *Store) Migrate(next *Schema) error {
	if s.schema == nil {
		return ErrNotInitialized
	}

	src, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("migrate %s: %w", s.path, err)
	}
	defer src.Close()

	r := NewReader(src)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("migrate %s: read header: %w", s.path, err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[h] = i
	}

	columns := next.Columns()
	err = WriteAtomic(s.path, columns, func(w *csv.Writer) error {
		for {
			row, err := r.Read()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read row: %w", err)
			}
			if err := w.Write(project(row, pos, columns)); err != nil {
				return err
			}
		}
	})
	if err != nil {
		return fmt.Errorf("migrate %s: %w", s.path, err)
	}

	s.schema = next
	return nil
}

func (s *Store) appendRow(values []string) error {
	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("append to %s: %w", s.path, err)
	}

	// Same ill-formed byte replacement as the BOM encoder used for full rewrites.
	enc := transform.NewWriter(f, unicode.UTF8.NewEncoder())
	w := newWriter(enc)
	if err := w.Write(values); err != nil {
		f.Close()
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	return f.Close()
}

// project reorders row, laid out by pos, into columns. Columns the row has no cell for get
// weather.MissingValue.
func project(row []string, pos map[string]int, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		j, ok := pos[c]
		if !ok || j >= len(row) {
			out[i] = weather.MissingValue
			continue
		}
		out[i] = row[j]
	}
	return out
}
