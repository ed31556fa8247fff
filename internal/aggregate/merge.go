package aggregate

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/i474232898/weather-history/internal/csvstore"
	"github.com/i474232898/weather-history/internal/weather"
)

var (
	// ErrNoInputs is returned when there is nothing to merge.
	ErrNoInputs = errors.New("no input csv files")

	// ErrMissingKeyColumns is returned when no input carries the date and city_name columns.
	ErrMissingKeyColumns = errors.New("'date' and 'city_name' columns are required")
)

// Result summarizes a merge.
type Result struct {
	Files   []string
	Columns []string
	Rows    int
}

// Discover returns the files in dir whose names match pattern, sorted, leaving out output so
// that an aggregate matching the same pattern is never merged into itself.
func Discover(dir, pattern, output string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", pattern, err)
	}

	outAbs, _ := filepath.Abs(output)
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if abs, _ := filepath.Abs(m); abs == outAbs {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// UnionColumns returns every column name found in the headers of files, sorted.
func UnionColumns(files []string) ([]string, error) {
	seen := make(map[string]struct{})
	for _, f := range files {
		header, err := csvstore.ReadHeader(f)
		if err != nil {
			return nil, err
		}
		for _, h := range header {
			seen[h] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for c := range seen {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns, nil
}

// Merge writes every row of every file in files to output under the sorted union of their
// columns. Cells a source file has no column for are written as weather.MissingValue.
// Nothing is written when files is empty or the union lacks the natural key columns.
// Duplicate rows are kept.
func Merge(files []string, output string) (Result, error) {
	if len(files) == 0 {
		return Result{}, ErrNoInputs
	}

	columns, err := UnionColumns(files)
	if err != nil {
		return Result{}, err
	}
	if !contains(columns, weather.ColumnDate) || !contains(columns, weather.ColumnCity) {
		return Result{}, ErrMissingKeyColumns
	}

	res := Result{Files: files, Columns: columns}
	err = csvstore.WriteAtomic(output, columns, func(w *csv.Writer) error {
		for _, f := range files {
			n, err := copyRows(f, columns, w)
			if err != nil {
				return err
			}
			res.Rows += n
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("merge into %s: %w", output, err)
	}
	return res, nil
}

func copyRows(path string, columns []string, w *csv.Writer) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := csvstore.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("%s: read header: %w", path, err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}

	n := 0
	out := make([]string, len(columns))
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("%s: %w", path, err)
		}
		for i, c := range columns {
			j, ok := pos[c]
			if !ok || j >= len(row) {
				out[i] = weather.MissingValue
				continue
			}
			out[i] = row[j]
		}
		if err := w.Write(out); err != nil {
			return n, err
		}
		n++
	}
}

func contains(list []string, s string) bool {
	i := sort.SearchStrings(list, s)
	return i < len(list) && list[i] == s
}
