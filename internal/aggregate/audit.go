package aggregate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/i474232898/weather-history/internal/csvstore"
	"github.com/i474232898/weather-history/internal/weather"
)

// firstDataLine is the line number of the first data row; the header is line 1.
const firstDataLine = 2

// Key is the natural key of an observation row.
type Key struct {
	Date string `json:"date"`
	City string `json:"city_name"`
}

// Duplicate lists every line sharing one key.
type Duplicate struct {
	Key   Key   `json:"key"`
	Lines []int `json:"lines"`
}

// Report is the result of a duplicate audit.
type Report struct {
	Duplicates []Duplicate `json:"duplicates"`
}

// Audit scans the CSV file at path and reports every (date, city_name) key found on more
// than one row, in the order the keys first appear. The file is only read.
func Audit(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, err
	}
	defer f.Close()
	return AuditReader(f)
}

// AuditReader is Audit over an already open CSV stream.
func AuditReader(in io.Reader) (Report, error) {
	r := csvstore.NewReader(in)
	header, err := r.Read()
	if err != nil {
		return Report{}, fmt.Errorf("audit: read header: %w", err)
	}

	dateIdx, cityIdx := -1, -1
	for i, h := range header {
		switch {
		case h == weather.ColumnDate && dateIdx < 0:
			dateIdx = i
		case h == weather.ColumnCity && cityIdx < 0:
			cityIdx = i
		}
	}
	if dateIdx < 0 || cityIdx < 0 {
		return Report{}, ErrMissingKeyColumns
	}

	var order []Key
	lines := make(map[Key][]int)
	for line := firstDataLine; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Report{}, fmt.Errorf("audit: line %d: %w", line, err)
		}
		k := Key{Date: cell(row, dateIdx), City: cell(row, cityIdx)}
		if _, ok := lines[k]; !ok {
			order = append(order, k)
		}
		lines[k] = append(lines[k], line)
	}

	var rep Report
	for _, k := range order {
		if len(lines[k]) > 1 {
			rep.Duplicates = append(rep.Duplicates, Duplicate{Key: k, Lines: lines[k]})
		}
	}
	return rep, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// Write renders the report for a terminal.
func (r Report) Write(w io.Writer) error {
	if len(r.Duplicates) == 0 {
		_, err := fmt.Fprintln(w, "No duplicates found.")
		return err
	}

	if _, err := fmt.Fprintln(w, "Warning: duplicates found in the following line(s):"); err != nil {
		return err
	}
	for _, d := range r.Duplicates {
		nums := make([]string, len(d.Lines))
		for i, l := range d.Lines {
			nums[i] = strconv.Itoa(l)
		}
		if _, err := fmt.Fprintf(w, "%s,%s: lines %s\n", d.Key.Date, d.Key.City, strings.Join(nums, ", ")); err != nil {
			return err
		}
	}
	return nil
}
