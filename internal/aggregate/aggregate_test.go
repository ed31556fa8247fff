package aggregate

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/i474232898/weather-history/internal/csvstore"
)

func writeCSV(t *testing.T, path string, rows ...[]string) {
	t.Helper()
	err := csvstore.WriteAtomic(path, rows[0], func(w *csv.Writer) error {
		return w.WriteAll(rows[1:])
	})
	if err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestMergeUnionsSchemas(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "weather_data_q1.csv")
	b := filepath.Join(dir, "weather_data_q2.csv")
	writeCSV(t, a,
		[]string{"date", "city_name", "temp"},
		[]string{"20230101", "Shenzhen", "20"},
		[]string{"20230102", "Shenzhen", "21"},
	)
	writeCSV(t, b,
		[]string{"humidity", "city_name", "date"},
		[]string{"80", "Beijing", "20230401"},
	)

	out := filepath.Join(dir, "weather_data_aggregated.csv")
	res, err := Merge([]string{a, b}, out)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	wantCols := []string{"city_name", "date", "humidity", "temp"}
	if !reflect.DeepEqual(res.Columns, wantCols) || res.Rows != 3 || len(res.Files) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}

	header, rows, err := csvstore.ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(header, wantCols) {
		t.Fatalf("header = %v", header)
	}
	want := [][]string{
		{"Shenzhen", "20230101", "NA", "20"},
		{"Shenzhen", "20230102", "NA", "21"},
		{"Beijing", "20230401", "80", "NA"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %v, want %v", rows, want)
	}
}

func TestMergeKeepsDuplicates(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "weather_data_a.csv")
	b := filepath.Join(dir, "weather_data_b.csv")
	row := []string{"20230101", "Shenzhen", "20"}
	writeCSV(t, a, []string{"date", "city_name", "temp"}, row)
	writeCSV(t, b, []string{"date", "city_name", "temp"}, row)

	out := filepath.Join(dir, "agg.csv")
	res, err := Merge([]string{a, b}, out)
	if err != nil {
		t.Fatal(err)
	}
	if res.Rows != 2 {
		t.Fatalf("expected both rows kept, got %d", res.Rows)
	}
}

func TestMergeRequiresKeyColumns(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "weather_data_a.csv")
	writeCSV(t, a, []string{"date", "temp"}, []string{"20230101", "20"})

	out := filepath.Join(dir, "agg.csv")
	if _, err := Merge([]string{a}, out); !errors.Is(err, ErrMissingKeyColumns) {
		t.Fatalf("expected ErrMissingKeyColumns, got %v", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Fatalf("output must not be written, stat err = %v", err)
	}

	if _, err := Merge(nil, out); !errors.Is(err, ErrNoInputs) {
		t.Fatalf("expected ErrNoInputs, got %v", err)
	}
}

func TestMergeShortRowsAreNA(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "weather_data_a.csv")
	if err := os.WriteFile(a, []byte("date,city_name,temp\r\n20230101,Shenzhen\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "agg.csv")
	if _, err := Merge([]string{a}, out); err != nil {
		t.Fatal(err)
	}
	_, rows, err := csvstore.ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(rows, [][]string{{"Shenzhen", "20230101", "NA"}}) {
		t.Fatalf("rows = %v", rows)
	}
}

func TestDiscoverExcludesOutput(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"weather_data_2.csv", "weather_data_1.csv", "weather_data_aggregated.csv", "other.csv"} {
		writeCSV(t, filepath.Join(dir, name), []string{"date", "city_name"})
	}

	files, err := Discover(dir, "weather_data_*.csv", filepath.Join(dir, "weather_data_aggregated.csv"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "weather_data_1.csv"), filepath.Join(dir, "weather_data_2.csv")}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("Discover = %v, want %v", files, want)
	}
}

func TestAudit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agg.csv")
	writeCSV(t, path,
		[]string{"city_name", "date", "temp"},
		[]string{"Shenzhen", "20230101", "20"},
		[]string{"Beijing", "20230101", "-3"},
		[]string{"Shenzhen", "20230101", "21"},
		[]string{"Beijing", "20230102", "-4"},
		[]string{"Shenzhen", "20230101", "22"},
	)

	rep, err := Audit(path)
	if err != nil {
		t.Fatalf("Audit: %v", err)
	}
	want := []Duplicate{{Key: Key{Date: "20230101", City: "Shenzhen"}, Lines: []int{2, 4, 6}}}
	if !reflect.DeepEqual(rep.Duplicates, want) {
		t.Fatalf("duplicates = %+v, want %+v", rep.Duplicates, want)
	}

	var buf bytes.Buffer
	if err := rep.Write(&buf); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "20230101,Shenzhen: lines 2, 4, 6") {
		t.Fatalf("unexpected report %q", buf.String())
	}
}

func TestAuditNoDuplicates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agg.csv")
	writeCSV(t, path,
		[]string{"date", "city_name"},
		[]string{"20230101", "Shenzhen"},
		[]string{"20230101", "Beijing"},
		[]string{"20230102", "Shenzhen"},
	)
	before, _ := os.ReadFile(path)

	rep, err := Audit(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Duplicates) != 0 {
		t.Fatalf("expected no duplicates, got %+v", rep.Duplicates)
	}
	var buf bytes.Buffer
	rep.Write(&buf)
	if strings.TrimSpace(buf.String()) != "No duplicates found." {
		t.Fatalf("unexpected report %q", buf.String())
	}

	after, _ := os.ReadFile(path)
	if !bytes.Equal(before, after) {
		t.Fatal("audit modified the file")
	}
}

func TestMergeOutputModeAndCells(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "weather_data_a.csv")
	if err := os.WriteFile(a, []byte("date,city_name,desc\r\n20230101,Shenzhen,caf\xe9\r\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, inRows, err := csvstore.ReadAll(a)
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "agg.csv")
	if _, err := Merge([]string{a}, out); err != nil {
		t.Fatal(err)
	}
	fi, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if got := fi.Mode().Perm(); got != 0o644 {
		t.Fatalf("aggregate mode = %v, want %v", got, os.FileMode(0o644))
	}
	_, rows, err := csvstore.ReadAll(out)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][2] != inRows[0][2] {
		t.Fatalf("merged cell %q differs from input %q", rows[0][2], inRows[0][2])
	}

	// An existing aggregate keeps its permissions when rewritten.
	if err := os.Chmod(out, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Merge([]string{a}, out); err != nil {
		t.Fatal(err)
	}
	if fi, err = os.Stat(out); err != nil || fi.Mode().Perm() != 0o600 {
		t.Fatalf("rewritten aggregate mode = %v, %v", fi.Mode().Perm(), err)
	}
}
