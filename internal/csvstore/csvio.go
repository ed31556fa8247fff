package csvstore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// NewReader returns a csv.Reader over r that drops a leading UTF-8 byte-order mark and
// accepts rows of any width. Invalid UTF-8 reads as U+FFFD, the same replacement the
// writers apply, so a cell reads back exactly as it was written.
func NewReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1
	return cr
}

// newWriter returns a CRLF csv.Writer over w. Callers own the encoding of w.
func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	return cw
}

// ReadHeader returns the header row of the CSV file at path.
func ReadHeader(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, err := NewReader(f).Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty csv file", path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", path, err)
	}
	return header, nil
}

// ReadAll returns the header and every data row of the CSV file at path.
func ReadAll(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := NewReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%s: empty csv file", path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: read header: %w", path, err)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: read rows: %w", path, err)
	}
	return header, rows, nil
}

// WriteFunc streams rows into an open csv.Writer.
type WriteFunc func(w *csv.Writer) error

// defaultFileMode is applied to files WriteAtomic creates from scratch.
const defaultFileMode os.FileMode = 0o644

// WriteAtomic writes a complete CSV file (BOM, header, rows) to a temporary file next to
// path and renames it over path once everything is on disk. A replaced file keeps its
// permissions; a new one gets defaultFileMode. On failure path is left as it was and the
// temporary file is removed.
func WriteAtomic(path string, header []string, rows WriteFunc) (err error) {
	mode := defaultFileMode
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err = writeTable(tmp, header, rows); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// writeTable writes a BOM, the header and rows to w.
func writeTable(w io.Writer, header []string, rows WriteFunc) error {
	enc := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := newWriter(enc)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if rows != nil {
		if err := rows(cw); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return enc.Close()
}
