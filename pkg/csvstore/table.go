// Package csvstore implements an append-only CSV table persisted to a single
// file with a fixed header row.
package csvstore

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// ErrHeaderMismatch is returned when an existing file carries a different header.
var ErrHeaderMismatch = errors.New("csvstore: header mismatch")

// Table is a file-backed CSV table. Appends and file creation are serialized;
// reads open their own handle and may run concurrently with appends.
type Table struct {
	path   string
	header []string

	mu sync.Mutex
}

// New returns a Table for path. Nothing is touched on disk until Init or Append.
func New(path string, header []string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("csvstore: path is required")
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("csvstore: header is required")
	}
	return &Table{path: path, header: slices.Clone(header)}, nil
}

func (t *Table) Path() string {
	return t.path
}

func (t *Table) Header() []string {
	return slices.Clone(t.header)
}

// Init creates the file with its header row when it does not exist yet.
func (t *Table) Init() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.createIfMissing()
}

// Exists reports whether the backing file is present.
func (t *Table) Exists() (bool, error) {
	_, err := os.Stat(t.path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("csvstore: stat %s: %w", t.path, err)
}

// Append writes a single row. A missing file is recreated with its header first.
func (t *Table) Append(row []string) error {
	if len(row) != len(t.header) {
		return fmt.Errorf("csvstore: row has %d fields, header has %d", len(row), len(t.header))
	}

	encoded, err := encodeRows(row)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.createIfMissing(); err != nil {
		return err
	}

	f, err := os.OpenFile(t.path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("csvstore: open for append: %w", err)
	}
	defer f.Close()

	// A single write keeps the row contiguous even if another process appends.
	if _, err := f.Write(encoded); err != nil {
		return fmt.Errorf("csvstore: append row: %w", err)
	}

	return f.Sync()
}

// Rows returns every data row, header excluded. A missing file yields no rows.
func (t *Table) Rows() ([][]string, error) {
	var rows [][]string
	err := t.Scan(func(row []string) bool {
		rows = append(rows, row)
		return true
	})
	return rows, err
}

// Scan calls fn for every data row in file order until fn returns false.
// Rows are keyed by the file's own header, so fn always receives fields in
// the table's header order even if columns were reordered on disk.
func (t *Table) Scan(fn func(row []string) bool) error {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("csvstore: open: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	fileHeader, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("csvstore: read header: %w", err)
	}

	positions, err := t.columnPositions(fileHeader)
	if err != nil {
		return err
	}

	for {
		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("csvstore: read row: %w", err)
		}

		row := make([]string, len(t.header))
		for i, pos := range positions {
			if pos >= 0 && pos < len(record) {
				row[i] = record[pos]
			}
		}

		if !fn(row) {
			return nil
		}
	}
}

// Count returns the number of data rows. It never goes below zero, including
// for a file that is empty or holds only the header.
func (t *Table) Count() (int, error) {
	count := 0
	err := t.Scan(func([]string) bool {
		count++
		return true
	})
	return count, err
}

// CopyTo streams the raw file bytes into w. A missing file returns fs.ErrNotExist.
func (t *Table) CopyTo(w io.Writer) (int64, error) {
	f, err := os.Open(t.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return io.Copy(w, f)
}

// createIfMissing writes the header into a missing or 0-byte file. Callers
// hold t.mu.
func (t *Table) createIfMissing() error {
	info, err := os.Stat(t.path)
	switch {
	case err == nil && info.Size() > 0:
		return nil
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("csvstore: stat %s: %w", t.path, err)
	}

	if dir := filepath.Dir(t.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("csvstore: create dir: %w", err)
		}
	}

	encoded, err := encodeRows(t.header)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(t.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("csvstore: create: %w", err)
	}
	defer f.Close()

	// Another process may have written the header between Stat and Open.
	if current, err := f.Stat(); err == nil && current.Size() > 0 {
		return nil
	}

	if _, err := f.Write(encoded); err != nil {
		return fmt.Errorf("csvstore: write header: %w", err)
	}
	return f.Sync()
}

func (t *Table) columnPositions(fileHeader []string) ([]int, error) {
	index := make(map[string]int, len(fileHeader))
	for i, name := range fileHeader {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	positions := make([]int, len(t.header))
	matched := 0
	for i, name := range t.header {
		pos, ok := index[name]
		if !ok {
			positions[i] = -1
			continue
		}
		positions[i] = pos
		matched++
	}

	if matched == 0 {
		return nil, fmt.Errorf("%w: got %v", ErrHeaderMismatch, fileHeader)
	}
	return positions, nil
}

func encodeRows(rows ...[]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("csvstore: encode row: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteAll encodes header and rows in the same layout a Table writes to disk.
func WriteAll(w io.Writer, header []string, rows [][]string) error {
	encoded, err := encodeRows(append([][]string{header}, rows...)...)
	if err != nil {
		return err
	}
	_, err = w.Write(encoded)
	return err
}
