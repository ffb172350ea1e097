// Package extract reads the raw CSV extracts into memory.
//
// Reading is deliberately dumb: cells are kept as strings, exactly as they
// appear in the file after BOM removal and UTF-8 repair. Interpreting them
// (dates, numbers, nulls) is the cleaner's job.
package extract

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
)

// utf8BOM is prepended by Windows tools such as Excel.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrMissingColumns is wrapped by ExtractionError when the header lacks a
// required column.
var ErrMissingColumns = errors.New("missing required columns")

// ExtractionError reports a source file that could not be read or parsed.
// It is fatal: the pipeline stops before any database session is opened.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// HeaderIndex maps column names (lowercase) to their position in a row.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased for case-insensitive matching.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := idx[key]; dup {
			continue // first occurrence wins
		}
		idx[key] = i
	}
	return idx
}

// Table is a parsed extract: a header and its data rows in file order.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string

	index HeaderIndex
}

// NewTable builds a Table from a header and rows.
func NewTable(header []string, rows [][]string) *Table {
	return &Table{
		Header: header,
		Rows:   rows,
		index:  MakeHeaderIndex(header),
	}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Has reports whether the table carries column.
func (t *Table) Has(column string) bool {
	_, ok := t.index[strings.ToLower(column)]
	return ok
}

// Cell returns the raw value of column in row i, or "" if the column is
// absent or the row is short.
func (t *Table) Cell(i int, column string) string {
	pos, ok := t.index[strings.ToLower(column)]
	if !ok || pos >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][pos]
}

// Require checks that every column in required is present in the header.
func (t *Table) Require(required []string) error {
	var missing []string
	for _, col := range required {
		if !t.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

// ReadTable reads the CSV file at path. The first row is the header; fully
// empty rows are skipped. It fails with *ExtractionError if the file is
// missing, unparseable, empty, or lacks one of the required columns.
func ReadTable(path string, required []string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}

	table, err := Parse(data)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	table.Path = path

	if err := table.Require(required); err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	return table, nil
}

// Parse parses CSV bytes into a Table.
func Parse(data []byte) (*Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	data = bytes.ToValidUTF8(data, []byte("\uFFFD"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("file is empty")
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isEmptyRow(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return NewTable(records[0], rows), nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
