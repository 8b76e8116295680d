package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"nearby-listings/internal/excel"
)

var ErrMissingColumn = errors.New("missing required column")

type table struct {
	header []string
	rows   [][]string
}

// column finds the first header matching any candidate, ignoring case and
// surrounding spaces. -1 when absent.
func (t *table) column(candidates ...string) int {
	for i, h := range t.header {
		hl := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, c := range candidates {
			if hl == strings.ToLower(c) {
				return i
			}
		}
	}
	return -1
}

func (t *table) require(candidates ...string) (int, error) {
	idx := t.column(candidates...)
	if idx < 0 {
		return -1, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(candidates, "|"))
	}
	return idx, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func readCSV(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &table{header: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// a broken line is a record-level problem, keep going
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				t.rows = append(t.rows, nil)
				continue
			}
			return nil, err
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func readCSVFile(path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readCSV(f)
}

func readXLSXFile(path string) (*table, error) {
	f, err := excel.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, rows, err := excel.ReadRows(f, "")
	if err != nil {
		return nil, err
	}
	return &table{header: header, rows: rows}, nil
}
