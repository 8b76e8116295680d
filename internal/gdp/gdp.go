// Package gdp reshapes the World Bank GDP export (one column per year) into
// one row per country and year.
package gdp

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

const (
	MinYear = 1960
	MaxYear = 2022
)

var ErrNoYears = errors.New("no year columns")

// Row is one (country, year) observation. GDP is nil where the source cell
// is blank.
type Row struct {
	CountryCode string   `json:"country_code"`
	CountryName string   `json:"country_name"`
	Year        int      `json:"year"`
	GDP         *float64 `json:"gdp"`
}

type Table struct {
	rows      []Row
	countries []string
	minYear   int
	maxYear   int
	index     map[string]map[int]*float64
}

func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load gdp %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read melts the year columns between MinYear and MaxYear. Rows come out
// year by year, countries in file order within a year.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read gdp header: %w", err)
	}
	codeCol, nameCol := -1, -1
	yearCols := map[int]int{}
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case "Country Code":
			codeCol = i
		case "Country Name":
			nameCol = i
		default:
			if y, err := strconv.Atoi(h); err == nil && y >= MinYear && y <= MaxYear {
				yearCols[y] = i
			}
		}
	}
	if codeCol < 0 {
		return nil, fmt.Errorf("gdp: missing Country Code column")
	}
	if len(yearCols) == 0 {
		return nil, ErrNoYears
	}

	records, skipped, err := readRecords(cr)
	if err != nil {
		return nil, fmt.Errorf("read gdp rows: %w", err)
	}
	if skipped > 0 {
		log.Printf("gdp: skipped %d malformed rows", skipped)
	}

	t := &Table{index: map[string]map[int]*float64{}, minYear: MaxYear, maxYear: MinYear}
	for y := range yearCols {
		if y < t.minYear {
			t.minYear = y
		}
		if y > t.maxYear {
			t.maxYear = y
		}
	}

	for _, rec := range records {
		code := field(rec, codeCol)
		if code == "" {
			continue
		}
		if _, ok := t.index[code]; !ok {
			t.index[code] = map[int]*float64{}
			t.countries = append(t.countries, code)
		}
	}

	for y := t.minYear; y <= t.maxYear; y++ {
		col, ok := yearCols[y]
		if !ok {
			continue
		}
		for _, rec := range records {
			code := field(rec, codeCol)
			if code == "" {
				continue
			}
			v := parseValue(field(rec, col))
			t.index[code][y] = v
			t.rows = append(t.rows, Row{
				CountryCode: code,
				CountryName: field(rec, nameCol),
				Year:        y,
				GDP:         v,
			})
		}
	}
	return t, nil
}

// readRecords reads the remaining rows, dropping the ones the csv reader
// cannot parse. Only I/O errors are returned.
func readRecords(cr *csv.Reader) ([][]string, int, error) {
	var (
		records [][]string
		skipped int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return records, skipped, nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, skipped, err
		}
		records = append(records, rec)
	}
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[idx])
}

func parseValue(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func (t *Table) Countries() []string {
	return append([]string(nil), t.countries...)
}

func (t *Table) YearBounds() (int, int) {
	return t.minYear, t.maxYear
}

// Filter returns the rows for the given country codes with from <= year <= to.
func (t *Table) Filter(countries []string, from, to int) []Row {
	want := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		want[c] = struct{}{}
	}
	var out []Row
	for _, r := range t.rows {
		if _, ok := want[r.CountryCode]; !ok {
			continue
		}
		if r.Year < from || r.Year > to {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Value returns the GDP for a country in a year, nil when missing.
func (t *Table) Value(country string, year int) *float64 {
	return t.index[country][year]
}
