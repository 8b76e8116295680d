package dataset

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"nearby-listings/internal/models"
)

var (
	ErrBadLocation = errors.New("invalid location")
	ErrBadNumber   = errors.New("invalid number")
	ErrNotPoint    = errors.New("geometry is not a point")
)

// locationSep separates latitude and longitude in the listings export.
const locationSep = ", "

// ParseLocation parses a "lat, lon" pair. Anything other than exactly two
// finite in-range floats separated by ", " is rejected.
func ParseLocation(s string) (models.Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), locationSep)
	if len(parts) != 2 {
		return models.Coordinate{}, fmt.Errorf("%w: %q", ErrBadLocation, s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: latitude %q", ErrBadLocation, parts[0])
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("%w: longitude %q", ErrBadLocation, parts[1])
	}
	c := models.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return models.Coordinate{}, fmt.Errorf("%w: out of range %q", ErrBadLocation, s)
	}
	return c, nil
}

// thousands matches digit groups of three joined by a single kind of
// separator: "950.000", "1.500.000", "1,200".
var thousands = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$|^\d{1,3}(?:,\d{3})+$`)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// grouped reads t as a thousands-grouped integer. It reports false when t is
// not in that form.
func grouped(t string) (float64, bool) {
	if !thousands.MatchString(t) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.NewReplacer(".", "", ",", "").Replace(t), 64)
	return v, err == nil
}

// ParsePrice accepts plain numbers ("1500000", "1500000.0") and currency
// formatted ones ("$ 1.500.000", "$ 950.000", "1,500,000"). Three-digit
// groups are always read as thousands.
func ParsePrice(s string) (float64, error) {
	t := strings.TrimSpace(s)
	t = strings.TrimPrefix(t, "COP")
	t = strings.TrimSpace(strings.TrimPrefix(t, "$"))
	t = strings.ReplaceAll(t, " ", "")

	v, ok := grouped(t)
	if !ok {
		var err error
		if v, err = strconv.ParseFloat(t, 64); err != nil {
			return 0, fmt.Errorf("%w: price %q", ErrBadNumber, s)
		}
	}
	if !finite(v) || v < 0 {
		return 0, fmt.Errorf("%w: price %q", ErrBadNumber, s)
	}
	return v, nil
}

var areaUnits = []string{"m²", "mts2", "mt2", "m2", "mts", "mt", "m"}

// ParseArea strips a trailing square-meter unit and parses the rest.
// "1.200 m²" is 1200; a lone decimal comma ("60,5") is a decimal.
func ParseArea(s string) (float64, error) {
	t := strings.ToLower(strings.TrimSpace(s))
	for _, u := range areaUnits {
		if strings.HasSuffix(t, u) {
			t = strings.TrimSpace(strings.TrimSuffix(t, u))
			break
		}
	}

	v, ok := grouped(t)
	if !ok {
		var err error
		if strings.Count(t, ",") == 1 && !strings.Contains(t, ".") {
			t = strings.Replace(t, ",", ".", 1)
		}
		if v, err = strconv.ParseFloat(t, 64); err != nil {
			return 0, fmt.Errorf("%w: area %q", ErrBadNumber, s)
		}
	}
	if !finite(v) || v < 0 {
		return 0, fmt.Errorf("%w: area %q", ErrBadNumber, s)
	}
	return v, nil
}

// NormalizeStratum maps the raw estrato column to "1".."6". Values outside
// that scale ("0", "110", "Campestre", "") come back empty so the listing is
// kept but matches no stratum filter.
func NormalizeStratum(s string) string {
	t := strings.ToLower(strings.TrimSpace(s))
	t = strings.TrimSpace(strings.TrimPrefix(t, "estrato"))
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || v != math.Trunc(v) || v < 1 || v > 6 {
		return ""
	}
	return strconv.Itoa(int(v))
}

// ParseCount reads bathroom/bedroom/garage columns. Blank or unreadable
// values count as zero; yes/no flags map to 1/0.
func ParseCount(s string) int {
	t := strings.ToLower(strings.TrimSpace(s))
	switch t {
	case "", "no", "false", "n":
		return 0
	case "si", "sí", "yes", "true", "s", "y":
		return 1
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil || !finite(v) || v < 0 {
		return 0
	}
	return int(v)
}
