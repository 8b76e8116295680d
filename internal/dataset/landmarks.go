package dataset

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"nearby-listings/internal/models"
)

// ParsePointWKT decodes a WKT geometry and returns it as a coordinate when it
// is a POINT. Other geometry kinds yield ErrNotPoint.
func ParsePointWKT(s string) (models.Coordinate, error) {
	geom, err := wkt.Unmarshal(strings.TrimSpace(s))
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("decode wkt: %w", err)
	}
	p, ok := geom.(orb.Point)
	if !ok {
		return models.Coordinate{}, fmt.Errorf("%w: %s", ErrNotPoint, geom.GeoJSONType())
	}
	c := models.Coordinate{Lat: p.Lat(), Lon: p.Lon()}
	if !c.Valid() {
		return models.Coordinate{}, fmt.Errorf("%w: out of range %q", ErrBadLocation, s)
	}
	return c, nil
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, ErrNotPoint):
		return "not a point"
	case errors.Is(err, ErrBadLocation):
		return "location"
	default:
		return "geometry"
	}
}

func landmarksFromTable(source string, t *table) ([]models.Landmark, *models.LoadReport, error) {
	geomCol, err := t.require("geometry", "wkt", "geom")
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}
	catCol, err := t.require("amenity", "category", "categoria")
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}
	nameCol := t.column("name", "nombre")

	report := models.NewLoadReport(source)
	landmarks := make([]models.Landmark, 0, len(t.rows))
	for _, row := range t.rows {
		report.Read++
		if row == nil {
			report.Skip("malformed row")
			continue
		}
		loc, err := ParsePointWKT(cell(row, geomCol))
		if err != nil {
			report.Skip(skipReason(err))
			continue
		}
		category := cell(row, catCol)
		if category == "" {
			report.Skip("category")
			continue
		}
		landmarks = append(landmarks, models.Landmark{
			Name:     cell(row, nameCol),
			Category: category,
			Loc:      loc,
		})
		report.Kept++
	}
	return landmarks, report, nil
}

// LandmarksFromCSV parses a points-of-interest export with a WKT geometry
// column. Only POINT geometries are kept.
func LandmarksFromCSV(source string, r io.Reader) ([]models.Landmark, *models.LoadReport, error) {
	t, err := readCSV(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}
	return landmarksFromTable(source, t)
}

// landmarksFromShapefile reads a WGS-84 point shapefile. Polygons, lines and
// multipoints are skipped.
func landmarksFromShapefile(path string) ([]models.Landmark, *models.LoadReport, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	catField, nameField := -1, -1
	for i, f := range r.Fields() {
		switch strings.ToLower(f.String()) {
		case "amenity", "category", "categoria":
			if catField < 0 {
				catField = i
			}
		case "name", "nombre":
			if nameField < 0 {
				nameField = i
			}
		}
	}
	if catField < 0 {
		return nil, nil, fmt.Errorf("%w: amenity|category", ErrMissingColumn)
	}

	report := models.NewLoadReport(filepath.Base(path))
	var landmarks []models.Landmark
	for r.Next() {
		report.Read++
		idx, shape := r.Shape()

		var c models.Coordinate
		switch p := shape.(type) {
		case *shp.Point:
			c = models.Coordinate{Lat: p.Y, Lon: p.X}
		case *shp.PointZ:
			c = models.Coordinate{Lat: p.Y, Lon: p.X}
		case *shp.PointM:
			c = models.Coordinate{Lat: p.Y, Lon: p.X}
		default:
			report.Skip("not a point")
			continue
		}
		if !c.Valid() {
			report.Skip("location")
			continue
		}

		category := strings.TrimSpace(r.ReadAttribute(idx, catField))
		if category == "" {
			report.Skip("category")
			continue
		}
		var name string
		if nameField >= 0 {
			name = strings.TrimSpace(r.ReadAttribute(idx, nameField))
		}
		landmarks = append(landmarks, models.Landmark{Name: name, Category: category, Loc: c})
		report.Kept++
	}
	return landmarks, report, nil
}

// LoadLandmarks reads a .csv (WKT geometry column) or .shp points file.
func LoadLandmarks(path string) ([]models.Landmark, *models.LoadReport, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		lms, report, err := landmarksFromShapefile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load landmarks %s: %w", path, err)
		}
		return lms, report, nil
	default:
		t, err := readCSVFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load landmarks %s: %w", path, err)
		}
		return landmarksFromTable(filepath.Base(path), t)
	}
}
