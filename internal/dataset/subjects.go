package dataset

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"nearby-listings/internal/models"
)

type subjectColumns struct {
	title, price, area, ptype, stratum int
	bathrooms, bedrooms, garage, loc   int
	image, publisher                   int
}

func subjectLayout(t *table) (subjectColumns, error) {
	var c subjectColumns
	var err error
	if c.loc, err = t.require("location_point", "location"); err != nil {
		return c, err
	}
	if c.price, err = t.require("price", "precio"); err != nil {
		return c, err
	}
	if c.area, err = t.require("area", "área"); err != nil {
		return c, err
	}
	c.title = t.column("title", "titulo", "título", "name")
	c.ptype = t.column("property_type", "tipo de propiedad", "type")
	c.stratum = t.column("estrato", "stratum")
	c.bathrooms = t.column("bathrooms", "baños")
	c.bedrooms = t.column("bedrooms", "habitaciones")
	c.garage = t.column("garage", "garaje", "parking")
	c.image = t.column("image", "image_url", "imagen")
	c.publisher = t.column("publisher", "publicado_por")
	return c, nil
}

func subjectsFromTable(source string, t *table) ([]models.Subject, *models.LoadReport, error) {
	cols, err := subjectLayout(t)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}

	report := models.NewLoadReport(source)
	subjects := make([]models.Subject, 0, len(t.rows))
	for _, row := range t.rows {
		report.Read++
		if row == nil {
			report.Skip("malformed row")
			continue
		}

		loc, err := ParseLocation(cell(row, cols.loc))
		if err != nil {
			report.Skip("location")
			continue
		}
		price, err := ParsePrice(cell(row, cols.price))
		if err != nil {
			report.Skip("price")
			continue
		}
		area, err := ParseArea(cell(row, cols.area))
		if err != nil {
			report.Skip("area")
			continue
		}

		subjects = append(subjects, models.Subject{
			Title:        cell(row, cols.title),
			Price:        price,
			Area:         area,
			PropertyType: cell(row, cols.ptype),
			Stratum:      NormalizeStratum(cell(row, cols.stratum)),
			Bathrooms:    ParseCount(cell(row, cols.bathrooms)),
			Bedrooms:     ParseCount(cell(row, cols.bedrooms)),
			Garage:       ParseCount(cell(row, cols.garage)),
			Loc:          loc,
			ImageURL:     cell(row, cols.image),
			Publisher:    cell(row, cols.publisher),
		})
		report.Kept++
	}
	return subjects, report, nil
}

// SubjectsFromCSV parses a listings export. Rows with an unreadable
// location, price or area are skipped and counted in the report.
func SubjectsFromCSV(source string, r io.Reader) ([]models.Subject, *models.LoadReport, error) {
	t, err := readCSV(r)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}
	return subjectsFromTable(source, t)
}

// LoadSubjects reads a .csv or .xlsx listings file.
func LoadSubjects(path string) ([]models.Subject, *models.LoadReport, error) {
	var t *table
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		t, err = readXLSXFile(path)
	default:
		t, err = readCSVFile(path)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load subjects %s: %w", path, err)
	}
	return subjectsFromTable(filepath.Base(path), t)
}
