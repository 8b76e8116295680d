package models

import "math"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is finite and inside WGS-84 bounds.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180
}

// Subject is a listed property (local, apartment, office...).
type Subject struct {
	Title        string     `json:"title"`
	Price        float64    `json:"price"`
	Area         float64    `json:"area"` // m²
	PropertyType string     `json:"property_type"`
	Stratum      string     `json:"stratum"`
	Bathrooms    int        `json:"bathrooms"`
	Bedrooms     int        `json:"bedrooms"`
	Garage       int        `json:"garage"`
	Loc          Coordinate `json:"location"`
	ImageURL     string     `json:"image_url,omitempty"`
	Publisher    string     `json:"publisher,omitempty"`
}

// Landmark is a point of interest. Only point geometries make it this far.
type Landmark struct {
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Loc      Coordinate `json:"location"`
}

type SearchResult struct {
	Subject  Subject  `json:"subject"`
	Landmark Landmark `json:"landmark"`
	Distance float64  `json:"distance_m"`
	Geohash  string   `json:"geohash"`
}

// ResultRow is the flat spreadsheet form of a SearchResult.
type ResultRow struct {
	Title        string
	Price        float64
	Area         float64
	PropertyType string
	Stratum      string
	Bathrooms    int
	Bedrooms     int
	Garage       int
	SubjectLat   float64
	SubjectLon   float64
	LandmarkName string
	Category     string
	LandmarkLat  float64
	LandmarkLon  float64
	Distance     int
}

func (r SearchResult) Row() ResultRow {
	return ResultRow{
		Title:        r.Subject.Title,
		Price:        r.Subject.Price,
		Area:         r.Subject.Area,
		PropertyType: r.Subject.PropertyType,
		Stratum:      r.Subject.Stratum,
		Bathrooms:    r.Subject.Bathrooms,
		Bedrooms:     r.Subject.Bedrooms,
		Garage:       r.Subject.Garage,
		SubjectLat:   r.Subject.Loc.Lat,
		SubjectLon:   r.Subject.Loc.Lon,
		LandmarkName: r.Landmark.Name,
		Category:     r.Landmark.Category,
		LandmarkLat:  r.Landmark.Loc.Lat,
		LandmarkLon:  r.Landmark.Loc.Lon,
		Distance:     int(math.Round(r.Distance)),
	}
}

// Dataset is the load-once, read-only handle passed to every search.
type Dataset struct {
	Subjects  []Subject
	Landmarks []Landmark
	Reports   []*LoadReport
}
