package api

import (
	"strings"

	"nearby-listings/internal/filter"
)

const (
	ModeRadius  = "radius"
	ModeNearest = "nearest"
)

// SearchQuery is what the UI sends: a category, a radius and optional
// post-filters. It binds from query strings and JSON bodies alike.
type SearchQuery struct {
	Mode          string   `form:"mode" json:"mode,omitempty"`
	Category      string   `form:"category" json:"category"`
	Radius        *float64 `form:"radius" json:"radius,omitempty"`
	PropertyTypes []string `form:"property_type" json:"property_types,omitempty"`
	AreaMin       *float64 `form:"area_min" json:"area_min,omitempty"`
	AreaMax       *float64 `form:"area_max" json:"area_max,omitempty"`
	PriceMin      *float64 `form:"price_min" json:"price_min,omitempty"`
	PriceMax      *float64 `form:"price_max" json:"price_max,omitempty"`
	Stratum       string   `form:"stratum" json:"stratum,omitempty"`
	Dedupe        bool     `form:"dedupe" json:"dedupe,omitempty"`
	Format        string   `form:"format" json:"-"`
}

func (q SearchQuery) Criteria() filter.Criteria {
	var types []string
	for _, t := range q.PropertyTypes {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	return filter.Criteria{
		PropertyTypes: types,
		Area:          filter.Range{Min: q.AreaMin, Max: q.AreaMax},
		Price:         filter.Range{Min: q.PriceMin, Max: q.PriceMax},
		Stratum:       q.Stratum,
	}
}

func (q SearchQuery) mode() string {
	if strings.EqualFold(q.Mode, ModeNearest) {
		return ModeNearest
	}
	return ModeRadius
}
