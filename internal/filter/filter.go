// Package filter narrows an already computed result set by listing attributes.
package filter

import (
	"strings"

	"nearby-listings/internal/models"
)

// Range is an inclusive numeric interval. A nil bound is open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r Range) IsZero() bool {
	return r.Min == nil && r.Max == nil
}

// Criteria holds the optional post-search constraints. Zero values mean no
// constraint, so the zero Criteria keeps everything.
type Criteria struct {
	PropertyTypes []string `json:"property_types,omitempty"`
	Area          Range    `json:"area"`
	Price         Range    `json:"price"`
	Stratum       string   `json:"stratum,omitempty"`
}

// Predicate reports whether a result should be kept.
type Predicate func(models.SearchResult) bool

func PropertyTypeIn(types []string) Predicate {
	set := make(map[string]struct{}, len(types))
	for _, t := range types {
		set[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return func(r models.SearchResult) bool {
		_, ok := set[strings.ToLower(strings.TrimSpace(r.Subject.PropertyType))]
		return ok
	}
}

func AreaIn(rng Range) Predicate {
	return func(r models.SearchResult) bool { return rng.Contains(r.Subject.Area) }
}

func PriceIn(rng Range) Predicate {
	return func(r models.SearchResult) bool { return rng.Contains(r.Subject.Price) }
}

func StratumIs(stratum string) Predicate {
	want := strings.TrimSpace(stratum)
	return func(r models.SearchResult) bool { return r.Subject.Stratum == want }
}

// Predicates turns the set fields of c into predicates; unset fields are skipped.
func (c Criteria) Predicates() []Predicate {
	var preds []Predicate
	if len(c.PropertyTypes) > 0 {
		preds = append(preds, PropertyTypeIn(c.PropertyTypes))
	}
	if !c.Area.IsZero() {
		preds = append(preds, AreaIn(c.Area))
	}
	if !c.Price.IsZero() {
		preds = append(preds, PriceIn(c.Price))
	}
	if strings.TrimSpace(c.Stratum) != "" {
		preds = append(preds, StratumIs(c.Stratum))
	}
	return preds
}

// Where keeps the results matching every predicate, preserving order.
func Where(results []models.SearchResult, preds ...Predicate) []models.SearchResult {
	if len(preds) == 0 {
		return results
	}
	out := make([]models.SearchResult, 0, len(results))
next:
	for _, r := range results {
		for _, p := range preds {
			if !p(r) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

func Apply(results []models.SearchResult, c Criteria) []models.SearchResult {
	return Where(results, c.Predicates()...)
}

// Dedupe collapses results that share a subject location, keeping the first.
func Dedupe(results []models.SearchResult) []models.SearchResult {
	seen := make(map[models.Coordinate]struct{}, len(results))
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Subject.Loc]; ok {
			continue
		}
		seen[r.Subject.Loc] = struct{}{}
		out = append(out, r)
	}
	return out
}
