package models

import (
	"fmt"
	"sort"
	"strings"
)

// LoadReport summarises one file load. Rejected records are counted per
// reason instead of aborting the load.
type LoadReport struct {
	Source  string         `json:"source"`
	Read    int            `json:"read"`
	Kept    int            `json:"kept"`
	Skipped map[string]int `json:"skipped,omitempty"`
}

func NewLoadReport(source string) *LoadReport {
	return &LoadReport{Source: source, Skipped: map[string]int{}}
}

// Skip counts one rejected record under reason.
func (r *LoadReport) Skip(reason string) {
	r.Skipped[reason]++
}

func (r *LoadReport) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

func (r *LoadReport) String() string {
	s := fmt.Sprintf("%s: read %d, kept %d, skipped %d", r.Source, r.Read, r.Kept, r.SkippedTotal())
	if len(r.Skipped) == 0 {
		return s
	}
	reasons := make([]string, 0, len(r.Skipped))
	for k, v := range r.Skipped {
		reasons = append(reasons, fmt.Sprintf("%s=%d", k, v))
	}
	sort.Strings(reasons)
	return s + " (" + strings.Join(reasons, ", ") + ")"
}
