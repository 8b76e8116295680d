package gdp

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Metric summarises one country between two years, in billions of USD.
type Metric struct {
	Country    string   `json:"country"`
	Value      *float64 `json:"value_billions"`
	Label      string   `json:"label"`
	Growth     string   `json:"growth"`
	DeltaColor string   `json:"delta_color"`
}

// Metrics reports GDP at year `to` and the growth multiple since `from` for
// each requested country, in request order. Unknown countries are skipped.
func (t *Table) Metrics(countries []string, from, to int) []Metric {
	var out []Metric
	for _, c := range countries {
		if _, ok := t.index[c]; !ok {
			continue
		}
		first := billions(t.Value(c, from))
		last := billions(t.Value(c, to))

		m := Metric{Country: c, Label: "n/a", Growth: "n/a", DeltaColor: "off"}
		if last != nil {
			m.Value = last
			m.Label = commafy(*last) + "B"
		}
		if first != nil && last != nil && *first != 0 {
			m.Growth = fmt.Sprintf("%.2fx", *last / *first)
			m.DeltaColor = "normal"
		}
		out = append(out, m)
	}
	return out
}

func billions(v *float64) *float64 {
	if v == nil {
		return nil
	}
	b := *v / 1e9
	return &b
}

// commafy formats v with no decimals and thousands separators.
func commafy(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}
