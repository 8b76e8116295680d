package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"nearby-listings/internal/gdp"
	"nearby-listings/internal/models"
)

func (h *Handler) Meta(c *gin.Context) {
	meta := gin.H{
		"subjects":       len(h.data.Subjects),
		"landmarks":      len(h.data.Landmarks),
		"categories":     len(h.categories),
		"min_radius":     0,
		"max_radius":     h.cfg.MaxRadius,
		"default_radius": h.cfg.DefaultRadius,
		"indexed":        h.index != nil,
		"reports":        h.reports(),
	}
	if h.gdp != nil {
		from, to := h.gdp.YearBounds()
		meta["gdp"] = gin.H{
			"min_year":          from,
			"max_year":          to,
			"default_countries": h.cfg.DefaultCountries,
		}
	}
	c.JSON(http.StatusOK, meta)
}

func (h *Handler) reports() []*models.LoadReport {
	if h.data.Reports == nil {
		return []*models.LoadReport{}
	}
	return h.data.Reports
}

func (h *Handler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.categories})
}

func (h *Handler) PropertyTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"property_types": h.propertyTypes})
}

func (h *Handler) Strata(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"strata": h.strata})
}

type gdpQuery struct {
	Countries []string `form:"country"`
	From      *int     `form:"from"`
	To        *int     `form:"to"`
}

// gdpParams binds the country selection and year range, defaulting to the
// configured countries and the full range of the table.
func (h *Handler) gdpParams(c *gin.Context) (*gdp.Table, []string, int, int, bool) {
	if h.gdp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gdp data not loaded"})
		return nil, nil, 0, 0, false
	}
	var q gdpQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, 0, 0, false
	}

	from, to := h.gdp.YearBounds()
	if q.From != nil {
		from = *q.From
	}
	if q.To != nil {
		to = *q.To
	}
	if from > to {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("from must not be after to (%d > %d)", from, to)})
		return nil, nil, 0, 0, false
	}
	countries := q.Countries
	if len(countries) == 0 {
		countries = h.cfg.DefaultCountries
	}
	return h.gdp, countries, from, to, true
}

func (h *Handler) GDP(c *gin.Context) {
	tbl, countries, from, to, ok := h.gdpParams(c)
	if !ok {
		return
	}
	rows := tbl.Filter(countries, from, to)
	if rows == nil {
		rows = []gdp.Row{}
	}
	c.JSON(http.StatusOK, gin.H{
		"countries": countries,
		"from":      from,
		"to":        to,
		"rows":      rows,
	})
}

func (h *Handler) GDPCountries(c *gin.Context) {
	if h.gdp == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "gdp data not loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"countries": h.gdp.Countries()})
}

func (h *Handler) GDPMetrics(c *gin.Context) {
	tbl, countries, from, to, ok := h.gdpParams(c)
	if !ok {
		return
	}
	metrics := tbl.Metrics(countries, from, to)
	if metrics == nil {
		metrics = []gdp.Metric{}
	}
	c.JSON(http.StatusOK, gin.H{
		"from":    from,
		"to":      to,
		"metrics": metrics,
	})
}
