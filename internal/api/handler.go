package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"nearby-listings/internal/calculator"
	"nearby-listings/internal/config"
	"nearby-listings/internal/excel"
	"nearby-listings/internal/filter"
	"nearby-listings/internal/gdp"
	"nearby-listings/internal/jobs"
	"nearby-listings/internal/models"
)

const (
	sessionName   = "nearby"
	lastSearchKey = "last_search"
	resultSheet   = "Resultados"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	cfg   config.Config
	data  *models.Dataset
	index *calculator.Index
	gdp   *gdp.Table
	jobs  *jobs.Store

	categories    []string
	propertyTypes []string
	strata        []string
}

// NewHandler wires the loaded data into the HTTP layer. gdpTable may be nil
// when no GDP file is configured.
func NewHandler(cfg config.Config, ds *models.Dataset, gdpTable *gdp.Table, store *jobs.Store) *Handler {
	h := &Handler{
		cfg:  cfg,
		data: ds,
		gdp:  gdpTable,
		jobs: store,
	}
	if cfg.UseIndex {
		h.index = calculator.NewIndex(ds.Landmarks)
	}

	h.categories = calculator.Categories(ds.Landmarks)
	sort.Strings(h.categories)

	types := map[string]struct{}{}
	strata := map[string]struct{}{}
	for _, s := range ds.Subjects {
		if s.PropertyType != "" {
			types[s.PropertyType] = struct{}{}
		}
		if s.Stratum != "" {
			strata[s.Stratum] = struct{}{}
		}
	}
	h.propertyTypes = sortedKeys(types)
	h.strata = sortedKeys(strata)
	return h
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// NewRouter builds the gin engine with session support and every route.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.Default()
	store := cookie.NewStore([]byte(h.cfg.SessionSecret))
	r.Use(sessions.Sessions(sessionName, store))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })

	api := r.Group("/api")
	{
		api.GET("/meta", h.Meta)
		api.GET("/categories", h.Categories)
		api.GET("/property-types", h.PropertyTypes)
		api.GET("/strata", h.Strata)
		api.GET("/search", h.Search)
		api.GET("/nearest", h.Nearest)
		api.POST("/export", h.Export)

		api.GET("/gdp", h.GDP)
		api.GET("/gdp/countries", h.GDPCountries)
		api.GET("/gdp/metrics", h.GDPMetrics)
	}

	r.GET("/logs", h.Logs)
	r.GET("/status", h.Status)
	r.GET("/download-result/:filename", h.Download)
	return r
}

// radius resolves the requested radius; ok is false when it is outside the
// slider bounds, which yields an empty result rather than an error.
func (h *Handler) radius(q SearchQuery) (float64, bool) {
	r := h.cfg.DefaultRadius
	if q.Radius != nil {
		r = *q.Radius
	}
	return r, r >= 0 && r <= h.cfg.MaxRadius
}

func (h *Handler) run(q SearchQuery, onProgress calculator.ProgressCallback, logger calculator.LoggerCallback) []models.SearchResult {
	var results []models.SearchResult
	switch q.mode() {
	case ModeNearest:
		results = calculator.ComputeNearest(h.data, q.Category, onProgress, logger)
	default:
		radius, ok := h.radius(q)
		if !ok {
			return nil
		}
		if h.index != nil {
			results = h.index.ComputeRadius(h.data, q.Category, radius, onProgress, logger)
		} else {
			results = calculator.ComputeRadius(h.data, q.Category, radius, onProgress, logger)
		}
	}

	results = filter.Apply(results, q.Criteria())
	if q.Dedupe {
		results = filter.Dedupe(results)
	}
	return results
}

type SearchResponse struct {
	Mode     string                `json:"mode"`
	Category string                `json:"category"`
	Radius   *float64              `json:"radius,omitempty"`
	Count    int                   `json:"count"`
	Empty    bool                  `json:"empty"`
	Results  []models.SearchResult `json:"results"`
}

func (h *Handler) respond(c *gin.Context, q SearchQuery) {
	if strings.TrimSpace(q.Category) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}

	results := h.run(q, nil, nil)
	if results == nil {
		results = []models.SearchResult{}
	}
	resp := SearchResponse{
		Mode:     q.mode(),
		Category: q.Category,
		Count:    len(results),
		Empty:    len(results) == 0,
		Results:  results,
	}
	if q.mode() == ModeRadius {
		radius, _ := h.radius(q)
		resp.Radius = &radius
	}

	h.remember(c, q)
	if strings.EqualFold(q.Format, "xlsx") {
		h.stream(c, resp.Mode, results)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// stream sends the result table as a workbook instead of JSON.
func (h *Handler) stream(c *gin.Context, mode string, results []models.SearchResult) {
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.xlsx"`, mode))
	if err := excel.StreamResult(c.Writer, resultRows(results), resultSheet); err != nil {
		log.Printf("Stream %s result: %v", mode, err)
		if !c.Writer.Written() {
			c.Writer.Header().Del("Content-Disposition")
			c.Writer.Header().Del("Content-Type")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not build workbook"})
		}
	}
}

func resultRows(results []models.SearchResult) []models.ResultRow {
	rows := make([]models.ResultRow, len(results))
	for i, r := range results {
		rows[i] = r.Row()
	}
	return rows
}

func (h *Handler) Search(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Mode = ModeRadius
	h.respond(c, q)
}

func (h *Handler) Nearest(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Mode = ModeNearest
	h.respond(c, q)
}

func (h *Handler) remember(c *gin.Context, q SearchQuery) {
	raw, err := json.Marshal(q)
	if err != nil {
		return
	}
	session := sessions.Default(c)
	session.Set(lastSearchKey, string(raw))
	if err := session.Save(); err != nil {
		log.Printf("Save session: %v", err)
	}
}

func (h *Handler) lastSearch(c *gin.Context) (SearchQuery, bool) {
	var q SearchQuery
	raw, ok := sessions.Default(c).Get(lastSearchKey).(string)
	if !ok || raw == "" {
		return q, false
	}
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return q, false
	}
	return q, true
}

// Export writes the result table of a query to an xlsx file in the
// background. Without a body the session's last search is exported.
func (h *Handler) Export(c *gin.Context) {
	var q SearchQuery
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
			return
		}
	} else {
		var ok bool
		if q, ok = h.lastSearch(c); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "no search to export"})
			return
		}
	}
	if strings.TrimSpace(q.Category) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "category is required"})
		return
	}

	job := h.jobs.Start(func(job *jobs.Job) (*jobs.JobResult, error) {
		return h.export(job, q)
	})
	c.JSON(http.StatusAccepted, gin.H{"ok": true, "job_id": job.ID})
}

func (h *Handler) export(job *jobs.Job, q SearchQuery) (*jobs.JobResult, error) {
	mode := q.mode()
	if mode == ModeNearest {
		job.Log(fmt.Sprintf("Nearest %s per listing...", q.Category))
	} else {
		radius, _ := h.radius(q)
		job.Log(fmt.Sprintf("Searching %s within %.0fm...", q.Category, radius))
	}

	rows := resultRows(h.run(q, job.SetProgress, job.Log))

	if err := os.MkdirAll(h.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	filename := fmt.Sprintf("%s_%s.xlsx", mode, job.ID)
	output := filepath.Join(h.cfg.OutputDir, filename)

	job.Log("Writing result workbook...")
	if err := excel.WriteResult(output, rows, resultSheet); err != nil {
		return nil, fmt.Errorf("write result: %w", err)
	}
	return &jobs.JobResult{
		Mode:     mode,
		Rows:     len(rows),
		Sheet:    resultSheet,
		Output:   output,
		Filename: filename,
	}, nil
}

func (h *Handler) Logs(c *gin.Context) {
	job := h.jobs.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusOK, gin.H{"ok": false, "error": "Job not found"})
		return
	}
	snap := job.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"logs":     snap.Logs,
		"status":   snap.Status,
		"progress": snap.Progress,
	})
}

func (h *Handler) Status(c *gin.Context) {
	job := h.jobs.Get(c.Query("job_id"))
	if job == nil {
		c.JSON(http.StatusOK, gin.H{"ok": false})
		return
	}
	snap := job.Snapshot()
	res := gin.H{
		"ok":     true,
		"status": snap.Status,
		"error":  snap.Error,
	}
	if snap.Result != nil {
		res["result"] = snap.Result
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Download(c *gin.Context) {
	filename := c.Param("filename")
	if filename != filepath.Base(filename) || !strings.HasSuffix(filename, ".xlsx") {
		c.String(http.StatusBadRequest, "invalid file name")
		return
	}
	target := filepath.Join(h.cfg.OutputDir, filename)
	if _, err := os.Stat(target); err != nil {
		c.String(http.StatusNotFound, "result not found")
		return
	}
	c.FileAttachment(target, filename)
}
