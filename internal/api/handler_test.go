package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"nearby-listings/internal/config"
	"nearby-listings/internal/dataset"
	"nearby-listings/internal/gdp"
	"nearby-listings/internal/jobs"
	"nearby-listings/internal/models"
)

const poisCSV = `name,amenity,geometry
Colegio Distrital,School,POINT (-74.0833 4.651)
Jardin Infantil,school,POINT (-74.0840 4.6505)
Parque,park,"POLYGON ((-74.0834 4.6499, -74.0832 4.6499, -74.0832 4.6501, -74.0834 4.6499))"
Banco,bank,POINT (-74.0815 4.6545)
`

const gdpCSV = `Country Name,Country Code,1960,2022
Germany,DEU,,4082469490000
France,FRA,62225478000,2779092235838
Colombia,COL,4031152976,343622114050
`

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	router *gin.Engine
	cfg    config.Config
}

func newFixture(t *testing.T, useIndex bool) *fixture {
	t.Helper()
	landmarks, landmarkReport, err := dataset.LandmarksFromCSV("pois.csv", strings.NewReader(poisCSV))
	require.NoError(t, err)

	ds := &models.Dataset{
		Subjects: []models.Subject{
			{Title: "Local Chapinero", Price: 2500000, Area: 45, PropertyType: "Local", Stratum: "4", Loc: models.Coordinate{Lat: 4.6500, Lon: -74.0833}},
			{Title: "Oficina Centro", Price: 3200000, Area: 85, PropertyType: "Oficina", Stratum: "3", Loc: models.Coordinate{Lat: 4.6540, Lon: -74.0820}},
		},
		Landmarks: landmarks,
		Reports:   []*models.LoadReport{landmarkReport},
	}
	tbl, err := gdp.Read(strings.NewReader(gdpCSV))
	require.NoError(t, err)

	cfg := config.Default()
	cfg.OutputDir = t.TempDir()
	cfg.UseIndex = useIndex
	cfg.DefaultCountries = []string{"FRA", "COL"}

	h := NewHandler(cfg, ds, tbl, jobs.NewStore())
	return &fixture{router: NewRouter(h), cfg: cfg}
}

func (f *fixture) do(t *testing.T, method, target string, body []byte, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSearchFindsSchoolWithinRadius(t *testing.T) {
	for _, indexed := range []bool{false, true} {
		f := newFixture(t, indexed)

		w := f.do(t, http.MethodGet, "/api/search?category=school&radius=200", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[SearchResponse](t, w)
		require.Equal(t, 2, resp.Count)
		assert.False(t, resp.Empty)
		assert.Equal(t, "Colegio Distrital", resp.Results[0].Landmark.Name)
		assert.InDelta(t, 111, resp.Results[0].Distance, 1)
		assert.Equal(t, "Jardin Infantil", resp.Results[1].Landmark.Name)

		upper := decode[SearchResponse](t, f.do(t, http.MethodGet, "/api/search?category=SCHOOL&radius=200", nil))
		assert.Equal(t, resp.Results, upper.Results)

		narrow := decode[SearchResponse](t, f.do(t, http.MethodGet, "/api/search?category=school&radius=50", nil))
		assert.True(t, narrow.Empty)
		assert.Equal(t, 0, narrow.Count)
		assert.NotNil(t, narrow.Results)
	}
}

func TestSearchInvalidParametersYieldEmpty(t *testing.T) {
	f := newFixture(t, true)

	for _, target := range []string{
		"/api/search?category=school&radius=-10",
		"/api/search?category=school&radius=5000",
		"/api/search?category=museum&radius=3000",
		"/api/search?category=park&radius=3000",
	} {
		w := f.do(t, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, w.Code, target)
		assert.True(t, decode[SearchResponse](t, w).Empty, target)
	}

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/search?radius=100", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/search?category=school&radius=far", nil).Code)
}

func TestSearchDefaultRadius(t *testing.T) {
	f := newFixture(t, false)
	resp := decode[SearchResponse](t, f.do(t, http.MethodGet, "/api/search?category=bank", nil))
	require.NotNil(t, resp.Radius)
	assert.Equal(t, f.cfg.DefaultRadius, *resp.Radius)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "Oficina Centro", resp.Results[0].Subject.Title)
}

func TestSearchPostFiltersAndDedupe(t *testing.T) {
	f := newFixture(t, false)

	all := decode[SearchResponse](t, f.do(t, http.MethodGet, "/api/search?category=school&radius=3000", nil))
	require.Equal(t, 4, all.Count)

	resp := decode[SearchResponse](t, f.do(t, http.MethodGet, "/api/search?category=school&radius=3000&property_type=oficina", nil))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Oficina Centro", resp.Results[0].Subject.Title)

	resp = decode[SearchResponse](t, f.do(t, http.MethodGet, "/api/search?category=school&radius=3000&price_max=3000000&stratum=4", nil))
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Local Chapinero", resp.Results[0].Subject.Title)

	resp = decode[SearchResponse](t, f.do(t, http.MethodGet, "/api/search?category=school&radius=3000&area_min=50&area_max=100", nil))
	assert.Equal(t, 2, resp.Count)

	resp = decode[SearchResponse](t, f.do(t, http.MethodGet, "/api/search?category=school&radius=3000&dedupe=true", nil))
	require.Equal(t, 2, resp.Count)
	assert.NotEqual(t, resp.Results[0].Subject.Title, resp.Results[1].Subject.Title)
}

func TestSearchZeroRadiusIsReported(t *testing.T) {
	f := newFixture(t, false)
	w := f.do(t, http.MethodGet, "/api/search?category=school&radius=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"radius":0`)

	nearest := f.do(t, http.MethodGet, "/api/nearest?category=school", nil)
	assert.NotContains(t, nearest.Body.String(), `"radius"`)
}

func TestSearchStreamsWorkbook(t *testing.T) {
	f := newFixture(t, true)

	w := f.do(t, http.MethodGet, "/api/search?category=school&radius=200&format=xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "radius.xlsx")

	wb, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(resultSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Local Chapinero", rows[1][0])
	assert.Equal(t, "Colegio Distrital", rows[1][10])

	empty := f.do(t, http.MethodGet, "/api/search?category=museum&format=xlsx", nil)
	require.Equal(t, http.StatusOK, empty.Code)
	wb, err = excelize.OpenReader(bytes.NewReader(empty.Body.Bytes()))
	require.NoError(t, err)
	defer wb.Close()
	rows, err = wb.GetRows(resultSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSearchLogsSessionSaveFailure(t *testing.T) {
	f := newFixture(t, false)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	target := "/api/search?category=school&radius=200" + strings.Repeat("&property_type=Apartamento-duplex", 300)
	w := f.do(t, http.MethodGet, target, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), "Save session")
}

func TestNearest(t *testing.T) {
	f := newFixture(t, false)
	resp := decode[SearchResponse](t, f.do(t, http.MethodGet, "/api/nearest?category=bank", nil))
	assert.Equal(t, ModeNearest, resp.Mode)
	require.Equal(t, 2, resp.Count)
	assert.Equal(t, "Banco", resp.Results[0].Landmark.Name)
	assert.Greater(t, resp.Results[0].Distance, resp.Results[1].Distance)
}

func TestCatalogEndpoints(t *testing.T) {
	f := newFixture(t, true)

	cats := decode[map[string][]string](t, f.do(t, http.MethodGet, "/api/categories", nil))
	assert.Equal(t, []string{"School", "bank"}, cats["categories"])

	types := decode[map[string][]string](t, f.do(t, http.MethodGet, "/api/property-types", nil))
	assert.Equal(t, []string{"Local", "Oficina"}, types["property_types"])

	strata := decode[map[string][]string](t, f.do(t, http.MethodGet, "/api/strata", nil))
	assert.Equal(t, []string{"3", "4"}, strata["strata"])

	meta := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/meta", nil))
	assert.Equal(t, 2.0, meta["subjects"])
	assert.Equal(t, 3.0, meta["landmarks"])
	assert.Equal(t, 3000.0, meta["max_radius"])
	assert.Equal(t, true, meta["indexed"])
	reports, _ := meta["reports"].([]any)
	require.Len(t, reports, 1)
	report, _ := reports[0].(map[string]any)
	assert.Equal(t, "pois.csv", report["source"])
	assert.Equal(t, 3.0, report["kept"])
	assert.Equal(t, map[string]any{"not a point": 1.0}, report["skipped"])

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)
}

type statusResponse struct {
	OK     bool            `json:"ok"`
	Status jobs.JobStatus  `json:"status"`
	Error  string          `json:"error"`
	Result *jobs.JobResult `json:"result"`
}

func (f *fixture) waitForJob(t *testing.T, id string) statusResponse {
	t.Helper()
	var st statusResponse
	require.Eventually(t, func() bool {
		st = decode[statusResponse](t, f.do(t, http.MethodGet, "/status?job_id="+id, nil))
		return st.Status != jobs.StatusRunning
	}, 5*time.Second, 10*time.Millisecond)
	return st
}

func TestExportJobWritesWorkbook(t *testing.T) {
	f := newFixture(t, true)

	body, _ := json.Marshal(SearchQuery{Category: "school", Radius: ptr(200.0)})
	w := f.do(t, http.MethodPost, "/api/export", body)
	require.Equal(t, http.StatusAccepted, w.Code)
	started := decode[map[string]any](t, w)
	id, _ := started["job_id"].(string)
	require.NotEmpty(t, id)

	st := f.waitForJob(t, id)
	require.Equal(t, jobs.StatusDone, st.Status, st.Error)
	require.NotNil(t, st.Result)
	assert.Equal(t, 2, st.Result.Rows)
	assert.Equal(t, ModeRadius, st.Result.Mode)

	logs := decode[map[string]any](t, f.do(t, http.MethodGet, "/logs?job_id="+id, nil))
	assert.Equal(t, true, logs["ok"])
	assert.NotEmpty(t, logs["logs"])

	dl := f.do(t, http.MethodGet, "/download-result/"+st.Result.Filename, nil)
	assert.Equal(t, http.StatusOK, dl.Code)
	assert.NotZero(t, dl.Body.Len())
}

func TestExportUsesLastSearchFromSession(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/export", nil).Code)

	search := f.do(t, http.MethodGet, "/api/search?category=bank&radius=1000", nil)
	require.Equal(t, http.StatusOK, search.Code)
	cookies := search.Result().Cookies()
	require.NotEmpty(t, cookies)

	w := f.do(t, http.MethodPost, "/api/export", nil, cookies...)
	require.Equal(t, http.StatusAccepted, w.Code)
	id, _ := decode[map[string]any](t, w)["job_id"].(string)

	st := f.waitForJob(t, id)
	require.Equal(t, jobs.StatusDone, st.Status, st.Error)
	assert.Equal(t, 2, st.Result.Rows)
}

func TestJobLookupsAndDownloadGuards(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, false, decode[map[string]any](t, f.do(t, http.MethodGet, "/status?job_id=missing", nil))["ok"])
	assert.Equal(t, false, decode[map[string]any](t, f.do(t, http.MethodGet, "/logs?job_id=missing", nil))["ok"])
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/download-result/notes.txt", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/download-result/missing.xlsx", nil).Code)
}

func ptr[T any](v T) *T { return &v }
