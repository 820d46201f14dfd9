package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/promo-dispatch/internal/config"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
	"github.com/andresuchdata/promo-dispatch/internal/service"
	"github.com/andresuchdata/promo-dispatch/internal/sheet"
	"github.com/andresuchdata/promo-dispatch/internal/sheet/sheettest"
	"github.com/andresuchdata/promo-dispatch/internal/storage"
)

var fixedNow = time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

type stubFetcher struct {
	inventory []byte
	promotion []byte
	err       error
}

func (f stubFetcher) FetchInputs(context.Context, string, string) ([]byte, []byte, error) {
	return f.inventory, f.promotion, f.err
}

func newTestRouter(t *testing.T, fetcher *stubFetcher, opts ...service.Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v := viper.New()
	config.SetDefaults(v)
	cfg := config.FromViper(v)

	engine := dispatch.NewEngine(cfg.Engine(),
		dispatch.WithLogger(zerolog.Nop()),
		dispatch.WithClock(func() time.Time { return fixedNow }),
	)
	opts = append([]service.Option{service.WithClock(func() time.Time { return fixedNow })}, opts...)
	services := &Services{AnalysisService: service.NewAnalysisService(engine, cfg.Dispatch, opts...)}
	if fetcher != nil {
		services.Fetcher = fetcher
	}
	return NewRouter(services, RouterOptions{AllowedOrigins: []string{"*"}, MaxUploadMB: 1})
}

func multipartRequest(t *testing.T, path string, files map[string][]byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for field, data := range files {
		part, err := w.CreateFormFile(field, field+".xlsx")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func validFiles(t *testing.T) map[string][]byte {
	return map[string][]byte{
		"inventory": sheettest.Inventory(t).Bytes(),
		"promotion": sheettest.Promotion(t).Bytes(),
	}
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGetParams(t *testing.T) {
	rec := serve(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/api/v1/analysis/params", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"default":2.5,"min":0.1,"max":3,"step":0.1}`, rec.Body.String())
}

func TestAnalyze(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := serve(router, multipartRequest(t, "/api/v1/analysis", validFiles(t), map[string]string{"lead_time": "2"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Message string `json:"message"`
		Records []struct {
			Article              string `json:"article"`
			SuggestedDispatchQty int64  `json:"suggested_dispatch_qty"`
		} `json:"records"`
		Summary []json.RawMessage `json:"summary"`
		Stats   dispatch.Stats    `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Calculation completed successfully", body.Message)
	require.Len(t, body.Records, 2)
	assert.Equal(t, "A1", body.Records[0].Article)
	assert.Equal(t, int64(70), body.Records[0].SuggestedDispatchQty)
	assert.Len(t, body.Summary, 1)
	assert.Equal(t, 2, body.Stats.TotalRecords)
}

func TestAnalyzeStatusCodes(t *testing.T) {
	emptyPromotion := sheettest.Workbook(t, []string{"SKU", "Shop"}, map[string][][]any{
		"SKU":  {{"Group No.", "Article", "SKU Target", "Target Type", "Promotion Days", "Target Cover Days"}},
		"Shop": {{"Site", "Shop Target(HK)", "Shop Target(MO)", "Shop Target(ALL)"}},
	}).Bytes()

	tests := []struct {
		name     string
		files    map[string][]byte
		fields   map[string]string
		wantCode int
		wantBody string
	}{
		{"missing promotion", map[string][]byte{"inventory": sheettest.Inventory(t).Bytes()}, nil, http.StatusBadRequest, "promotion workbook is required"},
		{"lead time not a number", validFiles(t), map[string]string{"lead_time": "abc"}, http.StatusBadRequest, "lead_time must be a number"},
		{"lead time out of range", validFiles(t), map[string]string{"lead_time": "4"}, http.StatusBadRequest, "invalid lead time"},
		{"explicit zero lead time", validFiles(t), map[string]string{"lead_time": "0"}, http.StatusBadRequest, "invalid lead time"},
		{"absent lead time takes default", validFiles(t), nil, http.StatusOK, `"lead_time":2.5`},
		{"bad as_of", validFiles(t), map[string]string{"as_of": "10/05/2024"}, http.StatusBadRequest, "as_of"},
		{"unknown policy", validFiles(t), map[string]string{"sales_policy": "weekly"}, http.StatusBadRequest, "unknown sales policy"},
		{"unreadable", map[string][]byte{"inventory": []byte("nope"), "promotion": sheettest.Promotion(t).Bytes()}, nil, http.StatusBadRequest, "unreadable workbook"},
		{"missing columns", map[string][]byte{"inventory": sheettest.MissingColumns(t).Bytes(), "promotion": sheettest.Promotion(t).Bytes()}, nil, http.StatusUnprocessableEntity, "missing_fields"},
		{"empty input", map[string][]byte{"inventory": sheettest.Inventory(t).Bytes(), "promotion": emptyPromotion}, nil, http.StatusUnprocessableEntity, "No valid data to calculate"},
	}

	router := newTestRouter(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, multipartRequest(t, "/api/v1/analysis", tt.files, tt.fields))
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestAnalyzeRejectsLargeUpload(t *testing.T) {
	files := validFiles(t)
	files["inventory"] = bytes.Repeat([]byte("x"), 2<<20)

	rec := serve(newTestRouter(t, nil), multipartRequest(t, "/api/v1/analysis", files, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestReport(t *testing.T) {
	store, err := storage.NewLocalBackendClient(t.TempDir())
	require.NoError(t, err)
	router := newTestRouter(t, nil, service.WithArchiver(storage.NewReportArchiver(store, "reports"), true))

	rec := serve(router, multipartRequest(t, "/api/v1/analysis/report", validFiles(t), map[string]string{"lead_time": "2"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/vnd.openxmlformats"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "Promotion_Demand_Report_20240510_093000.xlsx")
	assert.Equal(t, "reports/Promotion_Demand_Report_20240510_093000.xlsx", rec.Header().Get("X-Report-Key"))

	wb, err := sheet.ReadWorkbook(rec.Body, "report")
	require.NoError(t, err)
	assert.Equal(t, []string{sheet.SheetAnalysis, sheet.SheetSummary}, wb.Sheets)

	list := serve(router, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), "Promotion_Demand_Report_20240510_093000.xlsx")
}

func TestReportsWithoutStorage(t *testing.T) {
	rec := serve(newTestRouter(t, nil), httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSweep(t *testing.T) {
	router := newTestRouter(t, nil)
	rec := serve(router, multipartRequest(t, "/api/v1/analysis/sweep", validFiles(t), map[string]string{"lead_times": "1, 2,3"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Scenarios []struct {
			LeadTime float64 `json:"lead_time"`
			Status   string  `json:"status"`
		} `json:"scenarios"`
		Completed int `json:"completed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Scenarios, 3)
	assert.Equal(t, 3, body.Completed)
	assert.Equal(t, 2.0, body.Scenarios[1].LeadTime)
	assert.Equal(t, "completed", body.Scenarios[1].Status)

	bad := serve(router, multipartRequest(t, "/api/v1/analysis/sweep", validFiles(t), map[string]string{"lead_times": "1,x"}))
	assert.Equal(t, http.StatusBadRequest, bad.Code)

	zero := serve(router, multipartRequest(t, "/api/v1/analysis/sweep", validFiles(t), map[string]string{"lead_times": "0,2"}))
	assert.Equal(t, http.StatusBadRequest, zero.Code)
	assert.Contains(t, zero.Body.String(), "invalid lead time")
}

func TestAnalyzeDrive(t *testing.T) {
	jsonReq := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis/drive", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	rec := serve(newTestRouter(t, nil), jsonReq(`{"inventory_id":"a","promotion_id":"b"}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	fetcher := &stubFetcher{inventory: sheettest.Inventory(t).Bytes(), promotion: sheettest.Promotion(t).Bytes()}
	router := newTestRouter(t, fetcher)

	rec = serve(router, jsonReq(`{"inventory_id":"a","promotion_id":"b","lead_time":2}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"suggested_dispatch_qty":70`)

	rec = serve(router, jsonReq(`{"inventory_id":"a","promotion_id":"b"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"lead_time":2.5`)

	rec = serve(router, jsonReq(`{"inventory_id":"a","promotion_id":"b","lead_time":0}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(router, jsonReq(`{"inventory_id":"a"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fetcher.err = errors.New("drive down")
	rec = serve(router, jsonReq(`{"inventory_id":"a","promotion_id":"b"}`))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestClearCache(t *testing.T) {
	rec := serve(newTestRouter(t, nil), httptest.NewRequest(http.MethodDelete, "/api/v1/analysis/cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"removed":0}`, rec.Body.String())
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, all := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)
	assert.False(t, all)

	_, all = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, all)
}
