package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/promo-dispatch/internal/domain"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
	"github.com/andresuchdata/promo-dispatch/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// InputFetcher downloads the two input workbooks from a remote source.
type InputFetcher interface {
	FetchInputs(ctx context.Context, inventoryID, promotionID string) (inventory, promotion []byte, err error)
}

type AnalysisHandler struct {
	service *service.AnalysisService
	fetcher InputFetcher
}

func NewAnalysisHandler(svc *service.AnalysisService, fetcher InputFetcher) *AnalysisHandler {
	return &AnalysisHandler{service: svc, fetcher: fetcher}
}

type analysisResponse struct {
	RunID       string                   `json:"run_id"`
	Params      dispatch.Params          `json:"params"`
	Message     string                   `json:"message"`
	Stats       dispatch.Stats           `json:"stats"`
	Records     []domain.MergedRecord    `json:"records"`
	Summary     []domain.SummaryRecord   `json:"summary"`
	Corrections []dispatch.Correction    `json:"corrections"`
	Missing     []dispatch.MissingFields `json:"missing_fields,omitempty"`
}

type scenarioResponse struct {
	LeadTime               float64                 `json:"lead_time"`
	Status                 pipeline.PipelineStatus `json:"status"`
	Message                string                  `json:"message"`
	TotalDemand            float64                 `json:"total_demand"`
	TotalSuggestedDispatch int64                   `json:"total_suggested_dispatch"`
	DispatchTypeCounts     map[string]int          `json:"dispatch_type_counts"`
}

type driveAnalysisRequest struct {
	InventoryID string   `json:"inventory_id" binding:"required"`
	PromotionID string   `json:"promotion_id" binding:"required"`
	LeadTime    *float64 `json:"lead_time"`
	SalesPolicy string   `json:"sales_policy"`
}

// Health reports liveness.
func (h *AnalysisHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetParams returns the accepted lead-time range.
func (h *AnalysisHandler) GetParams(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.LeadTimeParams())
}

// Analyze runs one analysis over the uploaded workbooks.
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	req, ok := h.readRequest(c)
	if !ok {
		return
	}

	res, err := h.service.Analyze(c.Request.Context(), req)
	if err != nil {
		c.JSON(requestErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(resultStatus(res), newAnalysisResponse(res))
}

// AnalyzeDrive runs one analysis over two workbooks stored in Google Drive.
func (h *AnalysisHandler) AnalyzeDrive(c *gin.Context) {
	if h.fetcher == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google drive is not configured"})
		return
	}

	var body driveAnalysisRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "inventory_id and promotion_id are required"})
		return
	}

	inv, promo, err := h.fetcher.FetchInputs(c.Request.Context(), body.InventoryID, body.PromotionID)
	if err != nil {
		log.Error().Err(err).Msg("drive fetch failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("failed to fetch workbooks: %v", err)})
		return
	}

	params := dispatch.Params{LeadTime: h.service.LeadTimeParams().Default, SalesPolicy: dispatch.SalesPolicy(body.SalesPolicy)}
	if body.LeadTime != nil {
		params.LeadTime = *body.LeadTime
	}
	res, err := h.service.Analyze(c.Request.Context(), service.AnalysisRequest{
		Inventory: inv,
		Promotion: promo,
		Params:    params,
	})
	if err != nil {
		c.JSON(requestErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(resultStatus(res), newAnalysisResponse(res))
}

// Report runs an analysis and returns the xlsx report as an attachment.
func (h *AnalysisHandler) Report(c *gin.Context) {
	req, ok := h.readRequest(c)
	if !ok {
		return
	}

	report, err := h.service.Report(c.Request.Context(), req)
	if err != nil {
		c.JSON(requestErrorStatus(err), gin.H{"error": err.Error()})
		return
	}
	if !report.Result.OK() {
		c.JSON(resultStatus(report.Result), newAnalysisResponse(report.Result))
		return
	}

	if report.ArchiveKey != "" {
		c.Header("X-Report-Key", report.ArchiveKey)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.FileName))
	c.Data(http.StatusOK, xlsxContentType, report.Content.Bytes())
}

// Sweep runs the uploaded workbooks at every lead time in the lead_times form field.
func (h *AnalysisHandler) Sweep(c *gin.Context) {
	req, ok := h.readRequest(c)
	if !ok {
		return
	}

	leadTimes, err := parseFloatList(c.PostForm("lead_times"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results, metrics, err := h.service.Sweep(c.Request.Context(), req, leadTimes)
	if err != nil {
		c.JSON(requestErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	scenarios := make([]scenarioResponse, 0, len(results))
	for _, r := range results {
		scenarios = append(scenarios, scenarioResponse{
			LeadTime:               r.Result.Params.LeadTime,
			Status:                 r.Status,
			Message:                r.Result.Message,
			TotalDemand:            r.Result.Stats.TotalDemand,
			TotalSuggestedDispatch: r.Result.Stats.TotalSuggestedDispatch,
			DispatchTypeCounts:     r.Result.Stats.DispatchTypeCounts,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"scenarios":  scenarios,
		"completed":  metrics.Completed,
		"failed":     metrics.Failed,
		"elapsed_ms": metrics.Elapsed.Milliseconds(),
	})
}

// ClearCache drops every cached analysis result.
func (h *AnalysisHandler) ClearCache(c *gin.Context) {
	n, err := h.service.ClearCache(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("cache clear failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

// ListReports returns the archived reports.
func (h *AnalysisHandler) ListReports(c *gin.Context) {
	reports, err := h.service.ListReports(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// readRequest reads the multipart upload. It writes the error response itself.
func (h *AnalysisHandler) readRequest(c *gin.Context) (service.AnalysisRequest, bool) {
	var req service.AnalysisRequest

	inv, err := readFormFile(c, "inventory")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}
	promo, err := readFormFile(c, "promotion")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}

	params, err := parseParams(c, h.service.LeadTimeParams().Default)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return req, false
	}

	req.Inventory = inv
	req.Promotion = promo
	req.Params = params
	return req, true
}

func readFormFile(c *gin.Context, field string) ([]byte, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("%s workbook is required", field)
	}
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s upload: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s upload: %w", field, err)
	}
	return data, nil
}

// parseParams reads the form fields. An absent lead_time takes defaultLeadTime.
func parseParams(c *gin.Context, defaultLeadTime float64) (dispatch.Params, error) {
	p := dispatch.Params{LeadTime: defaultLeadTime}

	if raw := strings.TrimSpace(c.PostForm("lead_time")); raw != "" {
		lt, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return p, fmt.Errorf("lead_time must be a number, got %q", raw)
		}
		p.LeadTime = lt
	}

	p.SalesPolicy = dispatch.SalesPolicy(strings.TrimSpace(c.PostForm("sales_policy")))

	if raw := strings.TrimSpace(c.PostForm("as_of")); raw != "" {
		asOf, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return p, fmt.Errorf("as_of must be a YYYY-MM-DD date, got %q", raw)
		}
		p.AsOf = asOf
	}
	return p, nil
}

func parseFloatList(raw string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, fmt.Errorf("lead_times must be comma separated numbers, got %q", part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("lead_times is required")
	}
	return out, nil
}

func newAnalysisResponse(res dispatch.Result) analysisResponse {
	resp := analysisResponse{
		RunID:       res.RunID,
		Params:      res.Params,
		Message:     res.Message,
		Stats:       res.Stats,
		Records:     res.Records,
		Summary:     res.Summary,
		Corrections: res.Corrections.Entries,
	}
	if resp.Corrections == nil {
		resp.Corrections = []dispatch.Correction{}
	}
	var schemaErr *dispatch.SchemaError
	if errors.As(res.Err, &schemaErr) {
		resp.Missing = schemaErr.Tables
	}
	return resp
}

func requestErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidLeadTime),
		errors.Is(err, service.ErrUnreadableWorkbook),
		errors.Is(err, dispatch.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

func resultStatus(res dispatch.Result) int {
	if res.OK() {
		return http.StatusOK
	}
	var schemaErr *dispatch.SchemaError
	switch {
	case errors.As(res.Err, &schemaErr), errors.Is(res.Err, dispatch.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	case errors.Is(res.Err, dispatch.ErrInvalidParams):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
