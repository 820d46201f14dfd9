package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andresuchdata/promo-dispatch/internal/cache"
	"github.com/andresuchdata/promo-dispatch/internal/config"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
	"github.com/andresuchdata/promo-dispatch/internal/sheet"
	"github.com/andresuchdata/promo-dispatch/internal/storage"
	"github.com/andresuchdata/promo-dispatch/pkg/logger"
)

var (
	// ErrInvalidLeadTime marks a lead time outside the configured range.
	ErrInvalidLeadTime = errors.New("invalid lead time")
	// ErrUnreadableWorkbook marks an upload that is not a usable xlsx workbook.
	ErrUnreadableWorkbook = errors.New("unreadable workbook")
)

// AnalysisRequest carries the raw workbooks and run parameters.
type AnalysisRequest struct {
	Inventory []byte
	Promotion []byte
	Params    dispatch.Params
}

// Report is a rendered xlsx report of a completed analysis.
type Report struct {
	FileName   string
	Content    *bytes.Buffer
	Result     dispatch.Result
	ArchiveKey string
}

// LeadTimeParams describes the accepted lead-time range.
type LeadTimeParams struct {
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Step    float64 `json:"step"`
}

type AnalysisService struct {
	engine   *dispatch.Engine
	cache    cache.AnalysisCache
	archiver *storage.ReportArchiver
	limits   config.DispatchConfig
	upload   bool
	log      zerolog.Logger
	now      func() time.Time
}

// Option customises an AnalysisService.
type Option func(*AnalysisService)

// WithCache stores completed results in c.
func WithCache(c cache.AnalysisCache) Option {
	return func(s *AnalysisService) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithArchiver uploads reports through a; autoUpload archives every report rendered.
func WithArchiver(a *storage.ReportArchiver, autoUpload bool) Option {
	return func(s *AnalysisService) {
		s.archiver = a
		s.upload = autoUpload && a != nil
	}
}

// WithClock overrides the clock used for report file names.
func WithClock(now func() time.Time) Option {
	return func(s *AnalysisService) { s.now = now }
}

func NewAnalysisService(engine *dispatch.Engine, limits config.DispatchConfig, opts ...Option) *AnalysisService {
	s := &AnalysisService{
		engine: engine,
		cache:  cache.NewNoopAnalysisCache(),
		limits: limits,
		log:    logger.Component("analysis"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LeadTimeParams returns the lead-time range clients may choose from.
func (s *AnalysisService) LeadTimeParams() LeadTimeParams {
	return LeadTimeParams{
		Default: s.limits.LeadTimeDefault,
		Min:     s.limits.LeadTimeMin,
		Max:     s.limits.LeadTimeMax,
		Step:    s.limits.LeadTimeStep,
	}
}

// Analyze runs one analysis. The returned error covers request problems only;
// engine failures come back in Result.Err with Result.Message set.
func (s *AnalysisService) Analyze(ctx context.Context, req AnalysisRequest) (dispatch.Result, error) {
	params, err := s.resolve(req.Params)
	if err != nil {
		return dispatch.Result{}, err
	}

	key := cache.AnalysisKey(req.Inventory, req.Promotion, params)
	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		s.log.Debug().Str("run_id", params.RunID).Str("cached_run_id", cached.RunID).Msg("analysis served from cache")
		return cached.Restamp(params), nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("analysis: cache get failed")
	}

	in, err := sheet.LoadInputs(ctx, bytes.NewReader(req.Inventory), bytes.NewReader(req.Promotion))
	if err != nil {
		return dispatch.Result{}, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}

	res := s.engine.Run(ctx, in, params)
	if res.OK() {
		if err := s.cache.Set(ctx, key, res); err != nil {
			s.log.Warn().Err(err).Msg("analysis: cache set failed")
		}
	}

	s.log.Info().
		Str("run_id", res.RunID).
		Float64("lead_time", res.Params.LeadTime).
		Bool("ok", res.OK()).
		Int("records", len(res.Records)).
		Msg(res.Message)
	return res, nil
}

// Report analyzes and renders the xlsx report. A failed analysis yields a
// Report with no content.
func (s *AnalysisService) Report(ctx context.Context, req AnalysisRequest) (*Report, error) {
	res, err := s.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	report := &Report{Result: res}
	if !res.OK() {
		return report, nil
	}

	var buf bytes.Buffer
	if err := sheet.WriteReport(&buf, res); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	report.FileName = sheet.ReportFileName(s.now())
	report.Content = &buf

	if s.upload {
		key, err := s.archiver.Archive(ctx, report.FileName, &buf)
		if err != nil {
			// the caller still gets the report
			s.log.Warn().Err(err).Str("file", report.FileName).Msg("report archiving failed")
		} else {
			report.ArchiveKey = key
		}
	}
	return report, nil
}

// Archive uploads an already rendered report.
func (s *AnalysisService) Archive(ctx context.Context, report *Report) (string, error) {
	if s.archiver == nil {
		return "", fmt.Errorf("report storage is not configured")
	}
	if report == nil || report.Content == nil {
		return "", fmt.Errorf("no report to archive")
	}
	key, err := s.archiver.Archive(ctx, report.FileName, report.Content)
	if err != nil {
		return "", err
	}
	report.ArchiveKey = key
	return key, nil
}

// ClearCache drops every cached analysis result.
func (s *AnalysisService) ClearCache(ctx context.Context) (int, error) {
	n, err := s.cache.Purge(ctx)
	if err != nil {
		return n, fmt.Errorf("failed to clear result cache: %w", err)
	}
	s.log.Info().Int("removed", n).Msg("result cache cleared")
	return n, nil
}

// ListReports returns the archived reports.
func (s *AnalysisService) ListReports(ctx context.Context) ([]storage.ObjectInfo, error) {
	if s.archiver == nil {
		return nil, fmt.Errorf("report storage is not configured")
	}
	return s.archiver.List(ctx)
}

// Sweep runs the same inputs at several lead times concurrently.
func (s *AnalysisService) Sweep(ctx context.Context, req AnalysisRequest, leadTimes []float64) ([]pipeline.ScenarioResult, pipeline.PipelineMetrics, error) {
	if len(leadTimes) == 0 {
		return nil, pipeline.PipelineMetrics{}, fmt.Errorf("%w: no lead times given", ErrInvalidLeadTime)
	}

	scenarios := make([]dispatch.Params, 0, len(leadTimes))
	for _, lt := range leadTimes {
		p := req.Params
		p.RunID = ""
		p.LeadTime = lt
		resolved, err := s.resolve(p)
		if err != nil {
			return nil, pipeline.PipelineMetrics{}, err
		}
		scenarios = append(scenarios, resolved)
	}

	in, err := sheet.LoadInputs(ctx, bytes.NewReader(req.Inventory), bytes.NewReader(req.Promotion))
	if err != nil {
		return nil, pipeline.PipelineMetrics{}, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}

	cfg := pipeline.DefaultPipelineConfig("lead-time-sweep")
	if s.limits.ScenarioWorkers > 0 {
		cfg.WorkerCount = s.limits.ScenarioWorkers
	}
	return pipeline.NewOrchestrator(s.engine, cfg).RunScenarios(ctx, in, scenarios)
}

// resolve fills run defaults and enforces the configured lead-time range.
func (s *AnalysisService) resolve(p dispatch.Params) (dispatch.Params, error) {
	params, err := s.engine.ResolveParams(p)
	if err != nil {
		return params, err
	}
	if err := s.limits.CheckLeadTime(params.LeadTime); err != nil {
		return params, fmt.Errorf("%w: %v", ErrInvalidLeadTime, err)
	}
	return params, nil
}
