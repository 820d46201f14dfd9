package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/promo-dispatch/internal/domain"
	"github.com/andresuchdata/promo-dispatch/pkg/logger"
)

const successMessage = "Calculation completed successfully"

// Engine runs validate, clean, merge, calculate and summarize as one pass.
// It holds no per-run state and is safe for concurrent use.
type Engine struct {
	settings Settings
	log      zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger replaces the engine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock replaces the clock used when Params.AsOf is zero.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the run ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// NewEngine creates an engine. Zero-valued settings fall back to DefaultSettings.
func NewEngine(s Settings, opts ...Option) *Engine {
	def := DefaultSettings()
	if s.DepotSite == "" {
		s.DepotSite = def.DepotSite
	}
	if s.SalesPolicy == "" {
		s.SalesPolicy = def.SalesPolicy
	}
	if s.ValidSupplySources == nil {
		s.ValidSupplySources = def.ValidSupplySources
	}
	if s.BuyerSupplySources == nil {
		s.BuyerSupplySources = def.BuyerSupplySources
	}
	if s.RPTeamSupplySources == nil {
		s.RPTeamSupplySources = def.RPTeamSupplySources
	}

	e := &Engine{
		settings: s,
		log:      logger.Component("dispatch"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the effective engine settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// ResolveParams fills defaults into p and rejects values the calculation cannot use.
// The lead time is taken as given; zero is a valid lead time here.
func (e *Engine) ResolveParams(p Params) (Params, error) {
	if p.RunID == "" {
		p.RunID = e.newID()
	}
	if math.IsNaN(p.LeadTime) || math.IsInf(p.LeadTime, 0) || p.LeadTime < 0 {
		return p, fmt.Errorf("%w: lead time must be a non-negative number, got %v", ErrInvalidParams, p.LeadTime)
	}
	policy := p.SalesPolicy
	if policy == "" {
		policy = e.settings.SalesPolicy
	}
	parsed, err := ParseSalesPolicy(string(policy))
	if err != nil {
		return p, err
	}
	p.SalesPolicy = parsed
	if p.AsOf.IsZero() {
		p.AsOf = e.now()
	}
	return p, nil
}

// Run executes one analysis. Failures come back inside the Result, never as a panic.
func (e *Engine) Run(ctx context.Context, in Inputs, p Params) (res Result) {
	params, err := e.ResolveParams(p)
	res = Result{RunID: params.RunID, Params: params}
	log := e.log.With().Str("run_id", params.RunID).Logger()

	if err != nil {
		return e.fail(res, log, err)
	}
	if err := ctx.Err(); err != nil {
		return e.fail(res, log, fmt.Errorf("analysis cancelled: %w", err))
	}

	if in.Inventory.Len() == 0 || in.SkuTargets.Len() == 0 || in.ShopTargets.Len() == 0 {
		return e.fail(res, log, ErrEmptyInput)
	}
	if err := ValidateInputs(in); err != nil {
		return e.fail(res, log, err)
	}
	log.Debug().
		Int("inventory_rows", in.Inventory.Len()).
		Int("sku_target_rows", in.SkuTargets.Len()).
		Int("shop_target_rows", in.ShopTargets.Len()).
		Msg("schema validated")

	stage := "cleaner"
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("stage", stage).Bytes("stack", debug.Stack()).Msg("calculation panicked")
			res = e.fail(Result{RunID: params.RunID, Params: params}, log,
				&ComputationError{Stage: stage, Cause: fmt.Errorf("%v", rec)})
		}
	}()

	cleaner := NewCleaner(e.settings)
	inventory, corrections := cleaner.CleanInventory(in.Inventory)
	skuTargets, skuLog := cleaner.CleanSkuTargets(in.SkuTargets)
	shopTargets, shopLog := cleaner.CleanShopTargets(in.ShopTargets)
	corrections.Merge(skuLog)
	corrections.Merge(shopLog)
	log.Debug().Int("corrections", corrections.Total()).Msg("inputs cleaned")

	stage = "merger"
	merged := Merge(inventory, skuTargets, shopTargets)

	stage = "demand calculator"
	calc := NewDemandCalculator(e.settings, params.LeadTime, params.SalesPolicy, params.AsOf)
	records, err := calc.Calculate(merged)
	if err != nil {
		return e.fail(res, log, err)
	}

	stage = "summary aggregator"
	summary := Summarize(records, e.settings.DepotSite)

	res.Records = records
	res.Summary = summary
	res.Stats = ComputeStats(records)
	res.Corrections = corrections
	res.Message = successMessage

	log.Debug().
		Int("records", len(records)).
		Int("summary_rows", len(summary)).
		Int64("suggested_dispatch", res.Stats.TotalSuggestedDispatch).
		Msg("analysis completed")
	return res
}

// fail turns err into an empty result carrying a message.
func (e *Engine) fail(res Result, log zerolog.Logger, err error) Result {
	res.Records = []domain.MergedRecord{}
	res.Summary = []domain.SummaryRecord{}
	res.Stats = Stats{DispatchTypeCounts: map[string]int{}}
	res.Corrections = CorrectionLog{}
	res.Err = err
	res.Message = failureMessage(err)

	log.Warn().Err(err).Msg("analysis aborted")
	return res
}

func failureMessage(err error) string {
	var schemaErr *SchemaError
	var compErr *ComputationError
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "No valid data to calculate: every input table needs at least one data row"
	case errors.As(err, &schemaErr):
		return schemaErr.Error()
	case errors.As(err, &compErr):
		return "Calculation error: " + compErr.Cause.Error()
	}
	return err.Error()
}
