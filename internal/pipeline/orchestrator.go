package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
	"github.com/andresuchdata/promo-dispatch/pkg/logger"
)

// Orchestrator runs independent analysis scenarios, such as a lead-time sweep, in parallel.
type Orchestrator struct {
	runner Runner
	cfg    PipelineConfig
	log    zerolog.Logger
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(runner Runner, cfg PipelineConfig) *Orchestrator {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	return &Orchestrator{
		runner: runner,
		cfg:    cfg,
		log:    logger.Component("orchestrator"),
	}
}

// RunScenarios runs one analysis per params entry, each on its own copy of the
// inputs. Results come back in request order. A failed scenario is reported in
// its result; only cancellation fails the batch.
func (o *Orchestrator) RunScenarios(ctx context.Context, in dispatch.Inputs, params []dispatch.Params) ([]ScenarioResult, PipelineMetrics, error) {
	started := time.Now()
	results := make([]ScenarioResult, len(params))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.WorkerCount)

	for i, p := range params {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t0 := time.Now()
			res := o.runner.Run(gctx, in.Clone(), p)

			status := StatusCompleted
			if !res.OK() {
				status = StatusFailed
			}
			results[i] = ScenarioResult{Index: i, Status: status, Result: res, Duration: time.Since(t0)}

			o.log.Debug().
				Str("pipeline", o.cfg.Name).
				Int("scenario", i).
				Str("run_id", res.RunID).
				Float64("lead_time", res.Params.LeadTime).
				Str("status", string(status)).
				Msg("scenario finished")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, PipelineMetrics{}, fmt.Errorf("failed to run scenarios: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, PipelineMetrics{}, fmt.Errorf("failed to run scenarios: %w", err)
	}

	metrics := PipelineMetrics{Scenarios: len(results), Elapsed: time.Since(started)}
	for _, r := range results {
		if r.Status == StatusCompleted {
			metrics.Completed++
		} else {
			metrics.Failed++
		}
	}

	o.log.Info().
		Str("pipeline", o.cfg.Name).
		Int("scenarios", metrics.Scenarios).
		Int("failed", metrics.Failed).
		Dur("elapsed", metrics.Elapsed).
		Msg("scenario batch completed")
	return results, metrics, nil
}

// LeadTimeSweep builds one Params per lead time from..to inclusive, stepping by step.
func LeadTimeSweep(base dispatch.Params, from, to, step float64) ([]dispatch.Params, error) {
	if step <= 0 || math.IsNaN(step) {
		return nil, fmt.Errorf("sweep step must be positive, got %v", step)
	}
	if to < from {
		return nil, fmt.Errorf("sweep upper bound %v is below lower bound %v", to, from)
	}

	n := int(math.Floor((to-from)/step+1e-9)) + 1
	out := make([]dispatch.Params, 0, n)
	for i := 0; i < n; i++ {
		p := base
		p.RunID = ""
		// round to avoid 0.30000000000000004 style drift
		p.LeadTime = math.Round((from+float64(i)*step)*1e6) / 1e6
		out = append(out, p)
	}
	return out, nil
}
