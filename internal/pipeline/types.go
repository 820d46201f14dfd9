package pipeline

import (
	"context"
	"time"

	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
)

// Runner executes one analysis run. *dispatch.Engine implements it.
type Runner interface {
	Run(ctx context.Context, in dispatch.Inputs, p dispatch.Params) dispatch.Result
}

// PipelineConfig holds configuration for an orchestrator instance
type PipelineConfig struct {
	Name        string
	WorkerCount int // Number of scenarios run concurrently
}

// DefaultPipelineConfig returns sensible defaults
func DefaultPipelineConfig(name string) PipelineConfig {
	return PipelineConfig{
		Name:        name,
		WorkerCount: 4,
	}
}

// PipelineStatus represents the outcome of a single scenario run
type PipelineStatus string

const (
	StatusCompleted PipelineStatus = "completed"
	StatusFailed    PipelineStatus = "failed"
)

// ScenarioResult pairs a run's result with its position in the request.
type ScenarioResult struct {
	Index    int
	Status   PipelineStatus
	Result   dispatch.Result
	Duration time.Duration
}

// PipelineMetrics summarises a batch of scenarios
type PipelineMetrics struct {
	Scenarios int
	Completed int
	Failed    int
	Elapsed   time.Duration
}
