package service

import (
	"fmt"

	"github.com/andresuchdata/promo-dispatch/internal/cache"
	"github.com/andresuchdata/promo-dispatch/internal/config"
	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
	"github.com/andresuchdata/promo-dispatch/internal/storage"
	"github.com/andresuchdata/promo-dispatch/pkg/logger"
)

// FromConfig wires the engine, result cache and report storage described by cfg.
func FromConfig(cfg *config.Config) (*AnalysisService, error) {
	engine := dispatch.NewEngine(cfg.Engine())

	// an unreachable redis degrades to no caching
	resultCache, err := cache.NewAnalysisCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("result cache unavailable, continuing without cache")
		resultCache = cache.NewNoopAnalysisCache()
	}

	opts := []Option{WithCache(resultCache)}
	if cfg.Storage.Enabled {
		store, err := storage.New(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise report storage: %w", err)
		}
		opts = append(opts, WithArchiver(storage.NewReportArchiver(store, cfg.Storage.Prefix), cfg.Storage.UploadReports))
	}

	logger.Log.Info().
		Bool("cache", cfg.Cache.Enabled).
		Bool("storage", cfg.Storage.Enabled).
		Str("storage_driver", cfg.Storage.Driver).
		Str("depot", cfg.Dispatch.DepotSite).
		Float64("default_lead_time", cfg.Dispatch.LeadTimeDefault).
		Msg("analysis service configured")

	return NewAnalysisService(engine, cfg.Dispatch, opts...), nil
}
