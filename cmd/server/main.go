package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/promo-dispatch/internal/api"
	"github.com/andresuchdata/promo-dispatch/internal/config"
	"github.com/andresuchdata/promo-dispatch/internal/drive"
	"github.com/andresuchdata/promo-dispatch/internal/service"
	"github.com/andresuchdata/promo-dispatch/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Log.Level)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	analysisService, err := service.FromConfig(cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialise analysis service")
	}

	services := &api.Services{AnalysisService: analysisService}
	if cfg.Drive.CredentialsJSON != "" {
		driveService, err := drive.NewService(context.Background(), cfg.Drive.CredentialsJSON)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Google Drive disabled")
		} else {
			services.Fetcher = drive.NewFetcher(driveService)
		}
	}

	router := api.NewRouter(services, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadMB:    cfg.Dispatch.MaxUploadMB,
	})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
