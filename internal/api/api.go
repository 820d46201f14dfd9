// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/promo-dispatch/internal/api/handlers"
	"github.com/andresuchdata/promo-dispatch/internal/api/middleware"
	"github.com/andresuchdata/promo-dispatch/internal/service"
)

type Services struct {
	AnalysisService *service.AnalysisService
	// Fetcher is nil when Google Drive is not configured.
	Fetcher handlers.InputFetcher
}

type RouterOptions struct {
	AllowedOrigins []string
	MaxUploadMB    int
}

func NewRouter(services *Services, opts RouterOptions) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Report-Key", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(opts.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(opts.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	if services == nil || services.AnalysisService == nil {
		return router
	}

	h := handlers.NewAnalysisHandler(services.AnalysisService, services.Fetcher)
	router.GET("/health", h.Health)

	apiGroup := router.Group("/api/v1")
	analysisGroup := apiGroup.Group("/analysis")
	{
		analysisGroup.GET("/params", h.GetParams)

		uploads := analysisGroup.Group("", middleware.BodyLimit(opts.MaxUploadMB))
		uploads.POST("", h.Analyze)
		uploads.POST("/report", h.Report)
		uploads.POST("/sweep", h.Sweep)

		analysisGroup.POST("/drive", h.AnalyzeDrive)
		analysisGroup.DELETE("/cache", h.ClearCache)
	}
	apiGroup.GET("/reports", h.ListReports)

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
