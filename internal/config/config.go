// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/promo-dispatch/internal/pipeline/dispatch"
)

type Config struct {
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
	Dispatch DispatchConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type LogConfig struct {
	Level string
}

type AppConfig struct {
	OutputDir string
}

// DispatchConfig holds the tunables of the demand and dispatch engine.
type DispatchConfig struct {
	LeadTimeDefault     float64
	LeadTimeMin         float64
	LeadTimeMax         float64
	LeadTimeStep        float64
	OutlierThreshold    int64
	DepotSite           string
	SalesPolicy         string
	ValidSupplySources  []string
	BuyerSupplySources  []string
	RPTeamSupplySources []string
	ScenarioWorkers     int
	MaxUploadMB         int
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ResultTTLSeconds int
}

// StorageConfig describes the S3-compatible bucket used to archive reports.
type StorageConfig struct {
	Enabled   bool
	Driver    string
	LocalDir  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string

	// UploadReports archives every generated report when the API serves one.
	UploadReports bool
}

type DriveConfig struct {
	CredentialsJSON string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		SetDefaults(viper.GetViper())

		// Read from environment variables
		viper.AutomaticEnv()

		instance = FromViper(viper.GetViper())
		ensureDir(instance.App.OutputDir)
	})

	return instance
}

// SetDefaults registers every default value on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("APP_OUTPUT_DIR", "./data/reports")

	v.SetDefault("DISPATCH_LEAD_TIME_DEFAULT", 2.5)
	v.SetDefault("DISPATCH_LEAD_TIME_MIN", 0.1)
	v.SetDefault("DISPATCH_LEAD_TIME_MAX", 3.0)
	v.SetDefault("DISPATCH_LEAD_TIME_STEP", 0.1)
	v.SetDefault("DISPATCH_OUTLIER_THRESHOLD", 100000)
	v.SetDefault("DISPATCH_DEPOT_SITE", "D001")
	v.SetDefault("DISPATCH_SALES_POLICY", "last_month")
	v.SetDefault("DISPATCH_VALID_SUPPLY_SOURCES", "1,2,4")
	v.SetDefault("DISPATCH_BUYER_SUPPLY_SOURCES", "1,4")
	v.SetDefault("DISPATCH_RP_TEAM_SUPPLY_SOURCES", "2")
	v.SetDefault("DISPATCH_SCENARIO_WORKERS", 4)
	v.SetDefault("DISPATCH_MAX_UPLOAD_MB", 50)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_RESULT_TTL_SECONDS", 3600)

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_DRIVER", "minio")
	v.SetDefault("STORAGE_LOCAL_DIR", "./data/archive")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PREFIX", "reports")
	v.SetDefault("REPORT_UPLOAD_ENABLED", false)

	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		App: AppConfig{
			OutputDir: v.GetString("APP_OUTPUT_DIR"),
		},
		Dispatch: DispatchConfig{
			LeadTimeDefault:     v.GetFloat64("DISPATCH_LEAD_TIME_DEFAULT"),
			LeadTimeMin:         v.GetFloat64("DISPATCH_LEAD_TIME_MIN"),
			LeadTimeMax:         v.GetFloat64("DISPATCH_LEAD_TIME_MAX"),
			LeadTimeStep:        v.GetFloat64("DISPATCH_LEAD_TIME_STEP"),
			OutlierThreshold:    v.GetInt64("DISPATCH_OUTLIER_THRESHOLD"),
			DepotSite:           strings.TrimSpace(v.GetString("DISPATCH_DEPOT_SITE")),
			SalesPolicy:         strings.ToLower(strings.TrimSpace(v.GetString("DISPATCH_SALES_POLICY"))),
			ValidSupplySources:  splitList(v.GetString("DISPATCH_VALID_SUPPLY_SOURCES")),
			BuyerSupplySources:  splitList(v.GetString("DISPATCH_BUYER_SUPPLY_SOURCES")),
			RPTeamSupplySources: splitList(v.GetString("DISPATCH_RP_TEAM_SUPPLY_SOURCES")),
			ScenarioWorkers:     v.GetInt("DISPATCH_SCENARIO_WORKERS"),
			MaxUploadMB:         v.GetInt("DISPATCH_MAX_UPLOAD_MB"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ResultTTLSeconds: v.GetInt("CACHE_RESULT_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Driver:    strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_DRIVER"))),
			LocalDir:  v.GetString("STORAGE_LOCAL_DIR"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),

			UploadReports: v.GetBool("REPORT_UPLOAD_ENABLED"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
		},
	}
}

// Engine maps the dispatch section onto engine settings.
func (c *Config) Engine() dispatch.Settings {
	d := c.Dispatch
	return dispatch.Settings{
		DepotSite:           d.DepotSite,
		OutlierThreshold:    d.OutlierThreshold,
		SalesPolicy:         dispatch.SalesPolicy(d.SalesPolicy),
		ValidSupplySources:  d.ValidSupplySources,
		BuyerSupplySources:  d.BuyerSupplySources,
		RPTeamSupplySources: d.RPTeamSupplySources,
	}
}

// CheckLeadTime reports whether lt lies inside the configured lead-time range.
func (d DispatchConfig) CheckLeadTime(lt float64) error {
	if math.IsNaN(lt) || math.IsInf(lt, 0) {
		return fmt.Errorf("lead time must be a finite number")
	}
	if lt < d.LeadTimeMin || lt > d.LeadTimeMax {
		return fmt.Errorf("lead time %.2f outside allowed range [%.2f, %.2f]", lt, d.LeadTimeMin, d.LeadTimeMax)
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
