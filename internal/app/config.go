package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yungbote/bigocean-backend/internal/clients/redis"
	"github.com/yungbote/bigocean-backend/internal/costguard"
	"github.com/yungbote/bigocean-backend/internal/data/db"
	"github.com/yungbote/bigocean-backend/internal/locks"
	"github.com/yungbote/bigocean-backend/internal/observability"
	"github.com/yungbote/bigocean-backend/internal/orchestrator"
	"github.com/yungbote/bigocean-backend/internal/platform/openai"
	"github.com/yungbote/bigocean-backend/internal/services"
)

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string

	LogMode  string
	LogLevel string

	DB           db.Config
	Redis        redis.Config
	JWTSecretKey string

	Orchestrator orchestrator.Config
	Guard        costguard.Config
	Lock         locks.Config
	Assessment   services.AssessmentConfig
	OpenAI       openai.Config

	ArchetypeCacheSize int

	Otel           observability.OtelConfig
	MetricsEnabled bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT_SECONDS", 15)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("LOG_LEVEL", "")

	v.SetDefault("DB_DRIVER", db.DriverPostgres)
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("SQLITE_PATH", "bigocean.db")

	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("JWT_SECRET_KEY", "")

	v.SetDefault("DAILY_COST_LIMIT_USD", orchestrator.DefaultDailyCostLimitUSD)
	v.SetDefault("MESSAGE_COST_ESTIMATE_USD", orchestrator.DefaultMessageCostEstimateUSD)
	v.SetDefault("INPUT_COST_PER_MTOK_USD", 0.40)
	v.SetDefault("OUTPUT_COST_PER_MTOK_USD", 1.60)
	v.SetDefault("ASSESSMENTS_PER_DAY", costguard.DefaultAssessmentsPerDay)
	v.SetDefault("ANALYSIS_CADENCE", orchestrator.DefaultAnalysisCadence)
	v.SetDefault("ANALYSIS_WINDOW", orchestrator.DefaultAnalysisWindow)
	v.SetDefault("ANALYSIS_TIMEOUT_SECONDS", int(services.DefaultAnalysisTimeout/time.Second))
	v.SetDefault("MAX_MESSAGES", services.DefaultMaxMessages)
	v.SetDefault("SESSION_LOCK_TTL_SECONDS", int(locks.DefaultTTL/time.Second))
	v.SetDefault("COUNTER_TTL_HOURS", int(costguard.DefaultKeyTTL/time.Hour))
	v.SetDefault("ARCHETYPE_CACHE_SIZE", 128)

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "bigocean-api")
	v.SetDefault("OTEL_ENVIRONMENT", "")
	v.SetDefault("OTEL_SERVICE_VERSION", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_HEADERS", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_TRACES_SAMPLER_RATIO", 1.0)
	v.SetDefault("METRICS_ENABLED", true)
}

// LoadConfig reads an optional .env file and then the process environment.
func LoadConfig(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := Config{
		HTTPAddr:        v.GetString("HTTP_ADDR"),
		ShutdownTimeout: time.Duration(v.GetInt("SHUTDOWN_TIMEOUT_SECONDS")) * time.Second,
		AllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		LogMode:         v.GetString("LOG_MODE"),
		LogLevel:        v.GetString("LOG_LEVEL"),
		DB: db.Config{
			Driver:      v.GetString("DB_DRIVER"),
			PostgresDSN: v.GetString("POSTGRES_DSN"),
			SQLitePath:  v.GetString("SQLITE_PATH"),
		},
		Redis: redis.Config{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWTSecretKey: v.GetString("JWT_SECRET_KEY"),
		Orchestrator: orchestrator.Config{
			MessageCostEstimateUSD: v.GetFloat64("MESSAGE_COST_ESTIMATE_USD"),
			DailyCostLimitUSD:      v.GetFloat64("DAILY_COST_LIMIT_USD"),
			InputCostPerMTokUSD:    v.GetFloat64("INPUT_COST_PER_MTOK_USD"),
			OutputCostPerMTokUSD:   v.GetFloat64("OUTPUT_COST_PER_MTOK_USD"),
			AnalysisCadence:        v.GetInt("ANALYSIS_CADENCE"),
			AnalysisWindow:         v.GetInt("ANALYSIS_WINDOW"),
		},
		Guard: costguard.Config{
			KeyTTL:            time.Duration(v.GetInt("COUNTER_TTL_HOURS")) * time.Hour,
			AssessmentsPerDay: v.GetInt64("ASSESSMENTS_PER_DAY"),
		},
		Lock: locks.Config{
			TTL: time.Duration(v.GetInt("SESSION_LOCK_TTL_SECONDS")) * time.Second,
		},
		Assessment: services.AssessmentConfig{
			MaxMessages:     v.GetInt("MAX_MESSAGES"),
			AnalysisTimeout: time.Duration(v.GetInt("ANALYSIS_TIMEOUT_SECONDS")) * time.Second,
		},
		OpenAI:             openai.ConfigFromEnv(),
		ArchetypeCacheSize: v.GetInt("ARCHETYPE_CACHE_SIZE"),
		Otel: observability.OtelConfig{
			Enabled:     v.GetBool("OTEL_ENABLED"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
			Environment: v.GetString("OTEL_ENVIRONMENT"),
			Version:     v.GetString("OTEL_SERVICE_VERSION"),
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Headers:     v.GetString("OTEL_EXPORTER_OTLP_HEADERS"),
			Insecure:    v.GetBool("OTEL_EXPORTER_OTLP_INSECURE"),
			SampleRatio: v.GetFloat64("OTEL_TRACES_SAMPLER_RATIO"),
		},
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings that would make the guard or orchestrator misbehave.
func (c Config) Validate() error {
	var problems []string
	if c.Orchestrator.DailyCostLimitUSD <= 0 {
		problems = append(problems, "DAILY_COST_LIMIT_USD must be > 0")
	}
	if c.Orchestrator.MessageCostEstimateUSD <= 0 {
		problems = append(problems, "MESSAGE_COST_ESTIMATE_USD must be > 0")
	}
	if c.Orchestrator.AnalysisCadence <= 0 {
		problems = append(problems, "ANALYSIS_CADENCE must be > 0")
	}
	if c.Orchestrator.AnalysisWindow <= 0 {
		problems = append(problems, "ANALYSIS_WINDOW must be > 0")
	}
	if c.Guard.AssessmentsPerDay <= 0 {
		problems = append(problems, "ASSESSMENTS_PER_DAY must be > 0")
	}
	if c.Assessment.MaxMessages <= 0 {
		problems = append(problems, "MAX_MESSAGES must be > 0")
	}
	switch strings.ToLower(strings.TrimSpace(c.DB.Driver)) {
	case db.DriverPostgres, db.DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", c.DB.Driver))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
