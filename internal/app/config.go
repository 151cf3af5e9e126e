package app

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/weighting-backend/internal/data/db"
	types "github.com/yungbote/weighting-backend/internal/domain"
	"github.com/yungbote/weighting-backend/internal/domain/weighting"
	"github.com/yungbote/weighting-backend/internal/observability"
	"github.com/yungbote/weighting-backend/internal/platform/envutil"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	DBDriver   string `validate:"oneof=postgres sqlite"`
	Postgres   db.PostgresConfig
	SQLitePath string `validate:"required_if=DBDriver sqlite"`

	Environment string
	Version     string

	LoaderQueryTimeout      time.Duration `validate:"gt=0"`
	ResponseWeightBatchSize int           `validate:"gt=0,lte=10000"`
	WriteRetries            int           `validate:"gte=0,lte=10"`
	WriteRetryBackoff       time.Duration `validate:"gte=0,lte=5s"`

	MetricsAddr string
	Tracing     observability.TracingConfig

	// DefaultScope is used by commands that are not given an explicit product.
	DefaultScope types.Scope `validate:"-"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		DBDriver: envutil.String("DB_DRIVER", DriverPostgres, log),
		Postgres: db.PostgresConfig{
			Host:     envutil.String("POSTGRES_HOST", "localhost", log),
			Port:     envutil.String("POSTGRES_PORT", "5432", log),
			User:     envutil.String("POSTGRES_USER", "postgres", log),
			Password: envutil.String("POSTGRES_PASSWORD", "", log),
			Name:     envutil.String("POSTGRES_NAME", "weighting", log),
			SSLMode:  envutil.String("POSTGRES_SSLMODE", "disable", log),
		},
		SQLitePath:              envutil.String("SQLITE_PATH", "weighting.db", log),
		Environment:             envutil.String("APP_ENV", "development", log),
		Version:                 envutil.String("APP_VERSION", "dev", log),
		LoaderQueryTimeout:      envutil.Seconds("LOADER_QUERY_TIMEOUT_SECONDS", 180*time.Second, log),
		ResponseWeightBatchSize: envutil.Int("RESPONSE_WEIGHT_BATCH_SIZE", 1000, log),
		WriteRetries:            envutil.Int("WRITE_RETRIES", 2, log),
		WriteRetryBackoff:       time.Duration(envutil.Int("WRITE_RETRY_BACKOFF_MS", 50, log)) * time.Millisecond,
		MetricsAddr:             envutil.String("METRICS_ADDR", ":9090", log),
		DefaultScope: weighting.NewScope(
			envutil.String("PRODUCT_SHORT_CODE", "", log),
			envutil.String("SUB_PRODUCT_ID", "", log),
		),
	}
	cfg.Tracing = observability.TracingConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", "weighting-backend", log),
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
		Headers:     observability.ParseHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log)),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
		SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1, log),
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
