package app

import (
	"testing"
	"time"

	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"DB_DRIVER", "SQLITE_PATH", "LOADER_QUERY_TIMEOUT_SECONDS", "RESPONSE_WEIGHT_BATCH_SIZE", "WRITE_RETRIES", "WRITE_RETRY_BACKOFF_MS", "OTEL_ENABLED", "OTEL_SAMPLER_RATIO", "PRODUCT_SHORT_CODE", "SUB_PRODUCT_ID"} {
		t.Setenv(key, "")
	}
	cfg, err := LoadConfig(logger.NewNop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBDriver != DriverPostgres {
		t.Fatalf("driver: want=%s got=%s", DriverPostgres, cfg.DBDriver)
	}
	if cfg.LoaderQueryTimeout != 180*time.Second {
		t.Fatalf("loader timeout: got=%s", cfg.LoaderQueryTimeout)
	}
	if cfg.ResponseWeightBatchSize != 1000 {
		t.Fatalf("batch size: got=%d", cfg.ResponseWeightBatchSize)
	}
	if cfg.WriteRetries != 2 || cfg.WriteRetryBackoff != 50*time.Millisecond {
		t.Fatalf("write retries: got=%d backoff=%s", cfg.WriteRetries, cfg.WriteRetryBackoff)
	}
	if cfg.Tracing.Enabled || cfg.Tracing.SampleRatio != 1 {
		t.Fatalf("tracing: %+v", cfg.Tracing)
	}
	if cfg.DefaultScope.ProductShortCode != "" {
		t.Fatalf("default scope should be empty: %+v", cfg.DefaultScope)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/w.db")
	t.Setenv("LOADER_QUERY_TIMEOUT_SECONDS", "30")
	t.Setenv("RESPONSE_WEIGHT_BATCH_SIZE", "250")
	t.Setenv("WRITE_RETRY_BACKOFF_MS", "10")
	t.Setenv("PRODUCT_SHORT_CODE", " eatingout ")
	t.Setenv("SUB_PRODUCT_ID", "uk")

	cfg, err := LoadConfig(logger.NewNop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DBDriver != DriverSQLite || cfg.SQLitePath != "/tmp/w.db" {
		t.Fatalf("db: %+v", cfg)
	}
	if cfg.LoaderQueryTimeout != 30*time.Second || cfg.ResponseWeightBatchSize != 250 || cfg.WriteRetryBackoff != 10*time.Millisecond {
		t.Fatalf("tuning: %+v", cfg)
	}
	if cfg.DefaultScope.ProductShortCode != "eatingout" || cfg.DefaultScope.SubProductID != "uk" {
		t.Fatalf("scope: %+v", cfg.DefaultScope)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown driver": {"DB_DRIVER": "mysql"},
		"batch too big":  {"RESPONSE_WEIGHT_BATCH_SIZE": "20000"},
		"zero batch":     {"RESPONSE_WEIGHT_BATCH_SIZE": "0"},
		"zero timeout":   {"LOADER_QUERY_TIMEOUT_SECONDS": "0"},
		"retry storm":    {"WRITE_RETRIES": "50"},
		"slow backoff":   {"WRITE_RETRY_BACKOFF_MS": "60000"},
		"sample ratio":   {"OTEL_SAMPLER_RATIO": "1.5"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := LoadConfig(logger.NewNop()); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
