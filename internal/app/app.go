package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/weighting-backend/internal/data/db"
	"github.com/yungbote/weighting-backend/internal/observability"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

type App struct {
	Log        *logger.Logger
	DB         *gorm.DB
	Cfg        Config
	Metrics    *observability.Metrics
	Repos      Repos
	Aggregates Aggregates
	Services   Services

	closeDB      func() error
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode,
		logger.WithLevel(os.Getenv("LOG_LEVEL")),
		logger.WithRedaction(!strings.EqualFold(strings.TrimSpace(os.Getenv("LOG_REDACTION_ENABLED")), "false")),
	)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	theDB, closeDB, err := openDB(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}

	metrics := observability.Init(log)
	shutdown := observability.InitTracing(ctx, log, cfg.Tracing)

	reposet := wireRepos(theDB, log)
	aggs := wireAggregates(theDB, log, cfg, metrics, reposet)
	serviceset := wireServices(log, aggs)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Metrics:      metrics,
		Repos:        reposet,
		Aggregates:   aggs,
		Services:     serviceset,
		closeDB:      closeDB,
		otelShutdown: shutdown,
	}, nil
}

func openDB(log *logger.Logger, cfg Config) (*gorm.DB, func() error, error) {
	switch cfg.DBDriver {
	case DriverSQLite:
		svc, err := db.NewSQLiteService(log, cfg.SQLitePath, false)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite: %w", err)
		}
		return svc.DB(), svc.Close, nil
	default:
		pg, err := db.NewPostgresService(log, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres: %w", err)
		}
		closeFn := func() error {
			sqlDB, err := pg.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		}
		return pg.DB(), closeFn, nil
	}
}

// Migrate creates or updates the weighting tables and their indexes.
func (a *App) Migrate() error {
	if a == nil || a.DB == nil {
		return fmt.Errorf("app not initialized")
	}
	if err := db.AutoMigrateAll(a.DB); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// Start runs the background metrics server and pool collector.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.closeDB != nil {
		if err := a.closeDB(); err != nil && a.Log != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
