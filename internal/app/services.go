package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/weighting-backend/internal/data/aggregates"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
	"github.com/yungbote/weighting-backend/internal/observability"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
	"github.com/yungbote/weighting-backend/internal/services"
)

type Aggregates struct {
	WeightingPlan     domainagg.WeightingPlanAggregate
	ResponseWeighting domainagg.ResponseWeightingAggregate
}

type Services struct {
	WeightingImport services.WeightingImportService
	PlanDocument    services.PlanDocumentService
}

func wireAggregates(db *gorm.DB, log *logger.Logger, cfg Config, metrics *observability.Metrics, r Repos) Aggregates {
	log.Info("Wiring aggregates...")
	runner := aggregates.NewGormTxRunner(db,
		aggregates.WithRetries(cfg.WriteRetries),
		aggregates.WithRetryBackoff(cfg.WriteRetryBackoff),
	)
	base := aggregates.BaseDeps{
		DB:      db,
		Log:     log,
		Runner:  runner,
		Metrics: metrics,
	}
	return Aggregates{
		WeightingPlan: aggregates.NewWeightingPlanAggregate(aggregates.WeightingPlanAggregateDeps{
			Base:          base,
			Plans:         r.WeightingPlan,
			Targets:       r.WeightingTarget,
			Contexts:      r.ResponseWeightingContext,
			Weights:       r.ResponseWeight,
			Reports:       r.SavedReport,
			LoaderTimeout: cfg.LoaderQueryTimeout,
		}),
		ResponseWeighting: aggregates.NewResponseWeightingAggregate(aggregates.ResponseWeightingAggregateDeps{
			Base:      base,
			Plans:     r.WeightingPlan,
			Targets:   r.WeightingTarget,
			Contexts:  r.ResponseWeightingContext,
			Weights:   r.ResponseWeight,
			BatchSize: cfg.ResponseWeightBatchSize,
		}),
	}
}

func wireServices(log *logger.Logger, aggs Aggregates) Services {
	log.Info("Wiring services...")
	return Services{
		WeightingImport: services.NewWeightingImportService(log, aggs.WeightingPlan, aggs.ResponseWeighting),
		PlanDocument:    services.NewPlanDocumentService(log, aggs.WeightingPlan),
	}
}
