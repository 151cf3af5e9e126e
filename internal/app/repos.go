package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/weighting-backend/internal/data/repos"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

type Repos struct {
	WeightingPlan            repos.WeightingPlanRepo
	WeightingTarget          repos.WeightingTargetRepo
	ResponseWeightingContext repos.ResponseWeightingContextRepo
	ResponseWeight           repos.ResponseWeightRepo
	SavedReport              repos.SavedReportRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		WeightingPlan:            repos.NewWeightingPlanRepo(db, log),
		WeightingTarget:          repos.NewWeightingTargetRepo(db, log),
		ResponseWeightingContext: repos.NewResponseWeightingContextRepo(db, log),
		ResponseWeight:           repos.NewResponseWeightRepo(db, log),
		SavedReport:              repos.NewSavedReportRepo(db, log),
	}
}
