package repos

import (
	"github.com/yungbote/weighting-backend/internal/data/repos/reports"
	"github.com/yungbote/weighting-backend/internal/data/repos/weighting"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type WeightingPlanRepo = weighting.WeightingPlanRepo
type WeightingTargetRepo = weighting.WeightingTargetRepo
type ResponseWeightingContextRepo = weighting.ResponseWeightingContextRepo
type ResponseWeightRepo = weighting.ResponseWeightRepo

type SavedReportRepo = reports.SavedReportRepo

func NewWeightingPlanRepo(db *gorm.DB, baseLog *logger.Logger) WeightingPlanRepo {
	return weighting.NewWeightingPlanRepo(db, baseLog)
}

func NewWeightingTargetRepo(db *gorm.DB, baseLog *logger.Logger) WeightingTargetRepo {
	return weighting.NewWeightingTargetRepo(db, baseLog)
}

func NewResponseWeightingContextRepo(db *gorm.DB, baseLog *logger.Logger) ResponseWeightingContextRepo {
	return weighting.NewResponseWeightingContextRepo(db, baseLog)
}

func NewResponseWeightRepo(db *gorm.DB, baseLog *logger.Logger) ResponseWeightRepo {
	return weighting.NewResponseWeightRepo(db, baseLog)
}

func NewSavedReportRepo(db *gorm.DB, baseLog *logger.Logger) SavedReportRepo {
	return reports.NewSavedReportRepo(db, baseLog)
}
