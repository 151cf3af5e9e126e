package domain

import (
	"github.com/yungbote/weighting-backend/internal/domain/reports"
	"github.com/yungbote/weighting-backend/internal/domain/weighting"
)

type Scope = weighting.Scope
type TargetInstance = weighting.TargetInstance

type WeightingPlan = weighting.WeightingPlan
type WeightingTarget = weighting.WeightingTarget
type ResponseWeightingContext = weighting.ResponseWeightingContext
type ResponseWeight = weighting.ResponseWeight

type SavedReport = reports.SavedReport
