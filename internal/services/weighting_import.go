package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	types "github.com/yungbote/weighting-backend/internal/domain"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
	"github.com/yungbote/weighting-backend/internal/domain/weighting"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

// DefaultRespondentWeight is stored for respondents imported without a weight.
var DefaultRespondentWeight = decimal.NewFromInt(1)

type RespondentWeight struct {
	RespondentID int
	// Weight is nil when the source row left the weight blank.
	Weight *decimal.Decimal
}

type WeightingImport struct {
	SubsetID string
	// Path selects the target to attach the weights to. Empty means the subset root.
	Path    []types.TargetInstance
	Weights []RespondentWeight
}

type WeightingImportResult struct {
	domainagg.ResponseWeightsResult
	TargetsAdded int
}

type WeightingImportService interface {
	Import(ctx context.Context, scope types.Scope, in WeightingImport) (WeightingImportResult, error)
}

type weightingImportService struct {
	log       *logger.Logger
	plans     domainagg.WeightingPlanAggregate
	responses domainagg.ResponseWeightingAggregate
}

func NewWeightingImportService(
	baseLog *logger.Logger,
	plans domainagg.WeightingPlanAggregate,
	responses domainagg.ResponseWeightingAggregate,
) WeightingImportService {
	return &weightingImportService{
		log:       baseLog.With("service", "WeightingImportService"),
		plans:     plans,
		responses: responses,
	}
}

func (s *weightingImportService) Import(ctx context.Context, scope types.Scope, in WeightingImport) (WeightingImportResult, error) {
	const op = "Weighting.Import"
	var out WeightingImportResult
	if s == nil || s.plans == nil || s.responses == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "weighting import service not configured", nil)
	}
	subsetID := strings.TrimSpace(in.SubsetID)
	if subsetID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing subset id", nil)
	}
	weights, err := normalizeWeights(in.Weights)
	if err != nil {
		return out, domainagg.Wrap(domainagg.CodeValidation, op, err)
	}

	if len(in.Path) == 0 {
		res, err := s.responses.CreateResponseWeightsForRoot(ctx, scope, subsetID, weights)
		if err != nil {
			return out, err
		}
		out.ResponseWeightsResult = res
		return out, nil
	}

	roots, err := s.rootPlans(ctx, scope, subsetID)
	if err != nil {
		return out, err
	}
	added, err := weighting.EnsurePathTargets(subsetID, roots, in.Path)
	if err != nil {
		return out, domainagg.NewError(domainagg.CodeNotFound, op, err.Error(), err)
	}
	if len(added) > 0 {
		if _, err := s.plans.UpdateWeightingPlanForSubset(ctx, scope, subsetID, roots); err != nil {
			return out, err
		}
		s.log.ForRun(ctx).Info("added weighting targets for import path",
			"product", scope.ProductShortCode,
			"sub_product", scope.SubProductID,
			"subset", subsetID,
			"targets_added", len(added),
		)
		if roots, err = s.rootPlans(ctx, scope, subsetID); err != nil {
			return out, err
		}
	}

	res, err := s.responses.CreateResponseWeights(ctx, scope, subsetID, roots, in.Path, weights)
	if err != nil {
		return out, err
	}
	out.ResponseWeightsResult = res
	out.TargetsAdded = len(added)
	return out, nil
}

func (s *weightingImportService) rootPlans(ctx context.Context, scope types.Scope, subsetID string) ([]*types.WeightingPlan, error) {
	plans, err := s.plans.GetWeightingPlansForSubset(ctx, scope, subsetID)
	if err != nil {
		return nil, err
	}
	roots := make([]*types.WeightingPlan, 0, len(plans))
	for _, p := range plans {
		if p.IsRoot() {
			roots = append(roots, p)
		}
	}
	return roots, nil
}

func normalizeWeights(in []RespondentWeight) ([]types.ResponseWeight, error) {
	out := make([]types.ResponseWeight, 0, len(in))
	seen := make(map[int]bool, len(in))
	for _, w := range in {
		if seen[w.RespondentID] {
			return nil, fmt.Errorf("respondent %d appears more than once", w.RespondentID)
		}
		seen[w.RespondentID] = true
		weight := DefaultRespondentWeight
		if w.Weight != nil {
			weight = *w.Weight
		}
		if weight.IsNegative() {
			return nil, fmt.Errorf("respondent %d has a negative weight", w.RespondentID)
		}
		out = append(out, types.ResponseWeight{RespondentID: w.RespondentID, Weight: weight})
	}
	return out, nil
}
