package aggregates

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/weighting-backend/internal/data/repos"
	types "github.com/yungbote/weighting-backend/internal/domain"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
	"github.com/yungbote/weighting-backend/internal/domain/weighting"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

type ResponseWeightingAggregateDeps struct {
	Base BaseDeps

	Plans    repos.WeightingPlanRepo
	Targets  repos.WeightingTargetRepo
	Contexts repos.ResponseWeightingContextRepo
	Weights  repos.ResponseWeightRepo

	// BatchSize is the number of weight rows per insert statement.
	BatchSize int
}

type responseWeightingAggregate struct {
	deps  ResponseWeightingAggregateDeps
	store treeStore
	log   *logger.Logger
}

func NewResponseWeightingAggregate(deps ResponseWeightingAggregateDeps) domainagg.ResponseWeightingAggregate {
	deps.Base = deps.Base.withDefaults()
	return &responseWeightingAggregate{
		deps: deps,
		store: treeStore{
			plans:    deps.Plans,
			targets:  deps.Targets,
			contexts: deps.Contexts,
			weights:  deps.Weights,
		},
		log: deps.Base.Log.With("aggregate", "ResponseWeightingAggregate"),
	}
}

func (a *responseWeightingAggregate) Contract() domainagg.Contract {
	return domainagg.ResponseWeightingAggregateContract
}

func (a *responseWeightingAggregate) precheck(op string, scope types.Scope, subsetID string) error {
	if err := scope.Validate(); err != nil {
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	if strings.TrimSpace(subsetID) == "" {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing subset id", nil)
	}
	if !a.store.configured() {
		return domainagg.NewError(domainagg.CodeInternal, op, "response weighting aggregate repos not configured", nil)
	}
	return nil
}

func (a *responseWeightingAggregate) AreThereAnyRootResponseWeights(ctx context.Context, scope types.Scope, subsetID string) (bool, error) {
	const op = "Weighting.Response.AreThereAnyRootResponseWeights"
	if err := a.precheck(op, scope, subsetID); err != nil {
		return false, err
	}
	var ok bool
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		ok, err = a.store.contexts.ExistsRoot(dbc, scope, subsetID)
		return err
	})
	return ok, err
}

func (a *responseWeightingAggregate) GetRootResponseWeightingContextWithWeightsForSubset(ctx context.Context, scope types.Scope, subsetID string) (*types.ResponseWeightingContext, error) {
	const op = "Weighting.Response.GetRootResponseWeightingContextWithWeightsForSubset"
	if err := a.precheck(op, scope, subsetID); err != nil {
		return nil, err
	}
	var out *types.ResponseWeightingContext
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		var err error
		out, err = a.store.contexts.GetRoot(dbc, scope, subsetID, true)
		return err
	})
	return out, err
}

func (a *responseWeightingAggregate) CreateResponseWeightsForRoot(ctx context.Context, scope types.Scope, subsetID string, weights []types.ResponseWeight) (domainagg.ResponseWeightsResult, error) {
	const op = "Weighting.Response.CreateResponseWeightsForRoot"
	var out domainagg.ResponseWeightsResult
	if err := a.precheck(op, scope, subsetID); err != nil {
		return out, err
	}

	row := &types.ResponseWeightingContext{
		ID:               uuid.New(),
		ProductShortCode: scope.ProductShortCode,
		SubProductID:     scope.SubProductID,
		SubsetID:         subsetID,
		Context:          "",
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		existing, err := a.store.contexts.GetRoot(dbc, scope, subsetID, false)
		if err != nil {
			return err
		}
		n, err := a.store.writeContext(dbc, scope, existing, row, weights, a.deps.BatchSize)
		if err != nil {
			return err
		}
		out = domainagg.ResponseWeightsResult{
			ContextID:   row.ID,
			Replaced:    existing != nil,
			WeightCount: n,
		}
		return nil
	})
	if err != nil {
		return domainagg.ResponseWeightsResult{}, err
	}
	a.log.Info("stored root response weights",
		"product", scope.ProductShortCode,
		"sub_product", scope.SubProductID,
		"subset", subsetID,
		"context_id", out.ContextID,
		"weights", out.WeightCount,
		"replaced", out.Replaced,
	)
	a.deps.Base.Hooks.ObserveWrite(op, WriteVolume{WeightRows: out.WeightCount, RootWeights: true})
	return out, nil
}

func (a *responseWeightingAggregate) CreateResponseWeights(ctx context.Context, scope types.Scope, subsetID string, plans []*types.WeightingPlan, path []types.TargetInstance, weights []types.ResponseWeight) (domainagg.ResponseWeightsResult, error) {
	const op = "Weighting.Response.CreateResponseWeights"
	var out domainagg.ResponseWeightsResult
	if err := a.precheck(op, scope, subsetID); err != nil {
		return out, err
	}
	if len(path) == 0 {
		return out, domainagg.NewError(domainagg.CodeInvalidOperation, op, weighting.ErrEmptyPath.Error(), weighting.ErrEmptyPath)
	}
	target, err := weighting.ResolveTarget(subsetID, plans, path)
	if err != nil {
		return out, MapError(op, err)
	}
	if target.ID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeInvalidOperation, op, "weighting target has not been saved", nil)
	}

	targetID := target.ID
	row := &types.ResponseWeightingContext{
		ID:                uuid.New(),
		ProductShortCode:  scope.ProductShortCode,
		SubProductID:      scope.SubProductID,
		SubsetID:          subsetID,
		WeightingTargetID: &targetID,
		Context:           targetID.String(),
		Path:              append([]types.TargetInstance(nil), path...),
	}
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		stored, err := a.store.targets.GetByID(dbc, scope, targetID)
		if err != nil {
			return err
		}
		if stored == nil || stored.SubsetID != subsetID {
			return domainagg.NotFound(op, "weighting target not found")
		}
		existing, err := a.store.contexts.GetByTargetID(dbc, scope, targetID)
		if err != nil {
			return err
		}
		n, err := a.store.writeContext(dbc, scope, existing, row, weights, a.deps.BatchSize)
		if err != nil {
			return err
		}
		out = domainagg.ResponseWeightsResult{
			ContextID:   row.ID,
			TargetID:    &targetID,
			Replaced:    existing != nil,
			WeightCount: n,
		}
		return nil
	})
	if err != nil {
		return domainagg.ResponseWeightsResult{}, err
	}
	a.log.Info("stored target response weights",
		"product", scope.ProductShortCode,
		"sub_product", scope.SubProductID,
		"subset", subsetID,
		"target_id", targetID,
		"context_id", out.ContextID,
		"weights", out.WeightCount,
		"replaced", out.Replaced,
	)
	a.deps.Base.Hooks.ObserveWrite(op, WriteVolume{WeightRows: out.WeightCount})
	return out, nil
}

func (a *responseWeightingAggregate) DeleteResponseWeights(ctx context.Context, scope types.Scope, subsetID string) (int, error) {
	const op = "Weighting.Response.DeleteResponseWeights"
	if err := a.precheck(op, scope, subsetID); err != nil {
		return 0, err
	}
	var n int
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		rows, err := a.store.contexts.ListBySubset(dbc, scope, subsetID, false)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(rows))
		for _, c := range rows {
			ids = append(ids, c.ID)
		}
		n, err = a.store.deleteContexts(dbc, scope, ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	a.log.Info("deleted response weights for subset",
		"product", scope.ProductShortCode,
		"sub_product", scope.SubProductID,
		"subset", subsetID,
		"contexts_deleted", n,
	)
	return n, nil
}

func (a *responseWeightingAggregate) DeleteResponseWeightsForTarget(ctx context.Context, scope types.Scope, subsetID string, targetID uuid.UUID) (bool, error) {
	const op = "Weighting.Response.DeleteResponseWeightsForTarget"
	if err := a.precheck(op, scope, subsetID); err != nil {
		return false, err
	}
	var deleted bool
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		existing, err := a.store.contexts.GetByTargetID(dbc, scope, targetID)
		if err != nil {
			return err
		}
		if existing == nil || existing.SubsetID != subsetID {
			return nil
		}
		n, err := a.store.deleteContexts(dbc, scope, []uuid.UUID{existing.ID})
		deleted = n > 0
		return err
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}
