package aggregates

import (
	"github.com/google/uuid"

	"github.com/yungbote/weighting-backend/internal/data/repos"
	types "github.com/yungbote/weighting-backend/internal/domain"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
	"github.com/yungbote/weighting-backend/internal/domain/weighting"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
)

// treeStore bundles the table repos behind one plan tree. Every method runs
// on the caller's dbctx, so writes join the aggregate's transaction.
type treeStore struct {
	plans    repos.WeightingPlanRepo
	targets  repos.WeightingTargetRepo
	contexts repos.ResponseWeightingContextRepo
	weights  repos.ResponseWeightRepo
}

func (s treeStore) configured() bool {
	return s.plans != nil && s.targets != nil && s.contexts != nil && s.weights != nil
}

func (s treeStore) loadSubset(dbc dbctx.Context, scope types.Scope, subsetID string, withWeights bool) (*weighting.Tree, error) {
	plans, err := s.plans.ListBySubset(dbc, scope, subsetID)
	if err != nil {
		return nil, err
	}
	targets, err := s.targets.ListBySubset(dbc, scope, subsetID)
	if err != nil {
		return nil, err
	}
	contexts, err := s.contexts.ListBySubset(dbc, scope, subsetID, withWeights)
	if err != nil {
		return nil, err
	}
	return weighting.BuildTree(plans, targets, contexts), nil
}

func (s treeStore) loadScope(dbc dbctx.Context, scope types.Scope) (*weighting.Tree, error) {
	plans, err := s.plans.ListByScope(dbc, scope)
	if err != nil {
		return nil, err
	}
	targets, err := s.targets.ListByScope(dbc, scope)
	if err != nil {
		return nil, err
	}
	contexts, err := s.contexts.ListByScope(dbc, scope)
	if err != nil {
		return nil, err
	}
	return weighting.BuildTree(plans, targets, contexts), nil
}

// deleteContexts removes weight rows before their contexts.
func (s treeStore) deleteContexts(dbc dbctx.Context, scope types.Scope, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	if _, err := s.weights.DeleteByContextIDs(dbc, ids); err != nil {
		return 0, err
	}
	n, err := s.contexts.DeleteByIDs(dbc, scope, ids)
	return int(n), err
}

// deleteSubtree is the write phase of a subtree removal: contexts first, then
// every step in the collected children-first order.
func (s treeStore) deleteSubtree(dbc dbctx.Context, scope types.Scope, st weighting.Subtree) (domainagg.DeleteSubtreeResult, error) {
	var out domainagg.DeleteSubtreeResult
	if len(st.Retained) > 0 {
		return out, InvariantError("subtree removal would strand nodes that are being kept")
	}
	n, err := s.deleteContexts(dbc, scope, st.ContextIDs)
	if err != nil {
		return out, err
	}
	out.ContextsDeleted = n
	if err := s.applySteps(dbc, scope, st.Steps, &out); err != nil {
		return out, err
	}
	return out, nil
}

func (s treeStore) applySteps(dbc dbctx.Context, scope types.Scope, steps []weighting.DeleteStep, out *domainagg.DeleteSubtreeResult) error {
	for _, step := range steps {
		switch step.Kind {
		case weighting.PlanNode:
			n, err := s.plans.DeleteByIDs(dbc, scope, step.IDs)
			if err != nil {
				return err
			}
			out.PlansDeleted += int(n)
		case weighting.TargetNode:
			n, err := s.targets.DeleteByIDs(dbc, scope, step.IDs)
			if err != nil {
				return err
			}
			out.TargetsDeleted += int(n)
		}
	}
	return nil
}

// insert writes a prepared tree layer by layer so that every row's parent
// exists before the row does.
func (s treeStore) insert(dbc dbctx.Context, p weighting.Prepared) error {
	for _, layer := range p.Layers {
		if _, err := s.plans.Create(dbc, layer.Plans); err != nil {
			return err
		}
		if _, err := s.targets.Create(dbc, layer.Targets); err != nil {
			return err
		}
	}
	return nil
}

func (s treeStore) upsert(dbc dbctx.Context, p weighting.Prepared) error {
	for _, layer := range p.Layers {
		for _, plan := range layer.Plans {
			if err := s.plans.Upsert(dbc, plan); err != nil {
				return err
			}
		}
		for _, target := range layer.Targets {
			if err := s.targets.Upsert(dbc, target); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkOwnership rejects prepared nodes whose ids already exist outside the
// scope, or under another subset when subsetID is set. A root attached to a
// parent target must find that target in the same scope and subset.
func (s treeStore) checkOwnership(dbc dbctx.Context, op string, scope types.Scope, subsetID string, root *types.WeightingPlan, p weighting.Prepared) error {
	planIDs := make([]uuid.UUID, 0, len(p.Plans))
	for _, plan := range p.Plans {
		planIDs = append(planIDs, plan.ID)
	}
	existingPlans, err := s.plans.GetByIDsAnyScope(dbc, planIDs)
	if err != nil {
		return err
	}
	for _, row := range existingPlans {
		if !scope.Owns(row.ProductShortCode, row.SubProductID) {
			return domainagg.NotFound(op, "Weighting plan not found")
		}
		if subsetID != "" && row.SubsetID != subsetID {
			return ValidationError("weighting plan " + row.ID.String() + " belongs to subset " + row.SubsetID)
		}
	}

	targetIDs := make([]uuid.UUID, 0, len(p.Targets))
	for _, t := range p.Targets {
		targetIDs = append(targetIDs, t.ID)
	}
	existingTargets, err := s.targets.GetByIDsAnyScope(dbc, targetIDs)
	if err != nil {
		return err
	}
	for _, row := range existingTargets {
		if !scope.Owns(row.ProductShortCode, row.SubProductID) {
			return domainagg.NotFound(op, "weighting target not found")
		}
		if subsetID != "" && row.SubsetID != subsetID {
			return ValidationError("weighting target " + row.ID.String() + " belongs to subset " + row.SubsetID)
		}
	}

	if root == nil || root.IsRoot() {
		return nil
	}
	parent, err := s.targets.GetByID(dbc, scope, *root.ParentWeightingTargetID)
	if err != nil {
		return err
	}
	if parent == nil || parent.SubsetID != subsetID {
		return domainagg.NotFound(op, "weighting target not found")
	}
	return nil
}

// writeContext replaces existing (when set) with row and its weights. row.ID
// is set by the caller so weights carry their context id before the insert.
func (s treeStore) writeContext(dbc dbctx.Context, scope types.Scope, existing, row *types.ResponseWeightingContext, weights []types.ResponseWeight, batchSize int) (int, error) {
	if existing != nil {
		if _, err := s.deleteContexts(dbc, scope, []uuid.UUID{existing.ID}); err != nil {
			return 0, err
		}
	}
	if err := s.contexts.Create(dbc, row); err != nil {
		return 0, err
	}
	rows := make([]types.ResponseWeight, len(weights))
	for i, w := range weights {
		rows[i] = types.ResponseWeight{
			ResponseWeightingContextID: row.ID,
			RespondentID:               w.RespondentID,
			Weight:                     w.Weight,
		}
	}
	n, err := s.weights.CreateInBatches(dbc, rows, batchSize)
	return int(n), err
}
