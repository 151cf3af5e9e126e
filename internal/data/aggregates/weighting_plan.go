package aggregates

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/weighting-backend/internal/data/repos"
	types "github.com/yungbote/weighting-backend/internal/domain"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
	"github.com/yungbote/weighting-backend/internal/domain/weighting"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

const defaultLoaderTimeout = 180 * time.Second

type WeightingPlanAggregateDeps struct {
	Base BaseDeps

	Plans    repos.WeightingPlanRepo
	Targets  repos.WeightingTargetRepo
	Contexts repos.ResponseWeightingContextRepo
	Weights  repos.ResponseWeightRepo
	Reports  repos.SavedReportRepo

	// LoaderTimeout bounds GetLoaderWeightingPlansForSubset. Zero means 180s.
	LoaderTimeout time.Duration
}

type weightingPlanAggregate struct {
	deps  WeightingPlanAggregateDeps
	store treeStore
	log   *logger.Logger
}

func NewWeightingPlanAggregate(deps WeightingPlanAggregateDeps) domainagg.WeightingPlanAggregate {
	deps.Base = deps.Base.withDefaults()
	if deps.LoaderTimeout <= 0 {
		deps.LoaderTimeout = defaultLoaderTimeout
	}
	return &weightingPlanAggregate{
		deps: deps,
		store: treeStore{
			plans:    deps.Plans,
			targets:  deps.Targets,
			contexts: deps.Contexts,
			weights:  deps.Weights,
		},
		log: deps.Base.Log.With("aggregate", "WeightingPlanAggregate"),
	}
}

func (a *weightingPlanAggregate) Contract() domainagg.Contract {
	return domainagg.WeightingPlanAggregateContract
}

func (a *weightingPlanAggregate) precheck(op string, scope types.Scope) error {
	if err := scope.Validate(); err != nil {
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	if !a.store.configured() {
		return domainagg.NewError(domainagg.CodeInternal, op, "weighting plan aggregate repos not configured", nil)
	}
	return nil
}

func (a *weightingPlanAggregate) GetWeightingPlans(ctx context.Context, scope types.Scope) ([]*types.WeightingPlan, error) {
	const op = "Weighting.Plan.GetWeightingPlans"
	if err := a.precheck(op, scope); err != nil {
		return nil, err
	}
	var out []*types.WeightingPlan
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		tree, err := a.store.loadScope(dbc, scope)
		if err != nil {
			return err
		}
		out = tree.Plans()
		return nil
	})
	return out, err
}

func (a *weightingPlanAggregate) GetWeightingPlansForSubset(ctx context.Context, scope types.Scope, subsetID string) ([]*types.WeightingPlan, error) {
	const op = "Weighting.Plan.GetWeightingPlansForSubset"
	if err := a.precheck(op, scope); err != nil {
		return nil, err
	}
	var out []*types.WeightingPlan
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		tree, err := a.store.loadSubset(dbc, scope, subsetID, false)
		if err != nil {
			return err
		}
		out = tree.Plans()
		return nil
	})
	return out, err
}

func (a *weightingPlanAggregate) GetWeightingPlansBySubsetID(ctx context.Context, scope types.Scope) (map[string][]*types.WeightingPlan, error) {
	const op = "Weighting.Plan.GetWeightingPlansBySubsetID"
	if err := a.precheck(op, scope); err != nil {
		return nil, err
	}
	var out map[string][]*types.WeightingPlan
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		tree, err := a.store.loadScope(dbc, scope)
		if err != nil {
			return err
		}
		out = tree.RootsBySubset()
		return nil
	})
	return out, err
}

func (a *weightingPlanAggregate) GetLoaderWeightingPlansForSubset(ctx context.Context, scope types.Scope, subsetID string) ([]*types.WeightingPlan, error) {
	const op = "Weighting.Plan.GetLoaderWeightingPlansForSubset"
	if err := a.precheck(op, scope); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.deps.LoaderTimeout)
	defer cancel()

	var out []*types.WeightingPlan
	err := executeRead(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		tree, err := a.store.loadSubset(dbc, scope, subsetID, true)
		if err != nil {
			return err
		}
		out = tree.Roots(subsetID)
		return nil
	})
	return out, err
}

func (a *weightingPlanAggregate) CreateWeightingPlan(ctx context.Context, scope types.Scope, plan *types.WeightingPlan) (*types.WeightingPlan, error) {
	const op = "Weighting.Plan.CreateWeightingPlan"
	if err := a.precheck(op, scope); err != nil {
		return nil, err
	}
	prepared, err := weighting.Prepare(scope, "", plan)
	if err != nil {
		return nil, MapError(op, err)
	}
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.store.checkOwnership(dbc, op, scope, plan.SubsetID, plan, prepared); err != nil {
			return err
		}
		return a.store.insert(dbc, prepared)
	})
	if err != nil {
		return nil, err
	}
	a.deps.Base.Hooks.ObserveWrite(op, WriteVolume{PlansWritten: len(prepared.Plans), TargetsWritten: len(prepared.Targets)})
	return plan, nil
}

func (a *weightingPlanAggregate) UpdateWeightingPlan(ctx context.Context, scope types.Scope, plan *types.WeightingPlan) (*types.WeightingPlan, error) {
	const op = "Weighting.Plan.UpdateWeightingPlan"
	if err := a.precheck(op, scope); err != nil {
		return nil, err
	}
	prepared, err := weighting.Prepare(scope, "", plan)
	if err != nil {
		return nil, MapError(op, err)
	}
	err = executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		if err := a.store.checkOwnership(dbc, op, scope, plan.SubsetID, plan, prepared); err != nil {
			return err
		}
		return a.store.upsert(dbc, prepared)
	})
	if err != nil {
		return nil, err
	}
	a.deps.Base.Hooks.ObserveWrite(op, WriteVolume{PlansWritten: len(prepared.Plans), TargetsWritten: len(prepared.Targets)})
	return plan, nil
}

func (a *weightingPlanAggregate) UpdateAllWeightingPlans(ctx context.Context, scope types.Scope, plans []*types.WeightingPlan) (domainagg.ReplacePlansResult, error) {
	const op = "Weighting.Plan.UpdateAllWeightingPlans"
	var out domainagg.ReplacePlansResult
	if err := a.precheck(op, scope); err != nil {
		return out, err
	}

	incoming := make([]*types.WeightingPlan, 0, len(plans))
	for _, p := range plans {
		if p == nil || strings.TrimSpace(p.VariableIdentifier) == "" {
			continue
		}
		incoming = append(incoming, p)
	}
	prepared := make([]weighting.Prepared, 0, len(incoming))
	incomingSubsets := map[string]bool{}
	for _, p := range incoming {
		if !p.IsRoot() {
			return out, domainagg.NewError(domainagg.CodeValidation, op, "top-level weighting plans cannot have a parent target", nil)
		}
		pp, err := weighting.Prepare(scope, "", p)
		if err != nil {
			return out, MapError(op, err)
		}
		prepared = append(prepared, pp)
		incomingSubsets[p.SubsetID] = true
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.ReplacePlansResult{}
		// The scope is purged before the insert, so ids may move between subsets.
		for _, pp := range prepared {
			if err := a.store.checkOwnership(dbc, op, scope, "", nil, pp); err != nil {
				return err
			}
		}

		existing, err := a.store.plans.ListByScope(dbc, scope)
		if err != nil {
			return err
		}
		for _, s := range weighting.BuildTree(existing, nil, nil).SubsetIDs() {
			if !incomingSubsets[s] {
				out.DestroyedSubsets = append(out.DestroyedSubsets, s)
			}
		}

		if err := a.purgeScope(dbc, scope, &out); err != nil {
			return err
		}
		for _, pp := range prepared {
			if err := a.store.insert(dbc, pp); err != nil {
				return err
			}
			out.PlansWritten += len(pp.Plans)
			out.TargetsWritten += len(pp.Targets)
		}
		return nil
	})
	if err != nil {
		return domainagg.ReplacePlansResult{}, err
	}

	if len(out.DestroyedSubsets) > 0 {
		a.log.Warn("replacing all weighting plans removed subsets that were not resent",
			"product", scope.ProductShortCode,
			"sub_product", scope.SubProductID,
			"subsets", out.DestroyedSubsets,
		)
	}
	a.log.Info("replaced all weighting plans",
		"product", scope.ProductShortCode,
		"sub_product", scope.SubProductID,
		"plans_deleted", out.PlansDeleted,
		"targets_deleted", out.TargetsDeleted,
		"plans_written", out.PlansWritten,
	)
	a.deps.Base.Hooks.ObserveWrite(op, replaceVolume(out))
	return out, nil
}

// purgeScope removes every plan and target in scope together with the
// contexts of those targets. Root contexts belong to the subset and stay.
func (a *weightingPlanAggregate) purgeScope(dbc dbctx.Context, scope types.Scope, out *domainagg.ReplacePlansResult) error {
	ctxIDs, err := a.store.contexts.ListTargetContextIDs(dbc, scope, "")
	if err != nil {
		return err
	}
	if _, err := a.store.deleteContexts(dbc, scope, ctxIDs); err != nil {
		return err
	}
	if _, err := a.store.plans.DetachAll(dbc, scope, ""); err != nil {
		return err
	}
	targets, err := a.store.targets.DeleteAll(dbc, scope, "")
	if err != nil {
		return err
	}
	plans, err := a.store.plans.DeleteAll(dbc, scope, "")
	if err != nil {
		return err
	}
	out.TargetsDeleted = int(targets)
	out.PlansDeleted = int(plans)
	return nil
}

func (a *weightingPlanAggregate) UpdateWeightingPlanForSubset(ctx context.Context, scope types.Scope, subsetID string, plans []*types.WeightingPlan) (domainagg.ReplacePlansResult, error) {
	const op = "Weighting.Plan.UpdateWeightingPlanForSubset"
	var out domainagg.ReplacePlansResult
	if err := a.precheck(op, scope); err != nil {
		return out, err
	}
	subsetID = strings.TrimSpace(subsetID)
	if subsetID == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing subset id", nil)
	}

	type incomingPlan struct {
		root     *types.WeightingPlan
		isNew    bool
		prepared weighting.Prepared
	}
	incoming := make([]incomingPlan, 0, len(plans))
	referenced := map[uuid.UUID]bool{}
	for _, p := range plans {
		if p == nil {
			continue
		}
		isNew := p.ID == uuid.Nil
		pp, err := weighting.Prepare(scope, subsetID, p)
		if err != nil {
			return out, MapError(op, err)
		}
		for _, sub := range pp.Plans {
			referenced[sub.ID] = true
		}
		for _, t := range pp.Targets {
			referenced[t.ID] = true
		}
		incoming = append(incoming, incomingPlan{root: p, isNew: isNew, prepared: pp})
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.ReplacePlansResult{}
		for _, in := range incoming {
			if err := a.store.checkOwnership(dbc, op, scope, subsetID, in.root, in.prepared); err != nil {
				return err
			}
		}

		// Stale subtrees go before the writes: a resent plan without an id
		// takes the unique slot of the row it replaces.
		tree, err := a.store.loadSubset(dbc, scope, subsetID, false)
		if err != nil {
			return err
		}
		var stale []uuid.UUID
		for _, id := range tree.PlanIDs() {
			if !referenced[id] {
				stale = append(stale, id)
			}
		}
		res, err := a.store.deleteSubtree(dbc, scope, tree.SubtreesOfPlans(stale, referenced))
		if err != nil {
			return err
		}
		out.PlansDeleted = res.PlansDeleted
		out.TargetsDeleted = res.TargetsDeleted

		for _, in := range incoming {
			write := a.store.upsert
			if in.isNew {
				write = a.store.insert
			}
			if err := write(dbc, in.prepared); err != nil {
				return err
			}
			out.PlansWritten += len(in.prepared.Plans)
			out.TargetsWritten += len(in.prepared.Targets)
		}
		return nil
	})
	if err != nil {
		return domainagg.ReplacePlansResult{}, err
	}

	a.log.Info("replaced weighting plans for subset",
		"product", scope.ProductShortCode,
		"sub_product", scope.SubProductID,
		"subset", subsetID,
		"plans_written", out.PlansWritten,
		"plans_deleted", out.PlansDeleted,
	)
	a.deps.Base.Hooks.ObserveWrite(op, replaceVolume(out))
	return out, nil
}

func (a *weightingPlanAggregate) DeleteWeightingPlan(ctx context.Context, scope types.Scope, planID uuid.UUID) (domainagg.DeleteSubtreeResult, error) {
	const op = "Weighting.Plan.DeleteWeightingPlan"
	var out domainagg.DeleteSubtreeResult
	if err := a.precheck(op, scope); err != nil {
		return out, err
	}
	var subsetID string
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		plan, err := a.store.plans.GetByID(dbc, scope, planID)
		if err != nil {
			return err
		}
		if plan == nil {
			return domainagg.NotFound(op, "Weighting plan not found")
		}
		subsetID = plan.SubsetID

		tree, err := a.store.loadSubset(dbc, scope, plan.SubsetID, false)
		if err != nil {
			return err
		}
		st, ok := tree.SubtreeOfPlan(planID)
		if !ok {
			return domainagg.NotFound(op, "Weighting plan not found")
		}
		below, self := st.WithoutLast()
		res, err := a.store.deleteSubtree(dbc, scope, below)
		if err != nil {
			return err
		}
		if _, err := a.store.plans.DetachFromParent(dbc, scope, self.IDs); err != nil {
			return err
		}
		if err := a.store.applySteps(dbc, scope, []weighting.DeleteStep{self}, &res); err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return domainagg.DeleteSubtreeResult{}, err
	}
	a.logDeleted(op, "deleted weighting plan", scope, subsetID, out)
	return out, nil
}

func (a *weightingPlanAggregate) DeleteWeightingTarget(ctx context.Context, scope types.Scope, subsetID string, targetID uuid.UUID) (domainagg.DeleteSubtreeResult, error) {
	return a.deleteUnderTarget(ctx, "Weighting.Plan.DeleteWeightingTarget", scope, subsetID, targetID, true)
}

func (a *weightingPlanAggregate) DeleteWeightingChildPlansForTarget(ctx context.Context, scope types.Scope, subsetID string, targetID uuid.UUID) (domainagg.DeleteSubtreeResult, error) {
	return a.deleteUnderTarget(ctx, "Weighting.Plan.DeleteWeightingChildPlansForTarget", scope, subsetID, targetID, false)
}

func (a *weightingPlanAggregate) deleteUnderTarget(ctx context.Context, op string, scope types.Scope, subsetID string, targetID uuid.UUID, includeSelf bool) (domainagg.DeleteSubtreeResult, error) {
	var out domainagg.DeleteSubtreeResult
	if err := a.precheck(op, scope); err != nil {
		return out, err
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		tree, err := a.store.loadSubset(dbc, scope, subsetID, false)
		if err != nil {
			return err
		}
		st, ok := tree.SubtreeOfTarget(targetID, includeSelf)
		if !ok {
			return domainagg.NotFound(op, "weighting target not found")
		}
		out, err = a.store.deleteSubtree(dbc, scope, st)
		return err
	})
	if err != nil {
		return domainagg.DeleteSubtreeResult{}, err
	}
	a.logDeleted(op, "deleted weighting target subtree", scope, subsetID, out, "target_id", targetID, "include_target", includeSelf)
	return out, nil
}

func (a *weightingPlanAggregate) DeleteWeightingPlanForSubset(ctx context.Context, scope types.Scope, subsetID string) (domainagg.DeleteSubsetResult, error) {
	const op = "Weighting.Plan.DeleteWeightingPlanForSubset"
	var out domainagg.DeleteSubsetResult
	if err := a.precheck(op, scope); err != nil {
		return out, err
	}
	if a.deps.Reports == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "saved report repo not configured", nil)
	}
	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		out = domainagg.DeleteSubsetResult{}
		tree, err := a.store.loadSubset(dbc, scope, subsetID, false)
		if err != nil {
			return err
		}
		if tree.PlanCount() == 0 {
			return nil
		}
		res, err := a.store.deleteSubtree(dbc, scope, tree.SubtreesOfPlans(tree.PlanIDs(), nil))
		if err != nil {
			return err
		}
		out.DeleteSubtreeResult = res

		weighted, err := a.deps.Reports.ListWeighted(dbc, scope)
		if err != nil {
			return err
		}
		n, err := a.deps.Reports.ClearDataWeighted(dbc, scope)
		if err != nil {
			return err
		}
		out.ReportsUnweighted = int(n)
		for _, r := range weighted {
			out.UnweightedReports = append(out.UnweightedReports, r.Name)
		}
		return nil
	})
	if err != nil {
		return domainagg.DeleteSubsetResult{}, err
	}
	a.logDeleted(op, "deleted weighting plans for subset", scope, subsetID, out.DeleteSubtreeResult, "reports_unweighted", out.ReportsUnweighted)
	if out.ReportsUnweighted > 0 {
		a.deps.Base.Hooks.ObserveWrite(op, WriteVolume{ReportsUnweighted: out.ReportsUnweighted})
	}
	return out, nil
}

func (a *weightingPlanAggregate) logDeleted(op, msg string, scope types.Scope, subsetID string, res domainagg.DeleteSubtreeResult, kv ...interface{}) {
	fields := append([]interface{}{
		"product", scope.ProductShortCode,
		"sub_product", scope.SubProductID,
		"subset", subsetID,
		"plans_deleted", res.PlansDeleted,
		"targets_deleted", res.TargetsDeleted,
		"contexts_deleted", res.ContextsDeleted,
	}, kv...)
	a.log.Info(msg, fields...)
	a.deps.Base.Hooks.ObserveWrite(op, WriteVolume{
		PlansDeleted:    res.PlansDeleted,
		TargetsDeleted:  res.TargetsDeleted,
		ContextsDeleted: res.ContextsDeleted,
	})
}

func replaceVolume(res domainagg.ReplacePlansResult) WriteVolume {
	return WriteVolume{
		PlansWritten:   res.PlansWritten,
		TargetsWritten: res.TargetsWritten,
		PlansDeleted:   res.PlansDeleted,
		TargetsDeleted: res.TargetsDeleted,
	}
}
