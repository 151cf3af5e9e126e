package weighting

import (
	"sort"

	"github.com/google/uuid"
)

// Tree is an arena over the flat plan, target and context rows of one scope.
// Rows are stored by value and linked through index slices so that parent and
// child views can be rebuilt without pointer cycles.
type Tree struct {
	plans    []WeightingPlan
	targets  []WeightingTarget
	contexts []ResponseWeightingContext

	planIdx   map[uuid.UUID]int
	targetIdx map[uuid.UUID]int

	planTargets   [][]int
	targetPlans   [][]int
	targetContext []int
	rootPlans     []int
}

// BuildTree groups rows into a Tree in one pass per table. Child order follows
// the order rows were supplied in. Plans whose parent target is missing from
// the input are kept but are neither roots nor reachable from one. Root
// contexts are skipped.
func BuildTree(plans []*WeightingPlan, targets []*WeightingTarget, contexts []*ResponseWeightingContext) *Tree {
	t := &Tree{
		plans:         make([]WeightingPlan, 0, len(plans)),
		targets:       make([]WeightingTarget, 0, len(targets)),
		contexts:      make([]ResponseWeightingContext, 0, len(contexts)),
		planIdx:       make(map[uuid.UUID]int, len(plans)),
		targetIdx:     make(map[uuid.UUID]int, len(targets)),
		planTargets:   make([][]int, 0, len(plans)),
		targetPlans:   make([][]int, 0, len(targets)),
		targetContext: make([]int, 0, len(targets)),
	}
	for _, p := range plans {
		if p == nil || p.ID == uuid.Nil {
			continue
		}
		if _, dup := t.planIdx[p.ID]; dup {
			continue
		}
		row := *p
		row.ChildTargets = nil
		t.planIdx[p.ID] = len(t.plans)
		t.plans = append(t.plans, row)
		t.planTargets = append(t.planTargets, nil)
	}
	for _, tg := range targets {
		if tg == nil || tg.ID == uuid.Nil {
			continue
		}
		if _, dup := t.targetIdx[tg.ID]; dup {
			continue
		}
		row := *tg
		row.ChildPlans = nil
		row.ResponseWeightingContext = nil
		t.targetIdx[tg.ID] = len(t.targets)
		t.targets = append(t.targets, row)
		t.targetPlans = append(t.targetPlans, nil)
		t.targetContext = append(t.targetContext, -1)
	}

	for ti := range t.targets {
		if pi, ok := t.planIdx[t.targets[ti].ParentWeightingPlanID]; ok {
			t.planTargets[pi] = append(t.planTargets[pi], ti)
		}
	}
	for pi := range t.plans {
		p := &t.plans[pi]
		if p.IsRoot() {
			t.rootPlans = append(t.rootPlans, pi)
			continue
		}
		if ti, ok := t.targetIdx[*p.ParentWeightingTargetID]; ok {
			t.targetPlans[ti] = append(t.targetPlans[ti], pi)
		}
	}
	for _, c := range contexts {
		if c == nil || c.ID == uuid.Nil || c.IsRoot() {
			continue
		}
		ci := len(t.contexts)
		t.contexts = append(t.contexts, *c)
		if ti, ok := t.targetIdx[*c.WeightingTargetID]; ok && t.targetContext[ti] < 0 {
			t.targetContext[ti] = ci
		}
	}
	return t
}

func (t *Tree) PlanCount() int { return len(t.plans) }

func (t *Tree) Plan(id uuid.UUID) (*WeightingPlan, bool) {
	pi, ok := t.planIdx[id]
	if !ok {
		return nil, false
	}
	return &t.plans[pi], true
}

func (t *Tree) Target(id uuid.UUID) (*WeightingTarget, bool) {
	ti, ok := t.targetIdx[id]
	if !ok {
		return nil, false
	}
	return &t.targets[ti], true
}

// PlanIDs returns every plan id in load order.
func (t *Tree) PlanIDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(t.plans))
	for i := range t.plans {
		out = append(out, t.plans[i].ID)
	}
	return out
}

// SubsetIDs returns the sorted distinct subsets that own at least one plan.
func (t *Tree) SubsetIDs() []string {
	seen := map[string]struct{}{}
	for i := range t.plans {
		seen[t.plans[i].SubsetID] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Plans materializes every plan with nested ChildTargets, ChildPlans and
// ResponseWeightingContext views. A descendant plan appears both in the
// returned slice and under its parent target, as the same pointer.
func (t *Tree) Plans() []*WeightingPlan {
	plans, _ := t.materialize()
	return plans
}

// Roots materializes the root plans of subsetID, or of every subset when
// subsetID is empty.
func (t *Tree) Roots(subsetID string) []*WeightingPlan {
	plans, _ := t.materialize()
	out := []*WeightingPlan{}
	for _, pi := range t.rootPlans {
		if subsetID != "" && t.plans[pi].SubsetID != subsetID {
			continue
		}
		out = append(out, plans[pi])
	}
	return out
}

// RootsBySubset groups materialized root plans by subset id.
func (t *Tree) RootsBySubset() map[string][]*WeightingPlan {
	plans, _ := t.materialize()
	out := map[string][]*WeightingPlan{}
	for _, pi := range t.rootPlans {
		s := t.plans[pi].SubsetID
		out[s] = append(out[s], plans[pi])
	}
	return out
}

func (t *Tree) materialize() ([]*WeightingPlan, []*WeightingTarget) {
	plans := make([]*WeightingPlan, len(t.plans))
	for i := range t.plans {
		p := t.plans[i]
		p.ChildTargets = make([]*WeightingTarget, 0, len(t.planTargets[i]))
		plans[i] = &p
	}
	targets := make([]*WeightingTarget, len(t.targets))
	for i := range t.targets {
		tg := t.targets[i]
		tg.ChildPlans = make([]*WeightingPlan, 0, len(t.targetPlans[i]))
		if ci := t.targetContext[i]; ci >= 0 {
			c := t.contexts[ci]
			tg.ResponseWeightingContext = &c
		}
		targets[i] = &tg
	}
	for pi, tis := range t.planTargets {
		for _, ti := range tis {
			plans[pi].ChildTargets = append(plans[pi].ChildTargets, targets[ti])
		}
	}
	for ti, pis := range t.targetPlans {
		for _, pi := range pis {
			targets[ti].ChildPlans = append(targets[ti].ChildPlans, plans[pi])
		}
	}
	return plans, targets
}
