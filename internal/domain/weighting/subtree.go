package weighting

import "github.com/google/uuid"

type NodeKind uint8

const (
	PlanNode NodeKind = iota + 1
	TargetNode
)

func (k NodeKind) String() string {
	switch k {
	case PlanNode:
		return "plan"
	case TargetNode:
		return "target"
	default:
		return "unknown"
	}
}

// DeleteStep is a run of same-kind nodes that can be removed in one statement.
type DeleteStep struct {
	Kind NodeKind
	IDs  []uuid.UUID
}

// Subtree is the result of the collection phase of a subtree removal. Steps
// lists nodes children-first: every plan comes after all of its targets and
// every target after all of its child plans. ContextIDs are the contexts
// attached to collected targets and must go before any target.
type Subtree struct {
	PlanIDs    []uuid.UUID
	TargetIDs  []uuid.UUID
	ContextIDs []uuid.UUID
	Steps      []DeleteStep
	// Retained lists kept nodes found under a collected node: plans under a
	// collected target and targets under a collected plan. Removing the
	// subtree would strand them.
	Retained []uuid.UUID
}

func (s *Subtree) add(kind NodeKind, id uuid.UUID) {
	switch kind {
	case PlanNode:
		s.PlanIDs = append(s.PlanIDs, id)
	case TargetNode:
		s.TargetIDs = append(s.TargetIDs, id)
	}
	if n := len(s.Steps); n > 0 && s.Steps[n-1].Kind == kind {
		s.Steps[n-1].IDs = append(s.Steps[n-1].IDs, id)
		return
	}
	s.Steps = append(s.Steps, DeleteStep{Kind: kind, IDs: []uuid.UUID{id}})
}

// WithoutLast returns a copy of s minus its final node, which is the
// subtree's own root for SubtreeOfPlan and SubtreeOfTarget(includeSelf).
func (s Subtree) WithoutLast() (Subtree, DeleteStep) {
	if len(s.Steps) == 0 {
		return s, DeleteStep{}
	}
	out := Subtree{ContextIDs: s.ContextIDs, Retained: s.Retained}
	var last DeleteStep
	for i, step := range s.Steps {
		ids := step.IDs
		if i == len(s.Steps)-1 {
			last = DeleteStep{Kind: step.Kind, IDs: []uuid.UUID{ids[len(ids)-1]}}
			ids = ids[:len(ids)-1]
		}
		for _, id := range ids {
			out.add(step.Kind, id)
		}
	}
	return out, last
}

type collector struct {
	tree  *Tree
	out   Subtree
	skip  map[uuid.UUID]bool
	plans map[int]bool
	tgts  map[int]bool
}

func (t *Tree) newCollector(skip map[uuid.UUID]bool) *collector {
	return &collector{tree: t, skip: skip, plans: map[int]bool{}, tgts: map[int]bool{}}
}

func (c *collector) plan(pi int) {
	if c.plans[pi] || c.skip[c.tree.plans[pi].ID] {
		return
	}
	c.plans[pi] = true
	for _, ti := range c.tree.planTargets[pi] {
		if c.skip[c.tree.targets[ti].ID] {
			c.out.Retained = append(c.out.Retained, c.tree.targets[ti].ID)
			continue
		}
		c.target(ti, true)
	}
	c.out.add(PlanNode, c.tree.plans[pi].ID)
}

func (c *collector) target(ti int, includeSelf bool) {
	if includeSelf {
		if c.tgts[ti] || c.skip[c.tree.targets[ti].ID] {
			return
		}
		c.tgts[ti] = true
	}
	for _, pi := range c.tree.targetPlans[ti] {
		if includeSelf && c.skip[c.tree.plans[pi].ID] {
			c.out.Retained = append(c.out.Retained, c.tree.plans[pi].ID)
			continue
		}
		c.plan(pi)
	}
	if !includeSelf {
		return
	}
	c.out.add(TargetNode, c.tree.targets[ti].ID)
	if ci := c.tree.targetContext[ti]; ci >= 0 {
		c.out.ContextIDs = append(c.out.ContextIDs, c.tree.contexts[ci].ID)
	}
}

// SubtreeOfPlan collects the plan and everything reachable below it.
func (t *Tree) SubtreeOfPlan(id uuid.UUID) (Subtree, bool) {
	pi, ok := t.planIdx[id]
	if !ok {
		return Subtree{}, false
	}
	c := t.newCollector(nil)
	c.plan(pi)
	return c.out, true
}

// SubtreeOfTarget collects every child plan subtree under the target, and the
// target itself when includeSelf is set.
func (t *Tree) SubtreeOfTarget(id uuid.UUID, includeSelf bool) (Subtree, bool) {
	ti, ok := t.targetIdx[id]
	if !ok {
		return Subtree{}, false
	}
	c := t.newCollector(nil)
	c.target(ti, includeSelf)
	return c.out, true
}

// SubtreesOfPlans collects the subtrees of several plans into one Subtree.
// Plans and targets in keep are left out together with everything under them.
func (t *Tree) SubtreesOfPlans(ids []uuid.UUID, keep map[uuid.UUID]bool) Subtree {
	c := t.newCollector(keep)
	for _, id := range ids {
		if pi, ok := t.planIdx[id]; ok {
			c.plan(pi)
		}
	}
	return c.out
}
