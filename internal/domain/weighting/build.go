package weighting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidPlan tags structural problems in a caller-supplied plan tree.
var ErrInvalidPlan = errors.New("invalid weighting plan")

// ValidatePlan checks that p and every plan nested under it carries a
// ChildTargets collection. The collection may be empty.
func ValidatePlan(p *WeightingPlan) error {
	if p == nil {
		return fmt.Errorf("%w: nil plan", ErrInvalidPlan)
	}
	for _, sub := range CollectSubPlans(p) {
		if sub.ChildTargets == nil {
			return ErrMissingTargets
		}
		if strings.TrimSpace(sub.VariableIdentifier) == "" {
			return fmt.Errorf("%w: missing variable identifier", ErrInvalidPlan)
		}
		for _, t := range sub.ChildTargets {
			if t == nil {
				return fmt.Errorf("%w: nil target under %q", ErrInvalidPlan, sub.VariableIdentifier)
			}
		}
	}
	return nil
}

// CollectSubPlans returns p followed by every plan reachable from it through
// child targets, in pre-order.
func CollectSubPlans(p *WeightingPlan) []*WeightingPlan {
	if p == nil {
		return nil
	}
	var out []*WeightingPlan
	seen := map[*WeightingPlan]bool{}
	var walk func(*WeightingPlan)
	walk = func(cur *WeightingPlan) {
		if cur == nil || seen[cur] {
			return
		}
		seen[cur] = true
		out = append(out, cur)
		for _, t := range cur.ChildTargets {
			if t == nil {
				continue
			}
			for _, child := range t.ChildPlans {
				walk(child)
			}
		}
	}
	walk(p)
	return out
}

// Layer holds the plans at one depth and their targets. Plans in layer k
// reference targets in layer k-1, so layers must be written in order.
type Layer struct {
	Plans   []*WeightingPlan
	Targets []*WeightingTarget
}

type Prepared struct {
	Layers  []Layer
	Plans   []*WeightingPlan
	Targets []*WeightingTarget
}

// Prepare stamps scope and subset on every node of root's tree, assigns ids
// to new nodes, links each node to its parent id and returns the nodes in
// write order. subsetID may be empty, in which case root.SubsetID is used.
func Prepare(scope Scope, subsetID string, root *WeightingPlan) (Prepared, error) {
	var out Prepared
	if err := ValidatePlan(root); err != nil {
		return out, err
	}
	subsetID = strings.TrimSpace(subsetID)
	if subsetID == "" {
		subsetID = strings.TrimSpace(root.SubsetID)
	}
	if subsetID == "" {
		return out, fmt.Errorf("%w: missing subset id", ErrInvalidPlan)
	}

	seenPlans := map[uuid.UUID]bool{}
	seenTargets := map[uuid.UUID]bool{}
	layer := []*WeightingPlan{root}
	for len(layer) > 0 {
		var cur Layer
		var next []*WeightingPlan
		for _, p := range layer {
			if err := stampSubset(&p.SubsetID, subsetID); err != nil {
				return out, err
			}
			if p.ID == uuid.Nil {
				p.ID = uuid.New()
			}
			if seenPlans[p.ID] {
				return out, fmt.Errorf("%w: plan %s appears twice", ErrInvalidPlan, p.ID)
			}
			seenPlans[p.ID] = true
			p.ProductShortCode = scope.ProductShortCode
			p.SubProductID = scope.SubProductID
			cur.Plans = append(cur.Plans, p)

			for _, t := range p.ChildTargets {
				if err := stampSubset(&t.SubsetID, subsetID); err != nil {
					return out, err
				}
				if t.ID == uuid.Nil {
					t.ID = uuid.New()
				}
				if seenTargets[t.ID] {
					return out, fmt.Errorf("%w: target %s appears twice", ErrInvalidPlan, t.ID)
				}
				seenTargets[t.ID] = true
				t.ProductShortCode = scope.ProductShortCode
				t.SubProductID = scope.SubProductID
				t.ParentWeightingPlanID = p.ID
				cur.Targets = append(cur.Targets, t)

				for _, child := range t.ChildPlans {
					if child == nil {
						continue
					}
					parent := t.ID
					child.ParentWeightingTargetID = &parent
					next = append(next, child)
				}
			}
		}
		out.Layers = append(out.Layers, cur)
		out.Plans = append(out.Plans, cur.Plans...)
		out.Targets = append(out.Targets, cur.Targets...)
		layer = next
	}
	return out, nil
}

func stampSubset(field *string, subsetID string) error {
	got := strings.TrimSpace(*field)
	if got != "" && got != subsetID {
		return fmt.Errorf("%w: node in subset %q under subset %q", ErrInvalidPlan, got, subsetID)
	}
	*field = subsetID
	return nil
}

// EnsurePathTargets adds a target for every step of path that has a plan but
// no target for the step's instance, mutating roots in place. New targets
// carry no target value. It returns the targets it added; a step with no plan
// for its variable fails with a *PathNotFoundError.
func EnsurePathTargets(subsetID string, roots []*WeightingPlan, path []TargetInstance) ([]*WeightingTarget, error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}
	var added []*WeightingTarget
	candidates := roots
	for depth, step := range path {
		plan := findPlan(candidates, subsetID, step.FilterVariableName)
		if plan == nil {
			return added, &PathNotFoundError{SubsetID: subsetID, Depth: depth, Step: step}
		}
		target := findTarget(plan.ChildTargets, step.FilterInstanceID)
		if target == nil {
			target = &WeightingTarget{
				ProductShortCode:      plan.ProductShortCode,
				SubProductID:          plan.SubProductID,
				SubsetID:              plan.SubsetID,
				ParentWeightingPlanID: plan.ID,
				EntityInstanceID:      step.FilterInstanceID,
				ChildPlans:            []*WeightingPlan{},
			}
			if plan.ChildTargets == nil {
				plan.ChildTargets = []*WeightingTarget{}
			}
			plan.ChildTargets = append(plan.ChildTargets, target)
			added = append(added, target)
		}
		candidates = target.ChildPlans
	}
	return added, nil
}
