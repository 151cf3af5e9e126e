package weighting

// ResolveTarget walks path from plansAtRoot down to the target it addresses.
//
// Each step picks the plan weighting on the step's variable, then that plan's
// target for the step's entity instance, and descends into the target's child
// plans. When several plans at one depth share a variable the first one in
// slice order wins. An empty path addresses the subset root and yields
// ErrEmptyPath; a step without a match yields a *PathNotFoundError.
func ResolveTarget(subsetID string, plansAtRoot []*WeightingPlan, path []TargetInstance) (*WeightingTarget, error) {
	if len(path) == 0 {
		return nil, ErrEmptyPath
	}
	candidates := plansAtRoot
	for depth, step := range path {
		plan := findPlan(candidates, subsetID, step.FilterVariableName)
		if plan == nil {
			return nil, &PathNotFoundError{SubsetID: subsetID, Depth: depth, Step: step}
		}
		target := findTarget(plan.ChildTargets, step.FilterInstanceID)
		if target == nil {
			return nil, &PathNotFoundError{SubsetID: subsetID, Depth: depth, Step: step, PlanFound: true}
		}
		if depth == len(path)-1 {
			return target, nil
		}
		candidates = target.ChildPlans
	}
	return nil, ErrTargetNotFound
}

func findPlan(plans []*WeightingPlan, subsetID, variable string) *WeightingPlan {
	for _, p := range plans {
		if p == nil || p.VariableIdentifier != variable {
			continue
		}
		if subsetID != "" && p.SubsetID != "" && p.SubsetID != subsetID {
			continue
		}
		return p
	}
	return nil
}

func findTarget(targets []*WeightingTarget, instanceID int) *WeightingTarget {
	for _, t := range targets {
		if t != nil && t.EntityInstanceID == instanceID {
			return t
		}
	}
	return nil
}
