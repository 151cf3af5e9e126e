package weighting

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestResolveTargetFollowsPath(t *testing.T) {
	f := genderRegion()
	roots := BuildTree(f.flatPlans, f.flatTargets, nil).Roots("UK")

	got, err := ResolveTarget("UK", roots, []TargetInstance{
		{FilterVariableName: "gender", FilterInstanceID: femaleInstance},
		{FilterVariableName: "region", FilterInstanceID: northInstance},
	})
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if got.ID != f.north.ID {
		t.Fatalf("resolved %s, want north %s", got.ID, f.north.ID)
	}

	got, err = ResolveTarget("UK", roots, []TargetInstance{{FilterVariableName: "gender", FilterInstanceID: maleInstance}})
	if err != nil || got.ID != f.male.ID {
		t.Fatalf("single step: got=%v err=%v", got, err)
	}
}

func TestResolveTargetNotFound(t *testing.T) {
	f := genderRegion()
	roots := BuildTree(f.flatPlans, f.flatTargets, nil).Roots("UK")

	cases := []struct {
		name      string
		path      []TargetInstance
		depth     int
		planFound bool
	}{
		{"unknown instance", []TargetInstance{{FilterVariableName: "gender", FilterInstanceID: 999}}, 0, true},
		{"unknown variable", []TargetInstance{{FilterVariableName: "age", FilterInstanceID: 1}}, 0, false},
		{"beyond leaf", []TargetInstance{
			{FilterVariableName: "gender", FilterInstanceID: maleInstance},
			{FilterVariableName: "region", FilterInstanceID: northInstance},
		}, 1, false},
		{"nested instance", []TargetInstance{
			{FilterVariableName: "gender", FilterInstanceID: femaleInstance},
			{FilterVariableName: "region", FilterInstanceID: 404},
		}, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ResolveTarget("UK", roots, tc.path)
			if !errors.Is(err, ErrTargetNotFound) {
				t.Fatalf("expected ErrTargetNotFound, got %v", err)
			}
			var nf *PathNotFoundError
			if !errors.As(err, &nf) {
				t.Fatalf("expected *PathNotFoundError, got %T", err)
			}
			if nf.Depth != tc.depth || nf.PlanFound != tc.planFound {
				t.Fatalf("depth=%d planFound=%v", nf.Depth, nf.PlanFound)
			}
		})
	}
}

func TestResolveTargetEmptyPath(t *testing.T) {
	f := genderRegion()
	roots := BuildTree(f.flatPlans, f.flatTargets, nil).Roots("UK")
	if _, err := ResolveTarget("UK", roots, nil); !errors.Is(err, ErrEmptyPath) {
		t.Fatalf("expected ErrEmptyPath, got %v", err)
	}
}

func TestResolveTargetFirstMatchWins(t *testing.T) {
	first := &WeightingPlan{ID: uuid.New(), SubsetID: "UK", VariableIdentifier: "gender", ChildTargets: []*WeightingTarget{{ID: uuid.New(), EntityInstanceID: 1}}}
	second := &WeightingPlan{ID: uuid.New(), SubsetID: "UK", VariableIdentifier: "gender", ChildTargets: []*WeightingTarget{{ID: uuid.New(), EntityInstanceID: 1}}}
	got, err := ResolveTarget("UK", []*WeightingPlan{first, second}, []TargetInstance{{FilterVariableName: "gender", FilterInstanceID: 1}})
	if err != nil {
		t.Fatalf("ResolveTarget: %v", err)
	}
	if got != first.ChildTargets[0] {
		t.Fatalf("expected the first plan's target")
	}
}

func TestResolveTargetIgnoresOtherSubsets(t *testing.T) {
	us := &WeightingPlan{ID: uuid.New(), SubsetID: "US", VariableIdentifier: "gender", ChildTargets: []*WeightingTarget{{ID: uuid.New(), EntityInstanceID: 1}}}
	if _, err := ResolveTarget("UK", []*WeightingPlan{us}, []TargetInstance{{FilterVariableName: "gender", FilterInstanceID: 1}}); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected not found across subsets, got %v", err)
	}
}
