package aggregates

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yungbote/weighting-backend/internal/data/repos"
	repotest "github.com/yungbote/weighting-backend/internal/data/repos/testutil"
	types "github.com/yungbote/weighting-backend/internal/domain"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
)

type testRepos struct {
	plans    repos.WeightingPlanRepo
	targets  repos.WeightingTargetRepo
	contexts repos.ResponseWeightingContextRepo
	weights  repos.ResponseWeightRepo
	reports  repos.SavedReportRepo
}

func newTestRepos(t *testing.T, tx *gorm.DB) testRepos {
	t.Helper()
	log := repotest.Logger(t)
	return testRepos{
		plans:    repos.NewWeightingPlanRepo(tx, log),
		targets:  repos.NewWeightingTargetRepo(tx, log),
		contexts: repos.NewResponseWeightingContextRepo(tx, log),
		weights:  repos.NewResponseWeightRepo(tx, log),
		reports:  repos.NewSavedReportRepo(tx, log),
	}
}

func newPlanAggregate(t *testing.T, tx *gorm.DB, hooks Hooks) (domainagg.WeightingPlanAggregate, testRepos) {
	t.Helper()
	r := newTestRepos(t, tx)
	agg := NewWeightingPlanAggregate(WeightingPlanAggregateDeps{
		Base: BaseDeps{
			DB:     tx,
			Log:    repotest.Logger(t),
			Runner: NewGormTxRunner(tx),
			Hooks:  hooks,
		},
		Plans:    r.plans,
		Targets:  r.targets,
		Contexts: r.contexts,
		Weights:  r.weights,
		Reports:  r.reports,
	})
	return agg, r
}

func newResponseAggregate(t *testing.T, tx *gorm.DB, runner TxRunner) (domainagg.ResponseWeightingAggregate, testRepos) {
	t.Helper()
	r := newTestRepos(t, tx)
	if runner == nil {
		runner = NewGormTxRunner(tx)
	}
	agg := NewResponseWeightingAggregate(ResponseWeightingAggregateDeps{
		Base: BaseDeps{
			DB:     tx,
			Log:    repotest.Logger(t),
			Runner: runner,
		},
		Plans:     r.plans,
		Targets:   r.targets,
		Contexts:  r.contexts,
		Weights:   r.weights,
		BatchSize: 2,
	})
	return agg, r
}

func share(v string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(v))
}

// genderRegionPlan builds an unsaved gender(female -> region(north, south), male) tree.
func genderRegionPlan(subsetID string) *types.WeightingPlan {
	return &types.WeightingPlan{
		SubsetID:           subsetID,
		VariableIdentifier: "gender",
		ChildTargets: []*types.WeightingTarget{
			{
				EntityInstanceID: repotest.FemaleInstance,
				Target:           share("0.5"),
				ChildPlans: []*types.WeightingPlan{
					{
						VariableIdentifier: "region",
						ChildTargets: []*types.WeightingTarget{
							{EntityInstanceID: repotest.NorthInstance, Target: share("0.4")},
							{EntityInstanceID: repotest.SouthInstance, Target: share("0.6")},
						},
					},
				},
			},
			{EntityInstanceID: repotest.MaleInstance, Target: share("0.5")},
		},
	}
}

func agePlan(subsetID string) *types.WeightingPlan {
	return &types.WeightingPlan{
		SubsetID:           subsetID,
		VariableIdentifier: "age",
		ChildTargets: []*types.WeightingTarget{
			{EntityInstanceID: 1, Target: share("0.3")},
			{EntityInstanceID: 2, Target: share("0.7")},
		},
	}
}

func countRows(t *testing.T, tx *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := tx.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func findTarget(plans []*types.WeightingPlan, variable string, instance int) *types.WeightingTarget {
	for _, p := range plans {
		if p.VariableIdentifier != variable {
			continue
		}
		for _, t := range p.ChildTargets {
			if t.EntityInstanceID == instance {
				return t
			}
		}
	}
	return nil
}
