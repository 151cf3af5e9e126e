package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/weighting-backend/internal/domain/weighting"
)

var WeightingPlanAggregateContract = Contract{
	Name:             "Weighting.PlanAggregate",
	OpPrefix:         "Weighting.Plan.",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyTreeAssembly,
	Tables:           []string{"weighting_plan", "weighting_target", "response_weighting_context", "response_weight", "saved_report"},
	Notes:            "Owns plan/target tree shape: validation, scope stamping, subtree replacement and child-first subtree removal.",
}

// WeightingPlanAggregate owns the weighting plan tree of one scope.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodePreconditionFailed, CodeRetryable, CodeInternal.
type WeightingPlanAggregate interface {
	Aggregate

	// GetWeightingPlans returns every plan in scope with targets, child plans
	// and target contexts attached. Child plans appear both in the list and
	// under their parent target.
	GetWeightingPlans(ctx context.Context, scope weighting.Scope) ([]*weighting.WeightingPlan, error)
	// GetWeightingPlansForSubset is GetWeightingPlans narrowed to one subset.
	GetWeightingPlansForSubset(ctx context.Context, scope weighting.Scope, subsetID string) ([]*weighting.WeightingPlan, error)
	// GetWeightingPlansBySubsetID groups root plans by subset id.
	GetWeightingPlansBySubsetID(ctx context.Context, scope weighting.Scope) (map[string][]*weighting.WeightingPlan, error)
	// GetLoaderWeightingPlansForSubset returns the subset's root plans with
	// contexts and their weight rows, under the loader query timeout.
	GetLoaderWeightingPlansForSubset(ctx context.Context, scope weighting.Scope, subsetID string) ([]*weighting.WeightingPlan, error)

	// CreateWeightingPlan validates and inserts a plan tree.
	CreateWeightingPlan(ctx context.Context, scope weighting.Scope, plan *weighting.WeightingPlan) (*weighting.WeightingPlan, error)
	// UpdateWeightingPlan validates and upserts a plan tree by primary key.
	// Existing nodes missing from the tree are left alone.
	UpdateWeightingPlan(ctx context.Context, scope weighting.Scope, plan *weighting.WeightingPlan) (*weighting.WeightingPlan, error)
	// UpdateAllWeightingPlans replaces every plan of every subset in scope
	// with plans. Plans with an empty variable identifier are dropped first.
	UpdateAllWeightingPlans(ctx context.Context, scope weighting.Scope, plans []*weighting.WeightingPlan) (ReplacePlansResult, error)
	// UpdateWeightingPlanForSubset upserts plans into one subset and removes
	// the subset's plans that plans no longer reference.
	UpdateWeightingPlanForSubset(ctx context.Context, scope weighting.Scope, subsetID string, plans []*weighting.WeightingPlan) (ReplacePlansResult, error)

	// DeleteWeightingPlan removes a plan and its subtree, detaching it from
	// its parent target first.
	DeleteWeightingPlan(ctx context.Context, scope weighting.Scope, planID uuid.UUID) (DeleteSubtreeResult, error)
	// DeleteWeightingTarget removes a target and every plan below it.
	DeleteWeightingTarget(ctx context.Context, scope weighting.Scope, subsetID string, targetID uuid.UUID) (DeleteSubtreeResult, error)
	// DeleteWeightingChildPlansForTarget removes the plans below a target and keeps the target.
	DeleteWeightingChildPlansForTarget(ctx context.Context, scope weighting.Scope, subsetID string, targetID uuid.UUID) (DeleteSubtreeResult, error)
	// DeleteWeightingPlanForSubset removes every plan of a subset and clears
	// the weighted flag on the scope's saved reports.
	DeleteWeightingPlanForSubset(ctx context.Context, scope weighting.Scope, subsetID string) (DeleteSubsetResult, error)
}

type ReplacePlansResult struct {
	PlansWritten   int
	TargetsWritten int
	PlansDeleted   int
	TargetsDeleted int
	// DestroyedSubsets lists subsets whose plans were removed without being resent.
	DestroyedSubsets []string
}

type DeleteSubtreeResult struct {
	PlansDeleted    int
	TargetsDeleted  int
	ContextsDeleted int
}

type DeleteSubsetResult struct {
	DeleteSubtreeResult
	ReportsUnweighted int
	// UnweightedReports names the saved reports that lost weighted data.
	UnweightedReports []string
}
