package aggregates

import (
	"context"

	"github.com/google/uuid"
	"github.com/yungbote/weighting-backend/internal/domain/weighting"
)

var ResponseWeightingAggregateContract = Contract{
	Name:             "Weighting.ResponseWeightingAggregate",
	OpPrefix:         "Weighting.Response.",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Tables:           []string{"response_weighting_context", "response_weight"},
	Notes:            "Owns at-most-one context per target and per subset root; replaces a context and its weight rows atomically.",
}

// ResponseWeightingAggregate owns response weighting contexts and their weights.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeInvalidOperation, CodeConflict, CodeRetryable, CodeInternal.
type ResponseWeightingAggregate interface {
	Aggregate

	AreThereAnyRootResponseWeights(ctx context.Context, scope weighting.Scope, subsetID string) (bool, error)
	// GetRootResponseWeightingContextWithWeightsForSubset returns nil when the subset has no root context.
	GetRootResponseWeightingContextWithWeightsForSubset(ctx context.Context, scope weighting.Scope, subsetID string) (*weighting.ResponseWeightingContext, error)

	// CreateResponseWeightsForRoot replaces the subset's root context with a new one holding weights.
	CreateResponseWeightsForRoot(ctx context.Context, scope weighting.Scope, subsetID string, weights []weighting.ResponseWeight) (ResponseWeightsResult, error)
	// CreateResponseWeights resolves path against plans and replaces the
	// resolved target's context with a new one holding weights. An empty path
	// fails with CodeInvalidOperation.
	CreateResponseWeights(ctx context.Context, scope weighting.Scope, subsetID string, plans []*weighting.WeightingPlan, path []weighting.TargetInstance, weights []weighting.ResponseWeight) (ResponseWeightsResult, error)

	// DeleteResponseWeights removes every context of the subset, root included.
	DeleteResponseWeights(ctx context.Context, scope weighting.Scope, subsetID string) (int, error)
	// DeleteResponseWeightsForTarget reports whether a context was removed.
	DeleteResponseWeightsForTarget(ctx context.Context, scope weighting.Scope, subsetID string, targetID uuid.UUID) (bool, error)
}

type ResponseWeightsResult struct {
	ContextID   uuid.UUID
	TargetID    *uuid.UUID
	Replaced    bool
	WeightCount int
}
