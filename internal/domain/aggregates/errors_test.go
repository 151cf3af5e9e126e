package aggregates

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormattingAndCodes(t *testing.T) {
	err := NewError(CodeInvalidOperation, "Weighting.Response.CreateResponseWeights", "path addresses the root", nil)
	if err.Error() != "Weighting.Response.CreateResponseWeights: path addresses the root (invalid_operation)" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
	wrapped := fmt.Errorf("outer: %w", err)
	if !IsCode(wrapped, CodeInvalidOperation) {
		t.Fatalf("code lost through wrapping")
	}
	if CodeOf(wrapped) != CodeInvalidOperation {
		t.Fatalf("CodeOf: %s", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != "" || IsCode(errors.New("plain"), "") {
		t.Fatalf("plain errors carry no code")
	}
	if Wrap(CodeInternal, "op", nil) != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}

func TestErrorMatchesCodeSentinels(t *testing.T) {
	err := fmt.Errorf("import: %w", NotFound("Weighting.Plan.DeleteWeightingPlan", "Weighting plan not found"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("not_found error should match ErrNotFound")
	}
	if errors.Is(err, ErrConflict) {
		t.Fatalf("not_found error matched ErrConflict")
	}
	other := NewError(CodeNotFound, "Weighting.Plan.UpdateWeightingPlan", "other", nil)
	if errors.Is(err, other) {
		t.Fatalf("only bare sentinels match by code")
	}
	cause := errors.New("database is locked")
	if !errors.Is(Wrap(CodeRetryable, "op", cause), cause) {
		t.Fatalf("wrapped cause lost")
	}
}

func TestContractsOwnTheirOperations(t *testing.T) {
	for _, c := range Contracts() {
		if c.Name == "" || c.OpPrefix == "" || len(c.Tables) == 0 {
			t.Fatalf("incomplete contract: %+v", c)
		}
		if !c.RequiresAggregateOwnedTx() {
			t.Fatalf("%s should own its write transactions", c.Name)
		}
	}
	cases := map[string]string{
		"Weighting.Plan.UpdateAllWeightingPlans":       WeightingPlanAggregateContract.Name,
		"Weighting.Response.CreateResponseWeights":     ResponseWeightingAggregateContract.Name,
		" Weighting.Plan.DeleteWeightingPlanForSubset": WeightingPlanAggregateContract.Name,
	}
	for op, want := range cases {
		c, ok := ContractFor(op)
		if !ok || c.Name != want {
			t.Fatalf("%q: want %s got %+v", op, want, c)
		}
	}
	if _, ok := ContractFor("Reports.SaveReport"); ok {
		t.Fatalf("unknown operation matched a contract")
	}
	owners := TableOwners()
	if len(owners["response_weight"]) != 2 || len(owners["weighting_plan"]) != 1 {
		t.Fatalf("unexpected owners: %v", owners)
	}
}
