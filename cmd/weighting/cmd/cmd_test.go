package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/weighting-backend/internal/app"
	types "github.com/yungbote/weighting-backend/internal/domain"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
)

func TestParseTargetPath(t *testing.T) {
	got, err := parseTargetPath(" gender=2, region = 10 ")
	if err != nil {
		t.Fatalf("parseTargetPath: %v", err)
	}
	want := []types.TargetInstance{
		{FilterVariableName: "gender", FilterInstanceID: 2},
		{FilterVariableName: "region", FilterInstanceID: 10},
	}
	if len(got) != len(want) {
		t.Fatalf("steps: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("step %d: want=%+v got=%+v", i, want[i], got[i])
		}
	}

	if empty, err := parseTargetPath(""); err != nil || empty != nil {
		t.Fatalf("empty path: %v %v", empty, err)
	}
	for _, bad := range []string{"gender", "=2", "gender=two", "gender=2,,region=1"} {
		if _, err := parseTargetPath(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestWritePlanTableOrdersRootsFirst(t *testing.T) {
	parent := uuid.New()
	plans := []*types.WeightingPlan{
		{ID: uuid.New(), SubsetID: "US", VariableIdentifier: "age"},
		{ID: uuid.New(), SubsetID: "UK", VariableIdentifier: "region", ParentWeightingTargetID: &parent},
		{ID: uuid.New(), SubsetID: "UK", VariableIdentifier: "gender", ChildTargets: []*types.WeightingTarget{{}, {}}},
	}
	var buf bytes.Buffer
	if err := writePlanTable(&buf, plans); err != nil {
		t.Fatalf("writePlanTable: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines: want=4 got=%d\n%s", len(lines), buf.String())
	}
	if !strings.Contains(lines[1], "gender") || !strings.Contains(lines[2], parent.String()) || !strings.Contains(lines[3], "US") {
		t.Fatalf("unexpected order:\n%s", buf.String())
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.New("--subset is required"), 1},
		{domainagg.NewError(domainagg.CodeValidation, "Weighting.Plan.CreateWeightingPlan", "Weighting must contain targets", nil), 2},
		{fmt.Errorf("import: %w", domainagg.NotFound("Weighting.Plan.DeleteWeightingPlan", "Weighting plan not found")), 3},
		{domainagg.NewError(domainagg.CodeInvariantViolation, "Weighting.Plan.UpdateWeightingPlanForSubset", "stranded", nil), 4},
		{domainagg.NewError(domainagg.CodeRetryable, "Weighting.Response.CreateResponseWeights", "database is locked", nil), 75},
		{domainagg.NewError(domainagg.CodeInternal, "Weighting.Plan.GetWeightingPlans", "boom", nil), 1},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("%v: want=%d got=%d", tc.err, tc.want, got)
		}
	}
}

func TestExecuteClosesApplicationOnFailure(t *testing.T) {
	boom := errors.New("boom")
	c := &cobra.Command{
		Use:           "fail",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			application = &app.App{}
			return boom
		},
	}
	c.SetArgs([]string{})
	if err := execute(context.Background(), c); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if application != nil {
		t.Fatalf("application left open after a failed command")
	}
}
