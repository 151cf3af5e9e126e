package services

import (
	"bytes"
	"context"
	"strings"
	"testing"

	repotest "github.com/yungbote/weighting-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
)

const genderRegionDoc = `
subset: UK
plans:
  - variable: gender
    targets:
      - instance: 2
        target: "0.5"
        plans:
          - variable: region
            targets:
              - instance: 10
                target: "0.4"
              - instance: 11
                target: "0.6"
                population: "1200"
      - instance: 1
        target: "0.5"
`

func TestDecodePlanDocumentBuildsNestedPlans(t *testing.T) {
	doc, err := DecodePlanDocument(strings.NewReader(genderRegionDoc))
	if err != nil {
		t.Fatalf("DecodePlanDocument: %v", err)
	}
	roots, err := doc.WeightingPlans()
	if err != nil {
		t.Fatalf("WeightingPlans: %v", err)
	}
	if len(roots) != 1 || roots[0].VariableIdentifier != "gender" || roots[0].SubsetID != "UK" {
		t.Fatalf("roots: %+v", roots)
	}
	female := roots[0].ChildTargets[0]
	if len(female.ChildPlans) != 1 || female.ChildPlans[0].VariableIdentifier != "region" {
		t.Fatalf("nested plan missing: %+v", female)
	}
	south := female.ChildPlans[0].ChildTargets[1]
	if south.EntityInstanceID != 11 || south.Target.Decimal.String() != "0.6" || south.TargetPopulation.Decimal.String() != "1200" {
		t.Fatalf("south target: %+v", south)
	}
	if roots[0].ChildTargets[1].TargetPopulation.Valid {
		t.Fatalf("population left blank must stay null")
	}
}

func TestDecodePlanDocumentRejects(t *testing.T) {
	cases := map[string]string{
		"missing subset":   "plans: []\n",
		"missing targets":  "subset: UK\nplans:\n  - variable: gender\n",
		"missing variable": "subset: UK\nplans:\n  - targets: []\n",
		"bad decimal":      "subset: UK\nplans:\n  - variable: gender\n    targets:\n      - instance: 1\n        target: half\n",
		"bad id":           "subset: UK\nplans:\n  - id: nope\n    variable: gender\n    targets: []\n",
		"unknown key":      "subset: UK\nweights: []\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodePlanDocument(strings.NewReader(in)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDocumentValidatorChecksDecimals(t *testing.T) {
	if err := documentValidate.Var("0.25", "decimal"); err != nil {
		t.Fatalf("0.25: %v", err)
	}
	if err := documentValidate.Var("half", "decimal"); err == nil {
		t.Fatalf("half: expected error")
	}
}

func TestPlanDocumentApplyAndExport(t *testing.T) {
	tx := repotest.Tx(t, repotest.DB(t))
	s := newWeightingStack(t, tx)
	ctx := context.Background()
	scope := repotest.Scope()

	doc, err := DecodePlanDocument(strings.NewReader(genderRegionDoc))
	if err != nil {
		t.Fatalf("DecodePlanDocument: %v", err)
	}
	res, err := s.documents.Apply(ctx, scope, doc)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if res.PlansWritten != 2 || res.TargetsWritten != 4 {
		t.Fatalf("unexpected result: %+v", res)
	}

	exported, err := s.documents.Export(ctx, scope, "UK")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if len(exported.Plans) != 1 || exported.Plans[0].ID == "" {
		t.Fatalf("export should carry saved ids: %+v", exported)
	}
	var buf bytes.Buffer
	if err := exported.Encode(&buf); err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Re-applying the export upserts in place.
	again, err := DecodePlanDocument(&buf)
	if err != nil {
		t.Fatalf("decode export: %v\n%s", err, buf.String())
	}
	res, err = s.documents.Apply(ctx, scope, again)
	if err != nil {
		t.Fatalf("re-apply: %v", err)
	}
	if res.PlansDeleted != 0 || res.TargetsDeleted != 0 {
		t.Fatalf("re-apply must not delete: %+v", res)
	}
	plans, err := s.plans.GetWeightingPlansForSubset(ctx, scope, "UK")
	if err != nil {
		t.Fatalf("GetWeightingPlansForSubset: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("plans after re-apply: want=2 got=%d", len(plans))
	}

	// A document without ids replaces the saved plans it collides with.
	fresh, err := DecodePlanDocument(strings.NewReader(genderRegionDoc))
	if err != nil {
		t.Fatalf("DecodePlanDocument: %v", err)
	}
	res, err = s.documents.Apply(ctx, scope, fresh)
	if err != nil {
		t.Fatalf("apply without ids: %v", err)
	}
	if res.PlansDeleted != 2 || res.PlansWritten != 2 {
		t.Fatalf("saved plans should be swapped: %+v", res)
	}

	empty := &PlanDocument{Subset: "UK", Plans: []PlanDocumentPlan{}}
	res, err = s.documents.Apply(ctx, scope, empty)
	if err != nil {
		t.Fatalf("apply empty: %v", err)
	}
	if res.PlansDeleted != 2 {
		t.Fatalf("empty document should clear the subset: %+v", res)
	}

	if _, err := s.documents.Apply(ctx, scope, &PlanDocument{}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}
