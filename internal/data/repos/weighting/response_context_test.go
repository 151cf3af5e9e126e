package weighting

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/weighting-backend/internal/data/repos/testutil"
	types "github.com/yungbote/weighting-backend/internal/domain"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
)

func TestResponseWeightingContextRepoRootLookup(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	scope := testutil.Scope()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewResponseWeightingContextRepo(db, testutil.Logger(t))

	ok, err := repo.ExistsRoot(dbc, scope, "UK")
	if err != nil || ok {
		t.Fatalf("ExistsRoot on empty subset: ok=%v err=%v", ok, err)
	}
	root, err := repo.GetRoot(dbc, scope, "UK", true)
	if err != nil || root != nil {
		t.Fatalf("GetRoot on empty subset: root=%+v err=%v", root, err)
	}

	tree := testutil.SeedPlanTree(t, ctx, tx, scope, "UK")
	seeded := testutil.SeedContext(t, ctx, tx, scope, "UK", nil, 3, 1, 2)
	testutil.SeedContext(t, ctx, tx, scope, "UK", &tree.Female.ID, 1)

	ok, err = repo.ExistsRoot(dbc, scope, "UK")
	if err != nil || !ok {
		t.Fatalf("ExistsRoot: ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.ExistsRoot(dbc, scope, "US"); ok {
		t.Fatalf("ExistsRoot must be per subset")
	}

	root, err = repo.GetRoot(dbc, scope, "UK", true)
	if err != nil || root == nil {
		t.Fatalf("GetRoot: root=%+v err=%v", root, err)
	}
	if root.ID != seeded.ID || !root.IsRoot() {
		t.Fatalf("GetRoot returned the wrong context: %+v", root)
	}
	if len(root.Weights) != 3 {
		t.Fatalf("GetRoot weights: want=3 got=%d", len(root.Weights))
	}
	for i, w := range root.Weights {
		if w.RespondentID != i+1 {
			t.Fatalf("weights not ordered by respondent: %+v", root.Weights)
		}
	}

	bare, err := repo.GetRoot(dbc, scope, "UK", false)
	if err != nil || bare == nil || len(bare.Weights) != 0 {
		t.Fatalf("GetRoot without weights: %+v err=%v", bare, err)
	}
}

func TestResponseWeightingContextRepoTargetContexts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	scope := testutil.Scope()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewResponseWeightingContextRepo(db, testutil.Logger(t))

	uk := testutil.SeedPlanTree(t, ctx, tx, scope, "UK")
	us := testutil.SeedPlanTree(t, ctx, tx, scope, "US")
	testutil.SeedContext(t, ctx, tx, scope, "UK", nil, 1)
	female := testutil.SeedContext(t, ctx, tx, scope, "UK", &uk.Female.ID, 1, 2)
	north := testutil.SeedContext(t, ctx, tx, scope, "UK", &uk.North.ID, 1)
	usMale := testutil.SeedContext(t, ctx, tx, scope, "US", &us.Male.ID, 1)

	got, err := repo.GetByTargetID(dbc, scope, uk.Female.ID)
	if err != nil || got == nil || got.ID != female.ID || got.Context != uk.Female.ID.String() {
		t.Fatalf("GetByTargetID: got=%+v err=%v", got, err)
	}
	if got, err := repo.GetByTargetID(dbc, testutil.NewScope("retail"), uk.Female.ID); err != nil || got != nil {
		t.Fatalf("GetByTargetID across scope: got=%+v err=%v", got, err)
	}

	ukIDs, err := repo.ListTargetContextIDs(dbc, scope, "UK")
	if err != nil {
		t.Fatalf("ListTargetContextIDs: %v", err)
	}
	if !sameIDs(ukIDs, []uuid.UUID{female.ID, north.ID}) {
		t.Fatalf("ListTargetContextIDs UK: %v", ukIDs)
	}
	allIDs, _ := repo.ListTargetContextIDs(dbc, scope, "")
	if !sameIDs(allIDs, []uuid.UUID{female.ID, north.ID, usMale.ID}) {
		t.Fatalf("ListTargetContextIDs scope: %v", allIDs)
	}

	ukRows, err := repo.ListBySubset(dbc, scope, "UK", true)
	if err != nil || len(ukRows) != 3 {
		t.Fatalf("ListBySubset: got=%d err=%v", len(ukRows), err)
	}

	n, err := repo.DeleteByIDs(dbc, scope, []uuid.UUID{female.ID, north.ID})
	if err != nil || n != 2 {
		t.Fatalf("DeleteByIDs: n=%d err=%v", n, err)
	}
	left, _ := repo.ListByScope(dbc, scope)
	if len(left) != 2 {
		t.Fatalf("remaining contexts: want=2 got=%d", len(left))
	}
}

func TestResponseWeightingContextRepoCreateOmitsWeights(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	scope := testutil.Scope()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	contexts := NewResponseWeightingContextRepo(db, testutil.Logger(t))
	weights := NewResponseWeightRepo(db, testutil.Logger(t))

	row := &types.ResponseWeightingContext{
		ID:               uuid.New(),
		ProductShortCode: scope.ProductShortCode,
		SubsetID:         "UK",
		Path:             []types.TargetInstance{{FilterVariableName: "gender", FilterInstanceID: testutil.FemaleInstance}},
		Weights:          testutil.Weights(2, "1"),
	}
	if err := contexts.Create(dbc, row); err != nil {
		t.Fatalf("Create: %v", err)
	}
	var n int64
	if err := tx.Model(&types.ResponseWeight{}).Where("response_weighting_context_id = ?", row.ID).Count(&n).Error; err != nil || n != 0 {
		t.Fatalf("Create must not write weights: n=%d err=%v", n, err)
	}

	rows := testutil.Weights(5, "0.75")
	for i := range rows {
		rows[i].ResponseWeightingContextID = row.ID
	}
	written, err := weights.CreateInBatches(dbc, rows, 2)
	if err != nil || written != 5 {
		t.Fatalf("CreateInBatches: written=%d err=%v", written, err)
	}
	got, err := contexts.GetRoot(dbc, scope, "UK", true)
	if err != nil || got == nil {
		t.Fatalf("GetRoot: %+v err=%v", got, err)
	}
	if len(got.Path) != 1 || got.Path[0].FilterVariableName != "gender" {
		t.Fatalf("path did not round trip: %+v", got.Path)
	}
	if len(got.Weights) != 5 || got.Weights[4].Weight.String() != "0.75" {
		t.Fatalf("weights did not round trip: %+v", got.Weights)
	}

	deleted, err := weights.DeleteByContextIDs(dbc, []uuid.UUID{row.ID})
	if err != nil || deleted != 5 {
		t.Fatalf("DeleteByContextIDs: deleted=%d err=%v", deleted, err)
	}
}

func sameIDs(got, want []uuid.UUID) bool {
	if len(got) != len(want) {
		return false
	}
	seen := make(map[uuid.UUID]int, len(want))
	for _, id := range want {
		seen[id]++
	}
	for _, id := range got {
		if seen[id] == 0 {
			return false
		}
		seen[id]--
	}
	return true
}
