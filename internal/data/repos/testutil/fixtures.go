package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	types "github.com/yungbote/weighting-backend/internal/domain"
)

const (
	FemaleInstance = 2
	MaleInstance   = 1
	NorthInstance  = 10
	SouthInstance  = 11
)

// Scope returns a fresh scope for the "eatingout" product.
func Scope() types.Scope {
	return NewScope("eatingout")
}

// NewScope returns a scope whose product code starts with product and is
// unique per call, so tests sharing a database never see each other's rows.
func NewScope(product string) types.Scope {
	return types.Scope{ProductShortCode: product + "-" + uuid.NewString()[:8], SubProductID: ""}
}

// PlanTree holds the rows of gender(female -> region(north, south), male).
type PlanTree struct {
	Gender *types.WeightingPlan
	Female *types.WeightingTarget
	Male   *types.WeightingTarget
	Region *types.WeightingPlan
	North  *types.WeightingTarget
	South  *types.WeightingTarget
}

func (p PlanTree) PlanIDs() []uuid.UUID {
	return []uuid.UUID{p.Gender.ID, p.Region.ID}
}

func (p PlanTree) TargetIDs() []uuid.UUID {
	return []uuid.UUID{p.Female.ID, p.Male.ID, p.North.ID, p.South.ID}
}

func SeedPlanTree(tb testing.TB, ctx context.Context, tx *gorm.DB, scope types.Scope, subsetID string) PlanTree {
	tb.Helper()
	half := decimal.NewNullDecimal(decimal.RequireFromString("0.5"))
	p := PlanTree{}
	p.Gender = &types.WeightingPlan{ID: uuid.New(), ProductShortCode: scope.ProductShortCode, SubProductID: scope.SubProductID, SubsetID: subsetID, VariableIdentifier: "gender"}
	p.Female = &types.WeightingTarget{ID: uuid.New(), ProductShortCode: scope.ProductShortCode, SubProductID: scope.SubProductID, SubsetID: subsetID, ParentWeightingPlanID: p.Gender.ID, EntityInstanceID: FemaleInstance, Target: half}
	p.Male = &types.WeightingTarget{ID: uuid.New(), ProductShortCode: scope.ProductShortCode, SubProductID: scope.SubProductID, SubsetID: subsetID, ParentWeightingPlanID: p.Gender.ID, EntityInstanceID: MaleInstance, Target: half}
	femaleID := p.Female.ID
	p.Region = &types.WeightingPlan{ID: uuid.New(), ProductShortCode: scope.ProductShortCode, SubProductID: scope.SubProductID, SubsetID: subsetID, ParentWeightingTargetID: &femaleID, VariableIdentifier: "region"}
	p.North = &types.WeightingTarget{ID: uuid.New(), ProductShortCode: scope.ProductShortCode, SubProductID: scope.SubProductID, SubsetID: subsetID, ParentWeightingPlanID: p.Region.ID, EntityInstanceID: NorthInstance, Target: half}
	p.South = &types.WeightingTarget{ID: uuid.New(), ProductShortCode: scope.ProductShortCode, SubProductID: scope.SubProductID, SubsetID: subsetID, ParentWeightingPlanID: p.Region.ID, EntityInstanceID: SouthInstance, Target: half}

	for _, row := range []interface{}{p.Gender, p.Female, p.Male, p.Region, p.North, p.South} {
		if err := tx.WithContext(ctx).Create(row).Error; err != nil {
			tb.Fatalf("seed plan tree: %v", err)
		}
	}
	return p
}

// SeedContext inserts a context with one weight per respondent id, each 1.5.
// A nil targetID seeds the subset root context.
func SeedContext(tb testing.TB, ctx context.Context, tx *gorm.DB, scope types.Scope, subsetID string, targetID *uuid.UUID, respondents ...int) *types.ResponseWeightingContext {
	tb.Helper()
	c := &types.ResponseWeightingContext{
		ID:                uuid.New(),
		ProductShortCode:  scope.ProductShortCode,
		SubProductID:      scope.SubProductID,
		SubsetID:          subsetID,
		WeightingTargetID: targetID,
	}
	if targetID != nil {
		c.Context = targetID.String()
	}
	if err := tx.WithContext(ctx).Omit("Weights").Create(c).Error; err != nil {
		tb.Fatalf("seed context: %v", err)
	}
	if len(respondents) == 0 {
		return c
	}
	rows := make([]types.ResponseWeight, 0, len(respondents))
	for _, id := range respondents {
		rows = append(rows, types.ResponseWeight{ResponseWeightingContextID: c.ID, RespondentID: id, Weight: decimal.RequireFromString("1.5")})
	}
	if err := tx.WithContext(ctx).Create(&rows).Error; err != nil {
		tb.Fatalf("seed weights: %v", err)
	}
	return c
}

func SeedSavedReport(tb testing.TB, ctx context.Context, tx *gorm.DB, scope types.Scope, name string, weighted bool) *types.SavedReport {
	tb.Helper()
	r := &types.SavedReport{
		ID:               uuid.New(),
		ProductShortCode: scope.ProductShortCode,
		SubProductID:     scope.SubProductID,
		Name:             name,
		IsDataWeighted:   weighted,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed saved report: %v", err)
	}
	return r
}

// Weights builds unsaved weight rows for respondents 1..n with weight w.
func Weights(n int, w string) []types.ResponseWeight {
	out := make([]types.ResponseWeight, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, types.ResponseWeight{RespondentID: i, Weight: decimal.RequireFromString(w)})
	}
	return out
}
