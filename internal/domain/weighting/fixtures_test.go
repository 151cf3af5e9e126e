package weighting

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	femaleInstance = 2
	maleInstance   = 1
	northInstance  = 10
	southInstance  = 11
)

type genderRegionFixture struct {
	gender      *WeightingPlan
	female      *WeightingTarget
	male        *WeightingTarget
	region      *WeightingPlan
	north       *WeightingTarget
	south       *WeightingTarget
	femaleCtx   *ResponseWeightingContext
	rootCtx     *ResponseWeightingContext
	flatPlans   []*WeightingPlan
	flatTargets []*WeightingTarget
	contexts    []*ResponseWeightingContext
}

// genderRegion builds gender(female -> region(north, south), male) in subset UK
// as flat rows with ids already assigned.
func genderRegion() genderRegionFixture {
	f := genderRegionFixture{}
	f.gender = &WeightingPlan{ID: uuid.New(), ProductShortCode: "eatingout", SubsetID: "UK", VariableIdentifier: "gender"}
	f.female = &WeightingTarget{ID: uuid.New(), ProductShortCode: "eatingout", SubsetID: "UK", ParentWeightingPlanID: f.gender.ID, EntityInstanceID: femaleInstance, Target: decimal.NewNullDecimal(decimal.RequireFromString("0.5"))}
	f.male = &WeightingTarget{ID: uuid.New(), ProductShortCode: "eatingout", SubsetID: "UK", ParentWeightingPlanID: f.gender.ID, EntityInstanceID: maleInstance, Target: decimal.NewNullDecimal(decimal.RequireFromString("0.5"))}
	femaleID := f.female.ID
	f.region = &WeightingPlan{ID: uuid.New(), ProductShortCode: "eatingout", SubsetID: "UK", ParentWeightingTargetID: &femaleID, VariableIdentifier: "region"}
	f.north = &WeightingTarget{ID: uuid.New(), ProductShortCode: "eatingout", SubsetID: "UK", ParentWeightingPlanID: f.region.ID, EntityInstanceID: northInstance}
	f.south = &WeightingTarget{ID: uuid.New(), ProductShortCode: "eatingout", SubsetID: "UK", ParentWeightingPlanID: f.region.ID, EntityInstanceID: southInstance}
	f.femaleCtx = &ResponseWeightingContext{ID: uuid.New(), SubsetID: "UK", WeightingTargetID: &femaleID, Context: femaleID.String()}
	f.rootCtx = &ResponseWeightingContext{ID: uuid.New(), SubsetID: "UK"}

	f.flatPlans = []*WeightingPlan{f.gender, f.region}
	f.flatTargets = []*WeightingTarget{f.female, f.male, f.north, f.south}
	f.contexts = []*ResponseWeightingContext{f.femaleCtx, f.rootCtx}
	return f
}

// nestedPlan builds the same shape as genderRegion as an unsaved nested plan.
func nestedPlan(subsetID string) *WeightingPlan {
	return &WeightingPlan{
		SubsetID:           subsetID,
		VariableIdentifier: "gender",
		ChildTargets: []*WeightingTarget{
			{
				EntityInstanceID: femaleInstance,
				ChildPlans: []*WeightingPlan{{
					VariableIdentifier: "region",
					ChildTargets: []*WeightingTarget{
						{EntityInstanceID: northInstance},
						{EntityInstanceID: southInstance},
					},
				}},
			},
			{EntityInstanceID: maleInstance},
		},
	}
}
