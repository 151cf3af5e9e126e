package weighting

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WeightingPlan weights a subset on one survey variable. A plan with no
// parent target is a root plan for its subset.
type WeightingPlan struct {
	ID                      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductShortCode        string     `gorm:"column:product_short_code;not null;index:idx_weighting_plan_node,unique,priority:1" json:"product_short_code"`
	SubProductID            string     `gorm:"column:sub_product_id;not null;default:'';index:idx_weighting_plan_node,unique,priority:2" json:"sub_product_id"`
	SubsetID                string     `gorm:"column:subset_id;not null;index:idx_weighting_plan_node,unique,priority:3" json:"subset_id"`
	ParentWeightingTargetID *uuid.UUID `gorm:"type:uuid;column:parent_weighting_target_id;index:idx_weighting_plan_node,unique,priority:4;index" json:"parent_weighting_target_id,omitempty"`
	VariableIdentifier      string     `gorm:"column:variable_identifier;not null;index:idx_weighting_plan_node,unique,priority:5" json:"variable_identifier"`
	IsWeightingGroupRoot    bool       `gorm:"column:is_weighting_group_root;not null;default:false" json:"is_weighting_group_root"`
	CreatedAt               time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt               time.Time  `gorm:"not null" json:"updated_at"`

	// ChildTargets is assembled from rows, never persisted through the plan.
	// nil means the caller omitted the collection.
	ChildTargets []*WeightingTarget `gorm:"-" json:"child_targets"`
}

func (WeightingPlan) TableName() string { return "weighting_plan" }

func (p *WeightingPlan) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// IsRoot reports whether the plan hangs directly off its subset.
func (p *WeightingPlan) IsRoot() bool {
	return p.ParentWeightingTargetID == nil || *p.ParentWeightingTargetID == uuid.Nil
}

// WeightingTarget is one instance of its parent plan's variable together with
// the share of the population it should be weighted to.
type WeightingTarget struct {
	ID                    uuid.UUID           `gorm:"type:uuid;primaryKey" json:"id"`
	ProductShortCode      string              `gorm:"column:product_short_code;not null;index:idx_weighting_target_node,unique,priority:1" json:"product_short_code"`
	SubProductID          string              `gorm:"column:sub_product_id;not null;default:'';index:idx_weighting_target_node,unique,priority:2" json:"sub_product_id"`
	SubsetID              string              `gorm:"column:subset_id;not null;index:idx_weighting_target_node,unique,priority:3" json:"subset_id"`
	ParentWeightingPlanID uuid.UUID           `gorm:"type:uuid;column:parent_weighting_plan_id;not null;index:idx_weighting_target_node,unique,priority:4;index" json:"parent_weighting_plan_id"`
	EntityInstanceID      int                 `gorm:"column:entity_instance_id;not null;index:idx_weighting_target_node,unique,priority:5" json:"entity_instance_id"`
	Target                decimal.NullDecimal `gorm:"column:target;type:decimal(20,10)" json:"target"`
	TargetPopulation      decimal.NullDecimal `gorm:"column:target_population;type:decimal(20,10)" json:"target_population"`
	CreatedAt             time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt             time.Time           `gorm:"not null" json:"updated_at"`

	ChildPlans               []*WeightingPlan          `gorm:"-" json:"child_plans,omitempty"`
	ResponseWeightingContext *ResponseWeightingContext `gorm:"-" json:"response_weighting_context,omitempty"`
}

func (WeightingTarget) TableName() string { return "weighting_target" }

func (t *WeightingTarget) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// ResponseWeightingContext holds one computed set of respondent weights. A
// nil WeightingTargetID marks the root context of a subset.
type ResponseWeightingContext struct {
	ID                uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	ProductShortCode  string                              `gorm:"column:product_short_code;not null;index:idx_rwc_scope,priority:1" json:"product_short_code"`
	SubProductID      string                              `gorm:"column:sub_product_id;not null;default:'';index:idx_rwc_scope,priority:2" json:"sub_product_id"`
	SubsetID          string                              `gorm:"column:subset_id;not null;index:idx_rwc_scope,priority:3" json:"subset_id"`
	WeightingTargetID *uuid.UUID                          `gorm:"type:uuid;column:weighting_target_id" json:"weighting_target_id,omitempty"`
	Context           string                              `gorm:"column:context;not null;default:''" json:"context"`
	Path              datatypes.JSONSlice[TargetInstance] `gorm:"column:path" json:"path,omitempty"`
	CreatedAt         time.Time                           `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time                           `gorm:"not null" json:"updated_at"`

	Weights []ResponseWeight `gorm:"foreignKey:ResponseWeightingContextID;references:ID" json:"weights,omitempty"`
}

func (ResponseWeightingContext) TableName() string { return "response_weighting_context" }

func (c *ResponseWeightingContext) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsRoot reports whether the context belongs to the subset rather than a target.
func (c *ResponseWeightingContext) IsRoot() bool {
	return c.WeightingTargetID == nil || *c.WeightingTargetID == uuid.Nil
}

// ResponseWeight is the weight computed for one respondent.
type ResponseWeight struct {
	ID                         int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ResponseWeightingContextID uuid.UUID       `gorm:"type:uuid;column:response_weighting_context_id;not null;index" json:"response_weighting_context_id"`
	RespondentID               int             `gorm:"column:respondent_id;not null" json:"respondent_id"`
	Weight                     decimal.Decimal `gorm:"column:weight;type:decimal(20,10);not null" json:"weight"`
}

func (ResponseWeight) TableName() string { return "response_weight" }

// TargetInstance is one step of a path into the plan tree: the plan variable
// and the entity instance of the target to follow.
type TargetInstance struct {
	FilterVariableName string `json:"filter_variable_name" yaml:"variable" validate:"required"`
	FilterInstanceID   int    `json:"filter_instance_id" yaml:"instance"`
}
