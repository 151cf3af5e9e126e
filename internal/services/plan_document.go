package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	types "github.com/yungbote/weighting-backend/internal/domain"
	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

var documentValidate *validator.Validate

func init() {
	documentValidate = validator.New()
	if err := documentValidate.RegisterValidation("decimal", func(fl validator.FieldLevel) bool {
		_, err := decimal.NewFromString(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("register decimal validation: %v", err))
	}
}

// PlanDocument is the YAML form of one subset's plan tree.
type PlanDocument struct {
	Subset string             `yaml:"subset" validate:"required"`
	Plans  []PlanDocumentPlan `yaml:"plans" validate:"dive"`
}

type PlanDocumentPlan struct {
	ID        string               `yaml:"id,omitempty" validate:"omitempty,uuid"`
	Variable  string               `yaml:"variable" validate:"required"`
	GroupRoot bool                 `yaml:"group_root,omitempty"`
	Targets   []PlanDocumentTarget `yaml:"targets" validate:"required,dive"`
}

type PlanDocumentTarget struct {
	ID         string             `yaml:"id,omitempty" validate:"omitempty,uuid"`
	Instance   int                `yaml:"instance"`
	Target     string             `yaml:"target,omitempty" validate:"omitempty,decimal"`
	Population string             `yaml:"population,omitempty" validate:"omitempty,decimal"`
	Plans      []PlanDocumentPlan `yaml:"plans,omitempty" validate:"dive"`
}

// DecodePlanDocument reads and validates a document. Unknown keys are rejected.
func DecodePlanDocument(r io.Reader) (*PlanDocument, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc PlanDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode plan document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (d *PlanDocument) Validate() error {
	if d == nil {
		return fmt.Errorf("nil plan document")
	}
	if err := documentValidate.Struct(d); err != nil {
		return fmt.Errorf("invalid plan document: %w", err)
	}
	return nil
}

// Encode writes d as YAML with two-space indentation.
func (d *PlanDocument) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

// WeightingPlans converts the document into unsaved root plans for its subset.
// Ids present in the document are kept so that applying it upserts.
func (d *PlanDocument) WeightingPlans() ([]*types.WeightingPlan, error) {
	subset := strings.TrimSpace(d.Subset)
	out := make([]*types.WeightingPlan, 0, len(d.Plans))
	for i := range d.Plans {
		p, err := d.Plans[i].toPlan(subset)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p PlanDocumentPlan) toPlan(subset string) (*types.WeightingPlan, error) {
	id, err := parseOptionalID(p.ID)
	if err != nil {
		return nil, err
	}
	plan := &types.WeightingPlan{
		ID:                   id,
		SubsetID:             subset,
		VariableIdentifier:   strings.TrimSpace(p.Variable),
		IsWeightingGroupRoot: p.GroupRoot,
	}
	if p.Targets != nil {
		plan.ChildTargets = make([]*types.WeightingTarget, 0, len(p.Targets))
	}
	for _, t := range p.Targets {
		tid, err := parseOptionalID(t.ID)
		if err != nil {
			return nil, err
		}
		target := &types.WeightingTarget{
			ID:               tid,
			SubsetID:         subset,
			EntityInstanceID: t.Instance,
			Target:           optionalDecimal(t.Target),
			TargetPopulation: optionalDecimal(t.Population),
		}
		for _, child := range t.Plans {
			cp, err := child.toPlan(subset)
			if err != nil {
				return nil, err
			}
			target.ChildPlans = append(target.ChildPlans, cp)
		}
		plan.ChildTargets = append(plan.ChildTargets, target)
	}
	return plan, nil
}

// NewPlanDocument renders root plans (with nested children attached) as a document.
func NewPlanDocument(subsetID string, roots []*types.WeightingPlan) *PlanDocument {
	doc := &PlanDocument{Subset: subsetID, Plans: []PlanDocumentPlan{}}
	for _, p := range roots {
		if p == nil {
			continue
		}
		doc.Plans = append(doc.Plans, fromPlan(p))
	}
	return doc
}

func fromPlan(p *types.WeightingPlan) PlanDocumentPlan {
	out := PlanDocumentPlan{
		Variable:  p.VariableIdentifier,
		GroupRoot: p.IsWeightingGroupRoot,
		Targets:   []PlanDocumentTarget{},
	}
	if p.ID != uuid.Nil {
		out.ID = p.ID.String()
	}
	for _, t := range p.ChildTargets {
		dt := PlanDocumentTarget{
			Instance:   t.EntityInstanceID,
			Target:     formatDecimal(t.Target),
			Population: formatDecimal(t.TargetPopulation),
		}
		if t.ID != uuid.Nil {
			dt.ID = t.ID.String()
		}
		for _, child := range t.ChildPlans {
			dt.Plans = append(dt.Plans, fromPlan(child))
		}
		out.Targets = append(out.Targets, dt)
	}
	return out
}

func parseOptionalID(s string) (uuid.UUID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func optionalDecimal(s string) decimal.NullDecimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func formatDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

// PlanDocumentService applies and exports plan documents.
type PlanDocumentService interface {
	Apply(ctx context.Context, scope types.Scope, doc *PlanDocument) (domainagg.ReplacePlansResult, error)
	Export(ctx context.Context, scope types.Scope, subsetID string) (*PlanDocument, error)
}

type planDocumentService struct {
	log   *logger.Logger
	plans domainagg.WeightingPlanAggregate
}

func NewPlanDocumentService(baseLog *logger.Logger, plans domainagg.WeightingPlanAggregate) PlanDocumentService {
	return &planDocumentService{
		log:   baseLog.With("service", "PlanDocumentService"),
		plans: plans,
	}
}

func (s *planDocumentService) Apply(ctx context.Context, scope types.Scope, doc *PlanDocument) (domainagg.ReplacePlansResult, error) {
	const op = "Weighting.PlanDocument.Apply"
	if s == nil || s.plans == nil {
		return domainagg.ReplacePlansResult{}, domainagg.NewError(domainagg.CodeInternal, op, "plan document service not configured", nil)
	}
	if err := doc.Validate(); err != nil {
		return domainagg.ReplacePlansResult{}, domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	roots, err := doc.WeightingPlans()
	if err != nil {
		return domainagg.ReplacePlansResult{}, domainagg.Wrap(domainagg.CodeValidation, op, err)
	}
	res, err := s.plans.UpdateWeightingPlanForSubset(ctx, scope, doc.Subset, roots)
	if err != nil {
		return res, err
	}
	s.log.ForRun(ctx).Info("applied plan document",
		"product", scope.ProductShortCode,
		"sub_product", scope.SubProductID,
		"subset", doc.Subset,
		"plans_written", res.PlansWritten,
		"plans_deleted", res.PlansDeleted,
	)
	return res, nil
}

func (s *planDocumentService) Export(ctx context.Context, scope types.Scope, subsetID string) (*PlanDocument, error) {
	const op = "Weighting.PlanDocument.Export"
	if s == nil || s.plans == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "plan document service not configured", nil)
	}
	plans, err := s.plans.GetWeightingPlansForSubset(ctx, scope, subsetID)
	if err != nil {
		return nil, err
	}
	roots := make([]*types.WeightingPlan, 0, len(plans))
	for _, p := range plans {
		if p.IsRoot() {
			roots = append(roots, p)
		}
	}
	return NewPlanDocument(subsetID, roots), nil
}
