package weighting

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/weighting-backend/internal/domain"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

type WeightingTargetRepo interface {
	Create(dbc dbctx.Context, rows []*types.WeightingTarget) ([]*types.WeightingTarget, error)
	Upsert(dbc dbctx.Context, row *types.WeightingTarget) error

	ListByScope(dbc dbctx.Context, scope types.Scope) ([]*types.WeightingTarget, error)
	ListBySubset(dbc dbctx.Context, scope types.Scope, subsetID string) ([]*types.WeightingTarget, error)
	GetByID(dbc dbctx.Context, scope types.Scope, id uuid.UUID) (*types.WeightingTarget, error)
	GetByIDsAnyScope(dbc dbctx.Context, ids []uuid.UUID) ([]*types.WeightingTarget, error)

	DeleteByIDs(dbc dbctx.Context, scope types.Scope, ids []uuid.UUID) (int64, error)
	DeleteAll(dbc dbctx.Context, scope types.Scope, subsetID string) (int64, error)
}

type weightingTargetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeightingTargetRepo(db *gorm.DB, baseLog *logger.Logger) WeightingTargetRepo {
	return &weightingTargetRepo{db: db, log: baseLog.With("repo", "WeightingTargetRepo")}
}

func (r *weightingTargetRepo) Create(dbc dbctx.Context, rows []*types.WeightingTarget) ([]*types.WeightingTarget, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.WeightingTarget{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *weightingTargetRepo) Upsert(dbc dbctx.Context, row *types.WeightingTarget) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil || row.ParentWeightingPlanID == uuid.Nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.UpdatedAt = time.Now().UTC()

	return t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"subset_id",
				"parent_weighting_plan_id",
				"entity_instance_id",
				"target",
				"target_population",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *weightingTargetRepo) ListByScope(dbc dbctx.Context, scope types.Scope) ([]*types.WeightingTarget, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.WeightingTarget
	if err := scoped(t.WithContext(dbc.Ctx), scope).
		Order("subset_id ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weightingTargetRepo) ListBySubset(dbc dbctx.Context, scope types.Scope, subsetID string) ([]*types.WeightingTarget, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.WeightingTarget
	if err := scoped(t.WithContext(dbc.Ctx), scope).
		Where("subset_id = ?", subsetID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weightingTargetRepo) GetByID(dbc dbctx.Context, scope types.Scope, id uuid.UUID) (*types.WeightingTarget, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.WeightingTarget
	if err := scoped(t.WithContext(dbc.Ctx), scope).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *weightingTargetRepo) GetByIDsAnyScope(dbc dbctx.Context, ids []uuid.UUID) ([]*types.WeightingTarget, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.WeightingTarget
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weightingTargetRepo) DeleteByIDs(dbc dbctx.Context, scope types.Scope, ids []uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := scoped(t.WithContext(dbc.Ctx), scope).Where("id IN ?", ids).Delete(&types.WeightingTarget{})
	return res.RowsAffected, res.Error
}

func (r *weightingTargetRepo) DeleteAll(dbc dbctx.Context, scope types.Scope, subsetID string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := scoped(t.WithContext(dbc.Ctx), scope)
	if subsetID != "" {
		q = q.Where("subset_id = ?", subsetID)
	}
	res := q.Delete(&types.WeightingTarget{})
	return res.RowsAffected, res.Error
}
