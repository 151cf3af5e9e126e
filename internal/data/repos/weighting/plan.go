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

type WeightingPlanRepo interface {
	Create(dbc dbctx.Context, rows []*types.WeightingPlan) ([]*types.WeightingPlan, error)
	Upsert(dbc dbctx.Context, row *types.WeightingPlan) error

	ListByScope(dbc dbctx.Context, scope types.Scope) ([]*types.WeightingPlan, error)
	ListBySubset(dbc dbctx.Context, scope types.Scope, subsetID string) ([]*types.WeightingPlan, error)
	GetByID(dbc dbctx.Context, scope types.Scope, id uuid.UUID) (*types.WeightingPlan, error)
	// GetByIDsAnyScope ignores scope; used to detect ids owned by another scope.
	GetByIDsAnyScope(dbc dbctx.Context, ids []uuid.UUID) ([]*types.WeightingPlan, error)

	DetachFromParent(dbc dbctx.Context, scope types.Scope, ids []uuid.UUID) (int64, error)
	DetachAll(dbc dbctx.Context, scope types.Scope, subsetID string) (int64, error)
	DeleteByIDs(dbc dbctx.Context, scope types.Scope, ids []uuid.UUID) (int64, error)
	DeleteAll(dbc dbctx.Context, scope types.Scope, subsetID string) (int64, error)
}

type weightingPlanRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewWeightingPlanRepo(db *gorm.DB, baseLog *logger.Logger) WeightingPlanRepo {
	return &weightingPlanRepo{db: db, log: baseLog.With("repo", "WeightingPlanRepo")}
}

func (r *weightingPlanRepo) Create(dbc dbctx.Context, rows []*types.WeightingPlan) ([]*types.WeightingPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.WeightingPlan{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *weightingPlanRepo) Upsert(dbc dbctx.Context, row *types.WeightingPlan) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
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
				"parent_weighting_target_id",
				"variable_identifier",
				"is_weighting_group_root",
				"updated_at",
			}),
		}).
		Create(row).Error
}

func (r *weightingPlanRepo) ListByScope(dbc dbctx.Context, scope types.Scope) ([]*types.WeightingPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.WeightingPlan
	if err := scoped(t.WithContext(dbc.Ctx), scope).
		Order("subset_id ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weightingPlanRepo) ListBySubset(dbc dbctx.Context, scope types.Scope, subsetID string) ([]*types.WeightingPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.WeightingPlan
	if err := scoped(t.WithContext(dbc.Ctx), scope).
		Where("subset_id = ?", subsetID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weightingPlanRepo) GetByID(dbc dbctx.Context, scope types.Scope, id uuid.UUID) (*types.WeightingPlan, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.WeightingPlan
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

func (r *weightingPlanRepo) GetByIDsAnyScope(dbc dbctx.Context, ids []uuid.UUID) ([]*types.WeightingPlan, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.WeightingPlan
	if len(ids) == 0 {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *weightingPlanRepo) DetachFromParent(dbc dbctx.Context, scope types.Scope, ids []uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := scoped(t.WithContext(dbc.Ctx).Model(&types.WeightingPlan{}), scope).
		Where("id IN ? AND parent_weighting_target_id IS NOT NULL", ids).
		Updates(map[string]interface{}{
			"parent_weighting_target_id": nil,
			"updated_at":                 time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *weightingPlanRepo) DetachAll(dbc dbctx.Context, scope types.Scope, subsetID string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := scoped(t.WithContext(dbc.Ctx).Model(&types.WeightingPlan{}), scope).
		Where("parent_weighting_target_id IS NOT NULL")
	if subsetID != "" {
		q = q.Where("subset_id = ?", subsetID)
	}
	res := q.Updates(map[string]interface{}{
		"parent_weighting_target_id": nil,
		"updated_at":                 time.Now().UTC(),
	})
	return res.RowsAffected, res.Error
}

func (r *weightingPlanRepo) DeleteByIDs(dbc dbctx.Context, scope types.Scope, ids []uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := scoped(t.WithContext(dbc.Ctx), scope).Where("id IN ?", ids).Delete(&types.WeightingPlan{})
	return res.RowsAffected, res.Error
}

func (r *weightingPlanRepo) DeleteAll(dbc dbctx.Context, scope types.Scope, subsetID string) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := scoped(t.WithContext(dbc.Ctx), scope)
	if subsetID != "" {
		q = q.Where("subset_id = ?", subsetID)
	}
	res := q.Delete(&types.WeightingPlan{})
	return res.RowsAffected, res.Error
}

// scoped narrows q to the rows of one (product, sub-product) scope.
func scoped(q *gorm.DB, scope types.Scope) *gorm.DB {
	return q.Where("product_short_code = ? AND sub_product_id = ?", scope.ProductShortCode, scope.SubProductID)
}
