package weighting

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/weighting-backend/internal/domain"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

type ResponseWeightingContextRepo interface {
	// Create inserts the context row only; weight rows go through ResponseWeightRepo.
	Create(dbc dbctx.Context, row *types.ResponseWeightingContext) error

	ListBySubset(dbc dbctx.Context, scope types.Scope, subsetID string, withWeights bool) ([]*types.ResponseWeightingContext, error)
	ListByScope(dbc dbctx.Context, scope types.Scope) ([]*types.ResponseWeightingContext, error)
	GetRoot(dbc dbctx.Context, scope types.Scope, subsetID string, withWeights bool) (*types.ResponseWeightingContext, error)
	GetByTargetID(dbc dbctx.Context, scope types.Scope, targetID uuid.UUID) (*types.ResponseWeightingContext, error)
	ExistsRoot(dbc dbctx.Context, scope types.Scope, subsetID string) (bool, error)
	// ListTargetContextIDs returns ids of the non-root contexts in scope,
	// narrowed to subsetID when it is not empty.
	ListTargetContextIDs(dbc dbctx.Context, scope types.Scope, subsetID string) ([]uuid.UUID, error)

	DeleteByIDs(dbc dbctx.Context, scope types.Scope, ids []uuid.UUID) (int64, error)
}

type responseWeightingContextRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseWeightingContextRepo(db *gorm.DB, baseLog *logger.Logger) ResponseWeightingContextRepo {
	return &responseWeightingContextRepo{db: db, log: baseLog.With("repo", "ResponseWeightingContextRepo")}
}

func (r *responseWeightingContextRepo) Create(dbc dbctx.Context, row *types.ResponseWeightingContext) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row == nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).Omit(clause.Associations).Create(row).Error
}

func (r *responseWeightingContextRepo) ListBySubset(dbc dbctx.Context, scope types.Scope, subsetID string, withWeights bool) ([]*types.ResponseWeightingContext, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := scoped(t.WithContext(dbc.Ctx), scope).Where("subset_id = ?", subsetID)
	if withWeights {
		q = q.Preload("Weights", orderWeights)
	}
	var out []*types.ResponseWeightingContext
	if err := q.Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseWeightingContextRepo) ListByScope(dbc dbctx.Context, scope types.Scope) ([]*types.ResponseWeightingContext, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.ResponseWeightingContext
	if err := scoped(t.WithContext(dbc.Ctx), scope).
		Order("subset_id ASC, created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseWeightingContextRepo) GetRoot(dbc dbctx.Context, scope types.Scope, subsetID string, withWeights bool) (*types.ResponseWeightingContext, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := scoped(t.WithContext(dbc.Ctx), scope).
		Where("subset_id = ? AND weighting_target_id IS NULL", subsetID)
	if withWeights {
		q = q.Preload("Weights", orderWeights)
	}
	var row types.ResponseWeightingContext
	if err := q.Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *responseWeightingContextRepo) GetByTargetID(dbc dbctx.Context, scope types.Scope, targetID uuid.UUID) (*types.ResponseWeightingContext, error) {
	if targetID == uuid.Nil {
		return nil, nil
	}
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.ResponseWeightingContext
	if err := scoped(t.WithContext(dbc.Ctx), scope).
		Where("weighting_target_id = ?", targetID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *responseWeightingContextRepo) ExistsRoot(dbc dbctx.Context, scope types.Scope, subsetID string) (bool, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var n int64
	if err := scoped(t.WithContext(dbc.Ctx).Model(&types.ResponseWeightingContext{}), scope).
		Where("subset_id = ? AND weighting_target_id IS NULL", subsetID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *responseWeightingContextRepo) ListTargetContextIDs(dbc dbctx.Context, scope types.Scope, subsetID string) ([]uuid.UUID, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	q := scoped(t.WithContext(dbc.Ctx).Model(&types.ResponseWeightingContext{}), scope).
		Where("weighting_target_id IS NOT NULL")
	if subsetID != "" {
		q = q.Where("subset_id = ?", subsetID)
	}
	var out []uuid.UUID
	if err := q.Pluck("id", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *responseWeightingContextRepo) DeleteByIDs(dbc dbctx.Context, scope types.Scope, ids []uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := scoped(t.WithContext(dbc.Ctx), scope).Where("id IN ?", ids).Delete(&types.ResponseWeightingContext{})
	return res.RowsAffected, res.Error
}

func orderWeights(db *gorm.DB) *gorm.DB {
	return db.Order("respondent_id ASC, id ASC")
}
