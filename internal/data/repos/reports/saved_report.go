package reports

import (
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/weighting-backend/internal/domain"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

type SavedReportRepo interface {
	Create(dbc dbctx.Context, rows []*types.SavedReport) ([]*types.SavedReport, error)
	ListWeighted(dbc dbctx.Context, scope types.Scope) ([]*types.SavedReport, error)
	// ClearDataWeighted flips is_data_weighted to false on every weighted
	// report in scope and returns how many changed.
	ClearDataWeighted(dbc dbctx.Context, scope types.Scope) (int64, error)
}

type savedReportRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSavedReportRepo(db *gorm.DB, baseLog *logger.Logger) SavedReportRepo {
	return &savedReportRepo{db: db, log: baseLog.With("repo", "SavedReportRepo")}
}

func (r *savedReportRepo) Create(dbc dbctx.Context, rows []*types.SavedReport) ([]*types.SavedReport, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return []*types.SavedReport{}, nil
	}
	if err := t.WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *savedReportRepo) ListWeighted(dbc dbctx.Context, scope types.Scope) ([]*types.SavedReport, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.SavedReport
	if err := t.WithContext(dbc.Ctx).
		Where("product_short_code = ? AND sub_product_id = ? AND is_data_weighted = ?", scope.ProductShortCode, scope.SubProductID, true).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *savedReportRepo) ClearDataWeighted(dbc dbctx.Context, scope types.Scope) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	res := t.WithContext(dbc.Ctx).
		Model(&types.SavedReport{}).
		Where("product_short_code = ? AND sub_product_id = ? AND is_data_weighted = ?", scope.ProductShortCode, scope.SubProductID, true).
		Updates(map[string]interface{}{
			"is_data_weighted": false,
			"updated_at":       time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}
