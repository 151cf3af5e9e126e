package weighting

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/weighting-backend/internal/domain"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

const defaultWeightBatchSize = 1000

type ResponseWeightRepo interface {
	// CreateInBatches inserts rows that already carry their context id.
	CreateInBatches(dbc dbctx.Context, rows []types.ResponseWeight, batchSize int) (int64, error)
	DeleteByContextIDs(dbc dbctx.Context, contextIDs []uuid.UUID) (int64, error)
}

type responseWeightRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResponseWeightRepo(db *gorm.DB, baseLog *logger.Logger) ResponseWeightRepo {
	return &responseWeightRepo{db: db, log: baseLog.With("repo", "ResponseWeightRepo")}
}

func (r *responseWeightRepo) CreateInBatches(dbc dbctx.Context, rows []types.ResponseWeight, batchSize int) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = defaultWeightBatchSize
	}
	res := t.WithContext(dbc.Ctx).CreateInBatches(&rows, batchSize)
	return res.RowsAffected, res.Error
}

func (r *responseWeightRepo) DeleteByContextIDs(dbc dbctx.Context, contextIDs []uuid.UUID) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(contextIDs) == 0 {
		return 0, nil
	}
	res := t.WithContext(dbc.Ctx).
		Where("response_weighting_context_id IN ?", contextIDs).
		Delete(&types.ResponseWeight{})
	return res.RowsAffected, res.Error
}
