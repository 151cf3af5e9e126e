package testutil

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/yungbote/weighting-backend/internal/data/aggregates"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
)

// FailingTxRunner runs aggregate bodies in a transaction on DB and can fail
// before the body starts or after it succeeds. A failure after the body rolls
// back everything the body wrote. When DB is already a transaction the body
// runs in a savepoint.
type FailingTxRunner struct {
	mu sync.Mutex

	DB *gorm.DB

	FailBegin  error
	FailCommit error

	Begins    int
	Commits   int
	Rollbacks int
}

var _ aggregates.TxRunner = (*FailingTxRunner)(nil)

func (r *FailingTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.Begins++
	failBegin, failCommit := r.FailBegin, r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	body := func(dbc dbctx.Context) error {
		if fn != nil {
			if err := fn(dbc); err != nil {
				return err
			}
		}
		return failCommit
	}

	var err error
	if r.DB == nil {
		err = body(dbctx.Context{Ctx: ctx})
	} else {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return body(dbctx.Context{Ctx: ctx, Tx: tx})
		})
	}

	r.mu.Lock()
	if err != nil {
		r.Rollbacks++
	} else {
		r.Commits++
	}
	r.mu.Unlock()
	return err
}
