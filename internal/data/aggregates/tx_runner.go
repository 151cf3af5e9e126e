package aggregates

import (
	"context"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
)

// TxRunner is the transaction boundary of every aggregate write.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

const defaultRetryBackoff = 50 * time.Millisecond

type gormTxRunner struct {
	db       *gorm.DB
	attempts int
	backoff  time.Duration
}

type TxOption func(*gormTxRunner)

// WithRetries reruns a transaction that failed with a serialization,
// deadlock or lock error up to n more times. The body must be safe to rerun.
func WithRetries(n int) TxOption {
	return func(r *gormTxRunner) {
		if n > 0 {
			r.attempts = n + 1
		}
	}
}

func WithRetryBackoff(d time.Duration) TxOption {
	return func(r *gormTxRunner) {
		if d >= 0 {
			r.backoff = d
		}
	}
}

// NewGormTxRunner runs bodies in a GORM transaction. On a db that is already
// inside a transaction the body runs in a savepoint.
func NewGormTxRunner(db *gorm.DB, opts ...TxOption) TxRunner {
	r := &gormTxRunner{db: db, attempts: 1, backoff: defaultRetryBackoff}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if attempt == r.attempts || !transient(ctx, err) {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(r.backoff * time.Duration(attempt)):
		}
	}
	return err
}
