package aggregates

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	repotest "github.com/yungbote/weighting-backend/internal/data/repos/testutil"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
)

func TestGormTxRunnerRetriesTransientFailures(t *testing.T) {
	db := repotest.DB(t)
	cases := []struct {
		name      string
		failWith  error
		failTimes int
		wantCalls int
		wantErr   bool
	}{
		{"serialization failure", &pgconn.PgError{Code: "40001"}, 1, 2, false},
		{"sqlite busy", errors.New("database is locked"), 2, 3, false},
		{"retries exhausted", &pgconn.PgError{Code: "40P01"}, 5, 3, true},
		{"not transient", InvariantError("stranded plan"), 1, 1, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewGormTxRunner(db, WithRetries(2), WithRetryBackoff(0))
			calls := 0
			err := r.InTx(context.Background(), func(dbc dbctx.Context) error {
				calls++
				if dbc.Tx == nil {
					t.Fatalf("body ran without a transaction")
				}
				if calls <= tc.failTimes {
					return tc.failWith
				}
				return nil
			})
			if calls != tc.wantCalls {
				t.Fatalf("calls: want=%d got=%d", tc.wantCalls, calls)
			}
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v wantErr=%t", err, tc.wantErr)
			}
		})
	}
}

func TestGormTxRunnerDoesNotRetryCancelled(t *testing.T) {
	r := NewGormTxRunner(repotest.DB(t), WithRetries(3), WithRetryBackoff(0))
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.InTx(ctx, func(dbctx.Context) error {
		calls++
		cancel()
		return &pgconn.PgError{Code: "40001"}
	})
	if err == nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}

func TestGormTxRunnerRequiresDB(t *testing.T) {
	err := NewGormTxRunner(nil).InTx(context.Background(), func(dbctx.Context) error { return nil })
	if err == nil {
		t.Fatalf("expected error for nil db")
	}
}
