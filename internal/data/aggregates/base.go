package aggregates

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/weighting-backend/internal/domain/aggregates"
	"github.com/yungbote/weighting-backend/internal/observability"
	"github.com/yungbote/weighting-backend/internal/platform/ctxutil"
	"github.com/yungbote/weighting-backend/internal/platform/dbctx"
	"github.com/yungbote/weighting-backend/internal/platform/logger"
)

const tracerName = "weighting/aggregates"

type BaseDeps struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Runner  TxRunner
	Hooks   Hooks
	Metrics *observability.Metrics
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = NewMetricsHooks(d.Metrics)
	}
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	return d
}

func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	ctx, span := observability.Tracer(tracerName).Start(ctx, op, trace.WithAttributes(spanAttributes(ctx, op)...))
	defer span.End()

	err := deps.Runner.InTx(ctx, fn)
	mapped := MapError(op, err)
	observe(deps, op, mapped, start)
	finishSpan(span, mapped)
	return mapped
}

// executeRead runs fn outside a transaction. Reads share the write path's
// error mapping and hooks so callers see one error vocabulary.
func executeRead(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	start := time.Now()
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.read"
	}
	ctx, span := observability.Tracer(tracerName).Start(ctx, op, trace.WithAttributes(spanAttributes(ctx, op)...))
	defer span.End()

	var err error
	if fn != nil {
		err = fn(dbctx.Context{Ctx: ctx, Tx: deps.DB})
	}
	mapped := MapError(op, err)
	observe(deps, op, mapped, start)
	finishSpan(span, mapped)
	return mapped
}

func observe(deps BaseDeps, op string, mapped error, start time.Time) {
	status := "success"
	if mapped != nil {
		status = aggregateErrorStatus(mapped)
		if errors.Is(mapped, domainagg.ErrConflict) {
			deps.Hooks.IncConflict(op)
		}
		if errors.Is(mapped, domainagg.ErrRetryable) {
			deps.Hooks.IncRetry(op)
		}
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))
}

func spanAttributes(ctx context.Context, op string) []attribute.KeyValue {
	var out []attribute.KeyValue
	if c, ok := domainagg.ContractFor(op); ok {
		out = append(out, attribute.String("aggregate.name", c.Name))
	}
	if rd := ctxutil.GetRunData(ctx); rd != nil {
		out = append(out,
			attribute.String("weighting.run_id", rd.RunID),
			attribute.String("weighting.command", rd.Command),
		)
	}
	return out
}

func finishSpan(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.SetAttributes(attribute.String("aggregate.error_code", string(domainagg.CodeOf(err))))
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := strings.TrimSpace(string(domainagg.CodeOf(err)))
	if code == "" {
		code = strings.TrimSpace(string(domainagg.CodeOf(MapError("aggregate.status", err))))
	}
	if code == "" {
		return "failure"
	}
	return code
}
