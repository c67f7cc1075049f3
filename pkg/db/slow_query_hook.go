package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/commentd/pkg/metrics"
)

const slowQueryThreshold = 100 * time.Millisecond

type traceCtxKey int

const (
	queryStartKey traceCtxKey = iota
	querySQLKey
)

// SlowQueryTracer logs and counts queries that exceed slowQueryThreshold.
type SlowQueryTracer struct {
	logger *zap.Logger
}

func NewSlowQueryTracer(logger *zap.Logger) *SlowQueryTracer {
	return &SlowQueryTracer{logger: logger}
}

func (t *SlowQueryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx = context.WithValue(ctx, queryStartKey, time.Now())
	ctx = context.WithValue(ctx, querySQLKey, data.SQL)
	return ctx
}

func (t *SlowQueryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	startTime, ok := ctx.Value(queryStartKey).(time.Time)
	if !ok {
		return
	}

	duration := time.Since(startTime)
	if duration <= slowQueryThreshold {
		return
	}

	// TraceQueryEndData carries no SQL, so it rides along in the context.
	sql, _ := ctx.Value(querySQLKey).(string)
	if sql == "" {
		sql = "unknown"
	}
	if len(sql) > 200 {
		sql = sql[:200] + "..."
	}

	t.logger.Warn("slow-query",
		zap.String("sql", sql),
		zap.Duration("took", duration),
		zap.String("command_tag", data.CommandTag.String()),
	)
	metrics.IncrementSlowQuery()
}
