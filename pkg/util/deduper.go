package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper is the idempotency ledger for delivery side effects. Each completed
// step is marked under dedup:<step>:<commentID>, so a redelivered message
// skips the sends that already went out and repeats only the ones that failed.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{
		rdb: rdb,
		ttl: ttl,
	}
}

// NewDeduperWithLogger creates a deduper with logger support
func NewDeduperWithLogger(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce claims a step for a comment. It returns true when the step has
// not run yet and false when it already completed (or is in flight on another
// worker). When redis is unreachable it returns true: duplicated notifications
// are the accepted cost of keeping at-least-once delivery alive.
func (d *Deduper) AcquireOnce(ctx context.Context, step string, commentID int64) bool {
	key := dedupKey(step, commentID)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("step", step),
				zap.Int64("comment_id", commentID),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped already-completed step",
			zap.String("step", step),
			zap.Int64("comment_id", commentID),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release drops the claim after a failed attempt so the queue's redelivery
// actually retries the step. A key that stays set means the step completed.
func (d *Deduper) Release(ctx context.Context, step string, commentID int64) {
	key := dedupKey(step, commentID)
	if err := d.rdb.Del(ctx, key).Err(); err != nil && d.logger != nil {
		d.logger.Warn("Failed to release dedup key",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
	}
}

func dedupKey(step string, commentID int64) string {
	return fmt.Sprintf("dedup:%s:%d", step, commentID)
}
