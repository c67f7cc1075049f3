package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/commentd/internal/repository"
	"github.com/commentd/pkg/config"
	"github.com/commentd/pkg/db"
	"github.com/commentd/pkg/logger"
	"github.com/commentd/pkg/mq"
)

// Events whose enqueue failed this many times stay parked for inspection.
const maxAttempts = 3

const batchSize = 100

// Requeue replays notification jobs that could not be enqueued when their
// comment was created. Run it once the broker is reachable again, from cron or
// by hand.
func main() {
	logger := logger.NewLogger()
	defer logger.Sync()

	cfg, err := config.Load(config.GetEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	repo := repository.NewFailedEventRepository(dbConn)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	events, err := repo.GetPending(ctx, batchSize, maxAttempts)
	if err != nil {
		logger.Fatal("failed to load pending events", zap.Error(err))
	}
	if len(events) == 0 {
		logger.Info("No pending failed events")
		return
	}

	var requeued, stillPending, exhausted int
	for _, ev := range events {
		if err := publisher.Publish(ev.RoutingKey, ev.Payload); err != nil {
			logger.Warn("Republish failed",
				zap.Int64("event_id", ev.ID),
				zap.Int64("comment_id", ev.CommentID),
				zap.String("channel", ev.Channel),
				zap.Int("retry_count", ev.RetryCount),
				zap.Error(err),
			)
			if ev.RetryCount+1 >= maxAttempts {
				if err := repo.MarkFailed(ctx, ev.ID); err != nil {
					logger.Error("failed to mark event failed", zap.Int64("event_id", ev.ID), zap.Error(err))
				}
				exhausted++
			} else {
				if err := repo.BumpRetry(ctx, ev.ID); err != nil {
					logger.Error("failed to bump retry count", zap.Int64("event_id", ev.ID), zap.Error(err))
				}
				stillPending++
			}
			continue
		}

		if err := repo.MarkRetried(ctx, ev.ID); err != nil {
			logger.Error("failed to mark event retried", zap.Int64("event_id", ev.ID), zap.Error(err))
		}
		requeued++
	}

	logger.Info("Requeue pass complete",
		zap.Int("requeued", requeued),
		zap.Int("still_pending", stillPending),
		zap.Int("exhausted", exhausted),
	)
}
