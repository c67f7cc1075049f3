package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/commentd/internal/mqhandler"
	"github.com/commentd/internal/service"
	"github.com/commentd/pkg/config"
	"github.com/commentd/pkg/logger"
	"github.com/commentd/pkg/mq"
	redisclient "github.com/commentd/pkg/redis"
	"github.com/commentd/pkg/util"
)

func main() {
	logger := logger.NewLogger()
	defer logger.Sync()

	logger.Info("Starting delivery worker...")

	// Load config
	cfg, err := config.Load(config.GetEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// Init Redis delivery ledger
	rdb := redisclient.NewRedisClient(cfg.Redis)
	defer rdb.Close()

	deduper := util.NewDeduperWithLogger(rdb, time.Hour, logger)

	// Publisher carries permanent failures to the DLQ
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Provider clients
	imClient := service.NewIMClient(cfg.IM)
	emailClient := service.NewEmailClient(cfg.Email)

	// Handlers
	imHandler := mqhandler.NewCommentCreatedIMHandler(imClient, publisher, deduper, logger)
	emailHandler := mqhandler.NewEmailNotificationHandler(emailClient, publisher, deduper, logger)

	opts := mq.Options{
		Prefetch:      cfg.MQ.Prefetch,
		Workers:       cfg.MQ.Workers,
		HandleTimeout: time.Duration(cfg.MQ.ConsumeTimeout) * time.Second,
	}

	// (1) Consumer for comment.created (IM channel)
	imConsumer, err := mq.NewConsumer(cfg.MQ.URL, mq.RoutingKeyCommentCreated, opts, logger)
	if err != nil {
		logger.Fatal("failed to init IM consumer", zap.Error(err))
	}
	imConsumer.SetHandler(imHandler.Handle)

	// (2) Consumer for notification.email
	emailConsumer, err := mq.NewConsumer(cfg.MQ.URL, mq.RoutingKeyNotificationEmail, opts, logger)
	if err != nil {
		logger.Fatal("failed to init email consumer", zap.Error(err))
	}
	emailConsumer.SetHandler(emailHandler.Handle)

	var g errgroup.Group
	g.Go(imConsumer.StartConsuming)
	g.Go(emailConsumer.StartConsuming)

	logger.Info("All consumers started, worker is ready to process messages")

	// Graceful shutdown: closing the consumers ends their delivery streams,
	// StartConsuming drains in-flight messages and returns.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	imConsumer.Close()
	emailConsumer.Close()

	if err := g.Wait(); err != nil {
		logger.Error("Consumer stopped with error", zap.Error(err))
	}

	logger.Info("Worker shutdown complete")
}
