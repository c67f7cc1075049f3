package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/commentd/internal/api"
	"github.com/commentd/internal/render"
	"github.com/commentd/internal/repository"
	"github.com/commentd/internal/service"
	"github.com/commentd/pkg/config"
	"github.com/commentd/pkg/db"
	"github.com/commentd/pkg/logger"
	"github.com/commentd/pkg/mq"
)

func main() {
	logger := logger.NewLogger()
	defer logger.Sync()

	logger.Info("Starting comment server...")

	// Load config
	cfg, err := config.Load(config.GetEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		logger.Fatal("Config load failed", zap.Error(err))
	}

	// Init DB
	dbConn, err := db.NewConnection(cfg.DB, logger)
	if err != nil {
		logger.Fatal("DB initialization failed", zap.Error(err))
	}
	defer dbConn.Close()

	if err := db.RunMigrations(cfg.DB, config.GetEnv("MIGRATIONS_PATH", "./migrations"), logger); err != nil {
		logger.Fatal("Migrations failed", zap.Error(err))
	}

	// Init RabbitMQ publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		logger.Fatal("failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Init repositories
	commentRepo := repository.NewCommentRepository(dbConn)
	failedEventRepo := repository.NewFailedEventRepository(dbConn)

	// Init services
	renderer := render.NewMarkdownRenderer()
	dispatcher := service.NewDispatcher(publisher, failedEventRepo, cfg.Site.BaseURL, logger)
	commentService := service.NewCommentService(commentRepo, renderer, dispatcher)
	treeService := service.NewTreeService(commentRepo)

	// Init handlers and router
	policy, err := api.NewCORSPolicy(cfg.CORS.AllowedOrigins)
	if err != nil {
		logger.Fatal("Invalid CORS configuration", zap.Error(err))
	}
	commentHandler := api.NewCommentHandler(commentService, logger)
	treeHandler := api.NewTreeHandler(treeService, logger)
	router := api.NewRouter(commentHandler, treeHandler, policy, dbConn, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router.Engine,
	}

	go func() {
		logger.Info("Server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
