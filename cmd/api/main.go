package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"buildboard/internal/config"
	"buildboard/internal/handler"
	"buildboard/internal/httpserver"
	"buildboard/internal/notify"
	"buildboard/internal/queue"
	"buildboard/internal/repository"
	"buildboard/internal/service"
	"buildboard/pkg/db"
	"buildboard/pkg/logger"
	"buildboard/pkg/mq"
	pkgredis "buildboard/pkg/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting api...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// Redis (通知队列的生产端)
	rdb, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewRedis(rdb, time.Duration(cfg.Worker.BackoffBase), time.Duration(cfg.Worker.LeaseDuration), log)

	// MQ Publisher (域事件，拿不到连接时降级为只记日志)
	var sink notify.EventSink
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Warn("MQ publisher unavailable, domain events disabled", zap.Error(err))
	} else {
		defer publisher.Close()
		sink = publisher
	}

	dispatcher := notify.NewDispatcher(jobQueue, sink, log,
		notify.WithMaxAttempts(cfg.Worker.MaxAttempts))

	// Repositories
	userRepo := repository.NewUserRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn, log)
	bidRepo := repository.NewBidRepository(dbConn, log)
	reviewRepo := repository.NewReviewRepository(dbConn)
	paymentRepo := repository.NewPaymentRepository(dbConn)
	deliverableRepo := repository.NewDeliverableRepository(dbConn)

	// Services
	userSvc := service.NewUserService(userRepo, cfg.JWT.Secret, log)
	projectSvc := service.NewProjectService(projectRepo, bidRepo, userRepo, deliverableRepo, log)
	bidSvc := service.NewBidService(bidRepo, projectRepo, userRepo, log)
	reviewSvc := service.NewReviewService(reviewRepo, projectRepo, log)
	paymentSvc := service.NewPaymentService(paymentRepo, projectRepo, service.SimulatedGateway{}, log)

	router := httpserver.NewRouter(httpserver.Handlers{
		Users:    handler.NewUserHandler(userSvc, dispatcher, log),
		Projects: handler.NewProjectHandler(projectSvc, dispatcher, log),
		Bids:     handler.NewBidHandler(bidSvc, dispatcher, log),
		Reviews:  handler.NewReviewHandler(reviewSvc, log),
		Payments: handler.NewPaymentHandler(paymentSvc, dispatcher, log),
		Queue:    handler.NewQueueHandler(jobQueue, log),
	}, log, dbConn, cfg.JWT.Secret)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("api is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down api gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("api shutdown complete")
}
