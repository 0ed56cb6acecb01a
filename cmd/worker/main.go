package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"buildboard/internal/config"
	"buildboard/internal/mailer"
	"buildboard/internal/notify"
	"buildboard/internal/queue"
	"buildboard/internal/repository"
	"buildboard/internal/worker"
	"buildboard/pkg/circuitbreaker"
	"buildboard/pkg/db"
	"buildboard/pkg/logger"
	pkgredis "buildboard/pkg/redis"
	"buildboard/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting worker...",
		zap.String("redis_addr", cfg.Redis.Addr),
		zap.String("smtp_host", cfg.SMTP.Host),
		zap.Int("concurrency", cfg.Worker.Concurrency),
	)

	// Redis (队列 + 去重)
	rdb, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewRedis(rdb, time.Duration(cfg.Worker.BackoffBase), time.Duration(cfg.Worker.LeaseDuration), log)
	dedup := util.NewDeduper(rdb, 24*time.Hour, log)

	// DB (投递流水)
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	deliveryLog := repository.NewNotificationLogRepository(dbConn, log)

	// SMTP，包一层熔断：邮件服务挂掉时快速失败，靠队列退避重试
	smtp := mailer.NewSMTP(cfg.SMTP, log)
	guarded := mailer.NewGuarded(smtp, circuitbreaker.New(circuitbreaker.DefaultConfig()))

	emailHandler := notify.NewEmailHandler(guarded, dedup, deliveryLog, log)

	pool := worker.NewPool(jobQueue, emailHandler, log,
		worker.WithConcurrency(cfg.Worker.Concurrency),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Run(ctx); err != nil {
		log.Fatal("Failed to start worker pool", zap.Error(err))
	}

	// Metrics + health endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.Worker.MetricsPort,
		Handler: mux,
	}
	go func() {
		log.Info("Metrics server starting", zap.String("port", cfg.Worker.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Metrics server failed", zap.Error(err))
		}
	}()

	log.Info("worker is fully initialized and running")

	// Graceful shutdown: 停止出队，给在途任务一个宽限期
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker gracefully...")

	cancel()
	pool.Shutdown(30 * time.Second)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server shutdown error", zap.Error(err))
	}

	log.Info("worker shutdown complete")
}
