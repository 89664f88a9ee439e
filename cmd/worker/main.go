package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smartinv/fulfillment/internal/adapter/blob"
	"github.com/smartinv/fulfillment/internal/adapter/handler"
	"github.com/smartinv/fulfillment/internal/adapter/queue"
	"github.com/smartinv/fulfillment/internal/adapter/storage"
	"github.com/smartinv/fulfillment/internal/config"
	"github.com/smartinv/fulfillment/internal/core/service"
	"github.com/smartinv/fulfillment/internal/invoice"
	"github.com/smartinv/fulfillment/internal/metrics"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal("failed to open mysql", zap.Error(err))
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("failed to ping mysql", zap.Error(err))
	}
	logger.Info("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("failed to connect redis", zap.Error(err))
	}
	logger.Info("connected to redis")

	// Object store
	blobStore, err := blob.NewMinioStore(ctx,
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
		cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		logger.Fatal("failed to init object store", zap.Error(err))
	}
	logger.Info("connected to object store", zap.String("bucket", cfg.MinioBucket))

	// Adapters
	ledger := storage.NewMySQLAdapter(db)
	dedup := storage.NewRedisAdapter(rdb)
	publisher := queue.NewKafkaPublisher(cfg.KafkaBrokers)
	ordersConsumer := queue.NewKafkaConsumer(cfg.KafkaBrokers, cfg.OrdersTopic, cfg.ConsumerGroup)
	confirmConsumer := queue.NewKafkaConsumer(cfg.KafkaBrokers, cfg.ConfirmationsTopic, cfg.ConsumerGroup)

	stats := metrics.NewRegistry()

	// Services
	reservationSvc := service.NewReservationService(ledger, dedup, cfg.ConfirmationsTopic, logger, stats)
	confirmationSvc := service.NewConfirmationService(ledger, dedup, invoice.NewPDFRenderer(), blobStore, logger, stats)
	relay := service.NewOutboxRelay(ledger, publisher, cfg.OutboxInterval, cfg.OutboxBatchSize, logger, stats)

	// Consumer runners
	reservationRunner := handler.NewRunner("reservation",
		ordersConsumer,
		handler.NewReservationHandler(reservationSvc, publisher, cfg.DeadLetterTopic, logger, stats),
		logger, stats)
	confirmationRunner := handler.NewRunner("confirmation",
		confirmConsumer,
		handler.NewConfirmationHandler(confirmationSvc, publisher, cfg.DeadLetterTopic, logger, stats),
		logger, stats)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		reservationRunner.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		confirmationRunner.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		relay.Run(ctx)
	}()

	// Metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", stats.Handler())
	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down...")
	cancel()
	wg.Wait()
	logger.Info("consumers stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsServer.Shutdown(shutdownCtx)

	ordersConsumer.Close()
	confirmConsumer.Close()
	publisher.Close()
	rdb.Close()
	db.Close()
	logger.Info("connections closed")
}
