package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tarzihub/payment-service/internal/config"
	"github.com/tarzihub/payment-service/internal/events"
	"github.com/tarzihub/payment-service/internal/infrastructure/database"
	grpcServer "github.com/tarzihub/payment-service/internal/infrastructure/grpc"
	httpServer "github.com/tarzihub/payment-service/internal/infrastructure/http"
	"github.com/tarzihub/payment-service/internal/infrastructure/provider"
	"github.com/tarzihub/payment-service/internal/usecase"
	"github.com/tarzihub/payment-service/pkg/logger"
	"github.com/tarzihub/payment-service/pkg/messaging"
	"go.uber.org/zap"
)

const eventNotificationChannel = "payment-events"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.NewZapLogger(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		FilePath:    cfg.Log.FilePath,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, zapLogger); err != nil {
			zapLogger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations
	if err := database.Migrate(db, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Redis is optional; without it verification results are simply not cached
	var redisClient messaging.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = messaging.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zapLogger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	// Kafka is optional too; without brokers events are dropped
	publisher := events.NewNopPublisher()
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to create event publisher", zap.Error(err))
		}
	}
	if redisClient != nil {
		publisher = events.NewRedisBridge(publisher, redisClient, eventNotificationChannel, zapLogger)
	}
	defer publisher.Close()

	// Initialize repositories and providers
	repos := database.NewRepositories(db, redisClient, zapLogger)
	providers := provider.NewFactory(cfg, zapLogger)

	// Usecases, shared by the HTTP server and the webhook sweeper
	orderService := usecase.NewOrderService(repos.Order, publisher, zapLogger)
	paymentService := usecase.NewPaymentService(
		repos.Payment, repos.Order, repos.Cache, providers, publisher, zapLogger)
	refundService := usecase.NewRefundService(
		repos.Payment, repos.AuditLog, providers, publisher, zapLogger)

	// Initialize servers
	grpcSrv := grpcServer.NewServer(cfg, zapLogger)
	httpSrv := httpServer.NewServer(cfg, zapLogger, repos, orderService, paymentService, refundService)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	// Retry webhook events whose processing failed at delivery time
	sweeper := usecase.NewWebhookSweeper(repos.Webhook, paymentService, zapLogger)
	go sweeper.Run(sweepCtx)

	// Start servers
	go func() {
		if err := grpcSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start gRPC server", zap.Error(err))
		}
	}()

	go func() {
		if err := httpSrv.Start(); err != nil {
			zapLogger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zapLogger.Info("Shutting down servers...")
	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown HTTP server", zap.Error(err))
	}

	if err := grpcSrv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Failed to shutdown gRPC server", zap.Error(err))
	}

	zapLogger.Info("Servers shut down successfully")
}
