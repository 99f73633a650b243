package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/lottogate/internal/config"
	"github.com/GoPolymarket/lottogate/internal/events"
	"github.com/GoPolymarket/lottogate/internal/handler"
	"github.com/GoPolymarket/lottogate/internal/middleware"
	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/GoPolymarket/lottogate/internal/repository"
	"github.com/GoPolymarket/lottogate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	// 2. Initialize Persistence
	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate DB: %v", err)
		}
	}
	logger.Info("✅ Connected to database", "driver", cfg.Database.Driver)

	rounds := repository.NewRoundRepo(db)
	wagers := repository.NewWagerRepo(db)
	limits := repository.NewLimitRepo(db)
	transfers := repository.NewTransferRepo(db)
	credits := repository.NewCreditRepo(db)
	members := repository.NewMemberRepo(db)

	// Idempotency (Redis > DB)
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	var idempotencyStore middleware.IdempotencyStore
	var redisClient *repository.RedisClient
	if cfg.Redis.Addr != "" {
		redisClient, err = repository.NewRedisClient(cfg.Redis)
		if err == nil {
			logger.Info("✅ Connected to Redis")
			ttl := time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second
			idempotencyStore = repository.NewRedisIdempotencyStore(redisClient, ttl)
		} else {
			logger.Error("⚠️ Failed to connect to Redis, idempotency falls back to DB", "error", err)
		}
	}
	if idempotencyStore == nil {
		dbStore, err := repository.NewDBIdempotencyStore(db)
		if err != nil {
			log.Fatalf("Failed to prepare idempotency table: %v", err)
		}
		idempotencyStore = dbStore
		go cleanupLoop(bgCtx, dbStore, cfg)
	}

	// 3. Initialize Core Services
	exposureSvc := service.NewExposureService(rounds, wagers, limits, transfers)
	creditLedger := service.NewCreditLedger(rounds, wagers, credits, members)

	var recomputer service.Recomputer = service.NewDirectRecomputer(creditLedger)
	var kafkaCloser func() error
	if cfg.Ledger.RecomputeMode == config.RecomputeKafka {
		writer := events.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		recomputer = events.NewPublisher(writer)
		kafkaCloser = writer.Close
		logger.Info("✅ Recompute requests go to Kafka", "topic", cfg.Kafka.Topic)
	}

	transferLedger := service.NewTransferLedger(rounds, wagers, transfers, exposureSvc, recomputer, cfg.Ledger.MirrorEnabled)

	// 4. Initialize Handlers
	handlers := handler.Handlers{
		Excess:   handler.NewExcessHandler(exposureSvc),
		Transfer: handler.NewTransferHandler(transferLedger),
		Credit:   handler.NewCreditHandler(creditLedger),
	}

	// 5. Setup Router
	r := gin.New()
	r.Use(gin.Recovery())

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()
		status := gin.H{"service": "lottogate", "database": "ok"}
		healthy := true
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status["database"] = "down"
			healthy = false
		}
		if redisClient != nil {
			status["redis"] = "ok"
			if err := redisClient.Ping(ctx); err != nil {
				status["redis"] = "down"
				healthy = false
			}
		}
		if !healthy {
			status["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["status"] = "ok"
		c.JSON(http.StatusOK, status)
	})

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API V1 Routes
	v1 := r.Group("/v1")
	v1.Use(middleware.ReadOnlyMiddleware(cfg.Server.ReadOnly, handler.CreditCheckRoute))
	v1.Use(middleware.ActorMiddleware(cfg.Auth.RequireDealer))
	v1.Use(middleware.RateLimitMiddleware(middleware.NewDealerLimiter(cfg.RateLimit.QPS, cfg.RateLimit.Burst)))
	v1.Use(middleware.IdempotencyMiddleware(idempotencyStore))
	handler.RegisterRoutes(v1, handlers, middleware.AdminMiddleware(cfg.Auth.AdminKey))

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("🚀 LottoGate started",
			"port", cfg.Server.Port,
			"read_only", cfg.Server.ReadOnly,
			"recompute_mode", cfg.Ledger.RecomputeMode,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server listen failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	stopBackground()
	if kafkaCloser != nil {
		_ = kafkaCloser()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	logger.Info("Server exiting")
}

func cleanupLoop(ctx context.Context, store *repository.DBIdempotencyStore, cfg *config.Config) {
	retention := time.Duration(cfg.Database.IdempotencyRetentionHours) * time.Hour
	interval := time.Duration(cfg.Database.CleanupIntervalMinutes) * time.Minute
	if retention <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Cleanup(ctx, retention)
			if err != nil {
				logger.Warn("idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("idempotency keys purged", "count", n)
			}
		}
	}
}
