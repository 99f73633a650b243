package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoPolymarket/lottogate/internal/config"
	"github.com/GoPolymarket/lottogate/internal/events"
	"github.com/GoPolymarket/lottogate/internal/pkg/logger"
	"github.com/GoPolymarket/lottogate/internal/pkg/metrics"
	"github.com/GoPolymarket/lottogate/internal/repository"
	"github.com/GoPolymarket/lottogate/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// credit-worker consumes dealer_volume_changed and recomputes pending deductions
// when the server runs with recompute_mode=kafka.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("kafka.brokers is required for the credit worker")
	}

	db, err := repository.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	credit := service.NewCreditLedger(
		repository.NewRoundRepo(db),
		repository.NewWagerRepo(db),
		repository.NewCreditRepo(db),
		repository.NewMemberRepo(db),
	)

	reader := events.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
	defer reader.Close()

	// 指标
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle(cfg.Metrics.Path, promhttp.Handler())
			srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
			logger.Info("metrics listening", "port", cfg.Server.Port)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := &events.Consumer{
		Reader:     reader,
		Recomputer: credit,
		OnError: func(stage string) {
			metrics.Recomputes.WithLabelValues("event_" + stage).Inc()
		},
	}

	logger.Info("credit-worker started", "topic", cfg.Kafka.Topic, "group_id", cfg.Kafka.GroupID)
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("credit-worker stopped", "error", err)
	}
	logger.Info("credit-worker exiting")
}
