// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/itzhord/onecard-sub000/internal/config"
	"github.com/itzhord/onecard-sub000/internal/domain/ports/adapter"
	payAdapters "github.com/itzhord/onecard-sub000/internal/infra/adapters/payment"
	pg "github.com/itzhord/onecard-sub000/internal/infra/db/postgres"
	"github.com/itzhord/onecard-sub000/internal/infra/logging"
	"github.com/itzhord/onecard-sub000/internal/infra/metrics"
	red "github.com/itzhord/onecard-sub000/internal/infra/redis"
	"github.com/itzhord/onecard-sub000/internal/infra/sched"
	"github.com/itzhord/onecard-sub000/internal/infra/web"
	"github.com/itzhord/onecard-sub000/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop gateway fallback, console logs)")
	flag.Parse()

	// .env is optional; real deployments inject env vars directly
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.PoolSize))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis (per-reference verification lock) ----
	var locker usecase.Locker
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		defer redisClient.Close()
		locker = red.NewLocker(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; per-reference verification locking disabled")
	}

	// ---- Repositories ----
	payRepo := pg.NewPaymentRepo(pool)
	cardRepo := pg.NewCardRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)

	// ---- Gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Gateway.SecretKey != "" {
		gateway = payAdapters.NewPaystackGateway(cfg.Gateway.SecretKey, cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
	} else {
		gateway = payAdapters.NewNoopGateway()
		logger.Warn().Msg("no gateway secret key; using noop gateway")
	}
	logger.Info().Str("gateway", gateway.Name()).Msg("payment gateway configured")

	// ---- Use cases ----
	cardUC := usecase.NewCardProvisioner(cardRepo, logger)
	subUC := usecase.NewSubscriptionReconciler(subRepo, logger)
	verifyUC := usecase.NewVerificationUseCase(payRepo, cardUC, subUC, gateway, locker, logger)
	initiateUC := usecase.NewInitiationUseCase(payRepo, gateway, logger)

	// ---- Background reconciler ----
	reconciler := sched.NewPaymentReconciler(verifyUC, payRepo, cfg.Reconciler.Interval, cfg.Reconciler.StaleAfter, logger)
	go reconciler.Start(ctx)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret)
	server := web.NewServer(verifyUC, initiateUC, auth, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// ---- Graceful shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}
}
