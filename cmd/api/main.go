package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"job-marketplace-backend/config"
	_ "job-marketplace-backend/docs" // Important for Swagger
	v1 "job-marketplace-backend/internal/delivery/http/v1"
	"job-marketplace-backend/internal/repository/postgres"
	redisrepo "job-marketplace-backend/internal/repository/redis"
	"job-marketplace-backend/internal/scheduler"
	"job-marketplace-backend/internal/usecase"
	"job-marketplace-backend/pkg/auth"
	"job-marketplace-backend/pkg/database"
	"job-marketplace-backend/pkg/logger"
	"job-marketplace-backend/pkg/redis"
	"job-marketplace-backend/pkg/security"
	"job-marketplace-backend/pkg/validation"
)

// @title           Job Marketplace API
// @version         1.0
// @description     Job postings write service. Every mutation is published to the search indexer.
// @host            localhost:8080
// @BasePath        /v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.LogLevel)
	audit := security.InitSecurityLogger("job-write-service", security.Environment())
	defer audit.Sync()
	logger.Log.Info("Starting job write service", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Setup Database
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	// 4. Setup Event Channel
	rdb, err := redis.Open(redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
	if err != nil {
		logger.Log.Error("Invalid Redis configuration", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	if err := redis.HealthCheck(rdb)(ctx); err != nil {
		// Writes still commit; the outbox relay publishes once Redis is back.
		logger.Log.Warn("Redis unavailable at startup", "error", err)
	}

	channel, err := redisrepo.NewEventChannel(rdb, redisrepo.ChannelConfig{
		Stream:     cfg.EventStream,
		Partitions: cfg.EventPartitions,
	})
	if err != nil {
		logger.Log.Error("Invalid event channel configuration", "error", err)
		os.Exit(1)
	}

	// 5. Setup Repositories & UseCases
	jobRepo := postgres.NewJobRepository(dbPool)
	outboxRepo := postgres.NewOutboxRepository(dbPool)

	jobUC := usecase.NewJobUsecase(jobRepo, outboxRepo, channel, validation.New(), audit,
		usecase.WithWriteTimeout(cfg.WriteTimeout))
	relay := usecase.NewOutboxRelay(outboxRepo, channel, cfg.OutboxGracePeriod, cfg.OutboxRetention)
	healthUC := usecase.NewHealthUsecase(map[string]usecase.HealthChecker{
		"database": dbPool.Ping,
		"redis":    redis.HealthCheck(rdb),
	})

	// 6. Setup Outbox Relay
	sched := scheduler.New()
	err = sched.Add("outbox-relay", cfg.OutboxRelaySpec, true, func(ctx context.Context) error {
		_, err := relay.Run(ctx)
		return err
	})
	if err != nil {
		logger.Log.Error("Failed to schedule outbox relay", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	// 7. Setup Auth
	var jwks *auth.Provider
	if cfg.JWKSURL != "" {
		jwks = auth.NewProvider(cfg.JWKSURL)
	}

	// 8. Setup Router
	router := v1.NewRouter(v1.RouterDeps{
		JobUC:    jobUC,
		HealthUC: healthUC,
		Verifier: auth.NewVerifier(cfg.JWTSecret, jwks),
		Audit:    audit,
		Config:   cfg,
	})

	// 9. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Listen failed", "error", err)
			stop()
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}

	logger.Log.Info("Server exiting")
}
