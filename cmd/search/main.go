package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"job-marketplace-backend/config"
	_ "job-marketplace-backend/docs" // Important for Swagger
	"job-marketplace-backend/internal/delivery/consumer"
	"job-marketplace-backend/internal/delivery/http/middleware"
	v1 "job-marketplace-backend/internal/delivery/http/v1"
	"job-marketplace-backend/internal/repository/elastic"
	"job-marketplace-backend/internal/repository/postgres"
	redisrepo "job-marketplace-backend/internal/repository/redis"
	"job-marketplace-backend/internal/scheduler"
	"job-marketplace-backend/internal/usecase"
	"job-marketplace-backend/pkg/database"
	"job-marketplace-backend/pkg/logger"
	"job-marketplace-backend/pkg/redis"
	"job-marketplace-backend/pkg/security"
)

// @title           Job Marketplace Search API
// @version         1.0
// @description     Full-text search over job postings, kept in sync from the job event stream.
// @host            localhost:8081
// @BasePath        /v1
func main() {
	replay := flag.Int("replay-dead-letters", 0, "move up to N dead-lettered events back onto their stream and exit")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Setup Loggers
	logger.Init(cfg.LogLevel)
	audit := security.InitSecurityLogger("job-search-service", security.Environment())
	defer audit.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Setup Event Channel
	rdb, err := redis.NewClient(ctx, redis.Config{URL: cfg.RedisURL, Password: cfg.RedisPassword})
	if err != nil {
		logger.Log.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	channel, err := redisrepo.NewEventChannel(rdb, redisrepo.ChannelConfig{
		Stream:             cfg.EventStream,
		Group:              cfg.EventGroup,
		Consumer:           cfg.EventConsumer,
		Partitions:         cfg.EventPartitions,
		ConsumerPartitions: cfg.EventConsumerPartitions,
		MaxDeliveries:      cfg.EventMaxDeliveries,
		ClaimIdle:          cfg.EventClaimIdle,
		RetryBackoff:       cfg.EventRetryBackoff,
	})
	if err != nil {
		logger.Log.Error("Invalid event channel configuration", "error", err)
		os.Exit(1)
	}

	if *replay > 0 {
		moved, err := channel.ReplayDeadLetters(ctx, *replay)
		if err != nil {
			logger.Log.Error("Dead letter replay failed", "moved", moved, "error", err)
			os.Exit(1)
		}
		logger.Log.Info("Dead letters replayed", "moved", moved)
		return
	}

	// 4. Setup Search Index
	es, err := elastic.NewClient(cfg.ElasticsearchURL)
	if err != nil {
		logger.Log.Error("Failed to create elasticsearch client", "error", err)
		os.Exit(1)
	}
	if err := elastic.EnsureIndex(ctx, es, cfg.SearchIndex); err != nil {
		logger.Log.Error("Failed to prepare search index", "index", cfg.SearchIndex, "error", err)
		os.Exit(1)
	}
	index := elastic.NewSearchIndex(es, cfg.SearchIndex, cfg.SearchIDsPage)

	// 5. Setup Job Store (read-only, for reconciliation)
	dbPool, err := database.NewPostgresConnection(ctx, cfg.DBUrl)
	if err != nil {
		logger.Log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	jobRepo := postgres.NewJobRepository(dbPool)

	// 6. Setup UseCases
	indexerUC := usecase.NewIndexerUsecase(index)
	searchUC := usecase.NewSearchUsecase(index)
	reconcileUC := usecase.NewReconcileUsecase(jobRepo, index, cfg.ReconcileBatchSize)
	healthUC := usecase.NewHealthUsecase(map[string]usecase.HealthChecker{
		"database":      dbPool.Ping,
		"redis":         redis.HealthCheck(rdb),
		"elasticsearch": elastic.HealthCheck(es),
	})

	// 7. Start Indexer
	var wg sync.WaitGroup
	indexer := consumer.NewIndexerConsumer(channel, indexerUC)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := indexer.Run(ctx); err != nil {
			logger.Log.Error("Indexer consumer failed", "error", err)
			stop()
		}
	}()

	// 8. Setup Reconciliation Sweep
	sched := scheduler.New()
	err = sched.Add("reconcile", cfg.ReconcileSpec, cfg.ReconcileOnStartup, func(ctx context.Context) error {
		_, err := reconcileUC.Run(ctx)
		return err
	})
	if err != nil {
		logger.Log.Error("Failed to schedule reconciliation", "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	// 9. Setup Router
	limiter := middleware.NewRateLimiter(rdb, middleware.SearchRateLimitConfig(
		cfg.RateLimitSearchThreshold, time.Duration(cfg.RateLimitWindowSeconds)*time.Second), audit)
	router := v1.NewRouter(v1.RouterDeps{
		SearchUC:      searchUC,
		HealthUC:      healthUC,
		Audit:         audit,
		SearchLimiter: limiter,
		Config:        cfg,
	})

	// 10. Start Server
	srv := &http.Server{
		Addr:              ":" + cfg.SearchPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Log.Info("Starting search service", "port", cfg.SearchPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("Listen failed", "error", err)
			stop()
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	logger.Log.Info("Shutting down search service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", "error", err)
	}
	wg.Wait()

	logger.Log.Info("Search service exiting")
}
