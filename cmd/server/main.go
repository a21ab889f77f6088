package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fareanomaly-service/internal/infrastructure/config"
	"fareanomaly-service/internal/infrastructure/persistence"
	"fareanomaly-service/internal/interface/broadcast"
	"fareanomaly-service/internal/interface/httpapi"
	mongoRepo "fareanomaly-service/internal/interface/repository"
	"fareanomaly-service/internal/usecase"
	"fareanomaly-service/pkg/logger"
	"fareanomaly-service/pkg/metrics"
	"fareanomaly-service/pkg/ticket"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Create logger
	log := logger.NewLogger()
	log.Info("Starting Fare Anomaly Service")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up MongoDB connection
	log.Info("Connecting to MongoDB")
	mongoClient, db, err := persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB", "error", err)
	}

	// Set up Redis for the cooldown/dedupe markers
	log.Info("Connecting to Redis")
	redisClient, err := persistence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal("Failed to connect to Redis", "error", err)
	}

	// Static grammatical-case table for post copy
	cases, err := ticket.LoadCases(cfg.CasesFile)
	if err != nil {
		log.Fatal("Failed to load cases table", "file", cfg.CasesFile, "error", err)
	}

	m := metrics.NewMetrics("fareanomaly")

	// Set up repositories
	historyRepo := mongoRepo.NewMongoHistoryRepository(db)
	imageRepo := mongoRepo.NewMongoImageRepository(db)
	userRepo := mongoRepo.NewMongoUserRepository(db)
	markerStore := mongoRepo.NewRedisMarkerStore(redisClient)
	imageSource := mongoRepo.NewFileImageSource(cfg.ImagesDir)
	pricesData := mongoRepo.NewPricesDataClient(cfg.PricesDataDomain, log)
	publisher := mongoRepo.NewVKPublisher(cfg.VKGroupID, cfg.VKTokenPhotos, cfg.VKTokenStandalone, log)

	// Realtime fan-out hub
	hub := broadcast.NewHub(log)

	// Wire the pipeline
	lifecycle := usecase.NewLifecycle(historyRepo, imageRepo, hub, log)
	enricher := usecase.NewEnricher(pricesData, log)
	pipeline := usecase.NewRulePipeline(markerStore, imageRepo, pricesData, lifecycle, m, log, cfg.MaxDepartureDays, cfg.MaxPrice)
	orchestrator := usecase.NewOrchestrator(pricesData, publisher, markerStore, imageSource, lifecycle, m, log, cases, cfg.PostCooldownTTL, cfg.RouteDedupTTL)
	processor := usecase.NewProcessor(enricher, pipeline, orchestrator, lifecycle, m, log)

	// Sweep entries stuck in processing
	go func() {
		sweepTicker := time.NewTicker(cfg.SweepInterval)
		defer sweepTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Stuck entry sweep stopped")
				return
			case <-sweepTicker.C:
				fixed, err := historyRepo.FailStuck(ctx, cfg.StuckMaxAge)
				if err != nil {
					log.Error("Stuck entry sweep failed", "error", err)
					continue
				}
				if fixed > 0 {
					log.Warn("Stuck entries found and fixed", "count", fixed)
				}
			}
		}
	}()

	// Set up HTTP server
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	httpapi.NewHandler(historyRepo, imageRepo, userRepo, log).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})
	mux.HandleFunc("/submit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		raw := strings.TrimSpace(string(body))
		if raw == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// Entries are processed concurrently; the marker store keeps
		// posting serialized across them
		go func() {
			if err := processor.Submit(context.Background(), raw); err != nil {
				log.Error("Ticket processing finished with error", "error", err)
			}
		}()

		w.WriteHeader(http.StatusAccepted)
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	if err := redisClient.Close(); err != nil {
		log.Error("Redis close error", "error", err)
	}

	// Disconnect from MongoDB
	if err := mongoClient.Disconnect(context.Background()); err != nil {
		log.Error("MongoDB disconnect error", "error", err)
	}

	log.Info("Fare Anomaly Service stopped")
}
