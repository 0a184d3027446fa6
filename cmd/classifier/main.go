package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	app_service "wallet-persona-indexer/internal/application/service"
	domain_service "wallet-persona-indexer/internal/domain/service"
	"wallet-persona-indexer/internal/infrastructure/config"
	"wallet-persona-indexer/internal/infrastructure/database"
	"wallet-persona-indexer/internal/infrastructure/explorer"
	"wallet-persona-indexer/internal/infrastructure/logger"
	"wallet-persona-indexer/internal/infrastructure/messaging"
	"wallet-persona-indexer/internal/infrastructure/naming"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// Create FX application
	app := fx.New(
		// Provide dependencies
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.NATS),
		fx.Supply(&cfg.Neo4J),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		// Infrastructure providers
		fx.Provide(
			database.NewNeo4JClient,
			database.NewNeo4JLeaderboardRepository,
			func(cfg *config.Config, log *logger.Logger) domain_service.ActivitySource {
				return explorer.NewClient(&cfg.Explorer, log)
			},
			func(cfg *config.Config, log *logger.Logger) app_service.NameResolver {
				return naming.NewResolver(&cfg.Naming, log)
			},
			messaging.NewNATSConsumer,
		),

		// Domain services
		fx.Provide(
			func(cfg *config.Config, log *logger.Logger) *domain_service.ClassifierService {
				prices := domain_service.PriceTable{
					ETHUSD:      cfg.Pricing.ETHUSD,
					StableUSD:   cfg.Pricing.StableUSD,
					FallbackUSD: cfg.Pricing.FallbackUSD,
				}
				return domain_service.NewClassifierService(prices, log)
			},
		),

		// Application providers
		fx.Provide(
			app_service.NewClassificationAppService,
			app_service.NewLeaderboardAppService,
		),

		// Lifecycle hooks
		fx.Invoke(startClassifier),
		fx.Invoke(startHealthServer),

		// Configure logging
		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	// Start the application
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	// Stop the application
	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

// startClassifier starts the classification request consumer
func startClassifier(
	lifecycle fx.Lifecycle,
	consumer *messaging.NATSConsumer,
	classificationService *app_service.ClassificationAppService,
	log *zap.Logger,
	cfg *config.Config,
	neo4jClient *database.Neo4JClient,
) {
	// The consumer loop outlives OnStart, so it runs on its own context
	// canceled from OnStop rather than the start-timeout context.
	runCtx, stop := context.WithCancel(context.Background())

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting classification service...")

			// Connect to Neo4J first
			log.Info("Connecting to Neo4J database")
			if err := neo4jClient.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to Neo4J: %w", err)
			}
			log.Info("Successfully connected to Neo4J database")

			log.Info("NATS Configuration",
				zap.String("url", cfg.NATS.URL),
				zap.String("stream_name", cfg.NATS.StreamName),
				zap.String("subject_prefix", cfg.NATS.SubjectPrefix),
				zap.Bool("enabled", cfg.NATS.Enabled),
			)

			// Connect to NATS
			if err := consumer.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}

			// Start request processing
			go processRequests(runCtx, consumer, classificationService, log, cfg)

			log.Info("Classification service started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping classification service...")
			stop()
			// Close Neo4J connection
			if err := neo4jClient.Close(ctx); err != nil {
				log.Error("Failed to close Neo4J connection", zap.Error(err))
			}
			// Disconnect from NATS
			return consumer.Disconnect()
		},
	})
}

// startHealthServer starts the health and leaderboard read server
func startHealthServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	leaderboardService *app_service.LeaderboardAppService,
	logger *logger.Logger,
) {
	mux := http.NewServeMux()
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler: mux,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting health server...", zap.Int("port", cfg.App.HTTPPort))

			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"status":"ok"}`))
			})

			// Operational read of the persisted leaderboard.
			mux.HandleFunc("/leaderboard", func(w http.ResponseWriter, r *http.Request) {
				entries, err := leaderboardService.GetTopWallets(r.Context(), 0)
				if err != nil {
					logger.Error("Leaderboard read failed", zap.Error(err))
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"leaderboard unavailable"}`))
					return
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(entries)
			})

			// Start server in background
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("Health server error", zap.Error(err))
				}
			}()

			logger.Info("Health server started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping health server...")
			return server.Shutdown(ctx)
		},
	})
}

// processRequests drains the NATS request channel through a worker pool
func processRequests(
	ctx context.Context,
	consumer *messaging.NATSConsumer,
	classificationService *app_service.ClassificationAppService,
	logger *zap.Logger,
	cfg *config.Config,
) {
	msgChan := consumer.GetMessageChannel()
	batch := make([]string, 0, cfg.App.BatchSize)
	ticker := time.NewTicker(5 * time.Second) // Flush batch every 5 seconds
	defer ticker.Stop()

	jobChan := make(chan []string, cfg.App.WorkerPoolSize)
	var wg sync.WaitGroup

	// Start worker pool
	for i := 0; i < cfg.App.WorkerPoolSize; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			logger.Info("Starting classification worker", zap.Int("worker_id", workerID))

			for addresses := range jobChan {
				scores := classificationService.ClassifyBatch(ctx, addresses)
				logger.Info("Processed classification batch",
					zap.Int("worker_id", workerID),
					zap.Int("requested", len(addresses)),
					zap.Int("classified", len(scores)))
			}
		}(i)
	}

	flush := func() {
		if len(batch) == 0 {
			return
		}
		addresses := make([]string, len(batch))
		copy(addresses, batch)
		jobChan <- addresses
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			close(jobChan)
			wg.Wait()
			return

		case req := <-msgChan:
			if req == nil {
				// Channel closed, clean up
				flush()
				close(jobChan)
				wg.Wait()
				return
			}

			batch = append(batch, req.Address)
			if len(batch) >= cfg.App.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}
