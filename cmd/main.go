package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"caregiver-compass/internal/ai"
	"caregiver-compass/internal/assistant"
	"caregiver-compass/internal/cache"
	"caregiver-compass/internal/classify"
	"caregiver-compass/internal/config"
	"caregiver-compass/internal/llm"
	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/prompt"
	"caregiver-compass/internal/retrieve"
	"caregiver-compass/internal/stats"
	"caregiver-compass/internal/store"
	"caregiver-compass/internal/telemetry"
	"caregiver-compass/middleware"
	"caregiver-compass/routes"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	// Initialize tracing and metrics
	shutdownTracer, err := telemetry.InitTracer("caregiver-compass")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracer()
	}

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
		metrics = nil
	}

	// Connect to MongoDB
	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	semanticStore := store.NewMongoStore(mongoClient, cfg.DBName, metrics)

	// Redis is optional: without it only memoization and rate limiting are
	// lost, the pipeline itself keeps working.
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, cache and rate limiting disabled", "error", err)
		rdb = nil
	}

	var answerCache *cache.AnswerCache
	if cfg.CacheEnabled && rdb != nil {
		answerCache = cache.NewAnswerCache(rdb, cfg.CacheTTL)
	}

	// Embeddings
	embedder, err := ai.NewEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}

	// Classifier tables
	tables, err := classify.LoadTables(cfg.ClassifierTables)
	if err != nil {
		log.Fatal("Failed to load classifier tables:", err)
	}
	classifier := classify.NewClassifier(tables, cfg.CategoryCutoff)

	retriever := retrieve.NewRetriever(embedder, semanticStore,
		retrieve.Weights{
			TrustAuthoritative: cfg.TrustWeightAuth,
			TrustCurated:       cfg.TrustWeightCur,
			TrustRaw:           cfg.TrustWeightRaw,
			RegionBoost:        cfg.RegionBoost,
			CategoryBonus:      cfg.CategoryBonus,
			EmergencyBoost:     cfg.EmergencyBoost,
		},
		retrieve.Options{
			PerCollectionK: cfg.PerCollectionK,
			MaxPassages:    cfg.MaxPassages,
			MaxPerSource:   cfg.MaxPerSource,
			EmbedTimeout:   cfg.EmbedTimeout,
			StoreTimeout:   cfg.StoreTimeout,
		})

	composer := prompt.NewComposer(cfg.DeclineThreshold)

	orchestrator := llm.NewOrchestrator(buildProviders(cfg, metrics), cfg.ProviderOrder, cfg.DefaultProvider, cfg.RetryBackoff)
	if len(orchestrator.Providers()) == 0 {
		log.Fatal("No model providers configured; set at least one provider API key")
	}
	logger.Info("Model providers configured", "providers", orchestrator.Providers())

	assistantSvc := assistant.New(classifier, retriever, composer, orchestrator, answerCache, metrics,
		assistant.Options{
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
			AdvancedTokens:  cfg.AdvancedTokens,
		})

	// Knowledge base stats snapshots
	reporter := stats.NewReporter(semanticStore, cfg.StatsInterval)
	if err := reporter.Start(); err != nil {
		logger.Warn("Stats reporter disabled", "error", err)
	}
	defer reporter.Stop()

	// Queue client for async ingestion endpoints
	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	if metrics != nil {
		router.Use(middleware.MetricsMiddleware(metrics))
	}
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitReqs, cfg.RateLimitWindow))
	}

	routes.SetupAssistantRoutes(router, routes.Deps{
		Assistant:   assistantSvc,
		Reporter:    reporter,
		QueueClient: queueClient,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Info("Server exited")
}

// buildProviders constructs one client per configured backend. A missing
// credential just leaves that backend out of the fallback chain.
func buildProviders(cfg *config.Config, metrics *telemetry.Metrics) []llm.Provider {
	var providers []llm.Provider

	if cfg.AnthropicAPIKey != "" {
		providers = append(providers,
			llm.NewClaudeProvider(cfg.AnthropicAPIKey, cfg.ClaudeAPIURL, cfg.ClaudeModel, cfg.ProviderTimeout))
	}
	if cfg.OpenAIAPIKey != "" {
		providers = append(providers,
			llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIAPIURL, cfg.OpenAIModel, cfg.ProviderTimeout))
	}
	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier, cfg.ProviderTimeout, metrics)
		if err != nil {
			logger.Warn("Gemini provider unavailable", "error", err)
		} else {
			providers = append(providers, gemini)
		}
	}
	if cfg.OllamaBaseURL != "" {
		providers = append(providers,
			llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaModel, cfg.ProviderTimeout))
	}

	return providers
}
