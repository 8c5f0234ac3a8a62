package main

import (
	"context"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"caregiver-compass/internal/ai"
	"caregiver-compass/internal/config"
	"caregiver-compass/internal/ingest"
	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/queue"
	"caregiver-compass/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

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

	semanticStore := store.NewMongoStore(mongoClient, cfg.DBName, nil)

	// Embeddings: ingestion must use the same backend as query time.
	embedder, err := ai.NewEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}

	chunker := ingest.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
	ingester := ingest.NewIngester(embedder, semanticStore, chunker)

	// Redis options for Asynq
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"ingest":  6,
				"default": 3,
				"low":     1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
		},
	)

	// Create task processor
	processor := queue.NewTaskProcessor(ingester, semanticStore)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskIngestSource, processor.ProcessIngestSource)
	mux.HandleFunc(queue.TaskResetCollection, processor.ProcessResetCollection)

	logger.Info("Starting ingestion worker", "redis", redisOpt.Addr, "concurrency", 5)

	// Start the server
	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}
