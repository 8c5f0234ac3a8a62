package main

import (
	"context"
	"flag"
	"log"
	"time"

	"caregiver-compass/internal/ai"
	"caregiver-compass/internal/config"
	"caregiver-compass/internal/ingest"
	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/store"
)

// One-shot manifest ingestion, for initial loads and local development
// where running the queue worker is overkill.
func main() {
	manifestPath := flag.String("manifest", "configs/sources.yaml", "path to the ingestion manifest")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger.InitLogger(cfg)

	manifest, err := ingest.LoadManifest(*manifestPath)
	if err != nil {
		log.Fatal("Failed to load manifest:", err)
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	embedder, err := ai.NewEmbedder(cfg)
	if err != nil {
		log.Fatal("Failed to initialize embedder:", err)
	}

	chunker := ingest.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap, cfg.MinChunkSize)
	ingester := ingest.NewIngester(embedder, store.NewMongoStore(mongoClient, cfg.DBName, nil), chunker)

	total, err := ingester.IngestManifest(context.Background(), manifest)
	if err != nil {
		logger.Error("Manifest finished with errors", "documents", total, "error", err)
		return
	}
	logger.Info("Manifest ingested", "sources", len(manifest.Sources), "documents", total)
}
