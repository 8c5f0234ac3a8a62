package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"caregiver-compass/internal/ingest"
	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/store"
)

const (
	TaskIngestSource    = "ingest:source"
	TaskResetCollection = "ingest:reset"
)

type ResetCollectionPayload struct {
	Collection string `json:"collection"`
}

// Task creators
func NewIngestSourceTask(spec ingest.SourceSpec) (*asynq.Task, error) {
	payload, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestSource,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(10*time.Minute),
		asynq.Queue("ingest"),
	), nil
}

func NewResetCollectionTask(collection string) (*asynq.Task, error) {
	payload, err := json.Marshal(ResetCollectionPayload{Collection: collection})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskResetCollection,
		payload,
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Minute),
		asynq.Queue("ingest"),
	), nil
}

// TaskProcessor handles queued ingestion work.
type TaskProcessor struct {
	ingester *ingest.Ingester
	store    store.SemanticWriter
}

func NewTaskProcessor(ingester *ingest.Ingester, st store.SemanticWriter) *TaskProcessor {
	return &TaskProcessor{ingester: ingester, store: st}
}

func (p *TaskProcessor) ProcessIngestSource(ctx context.Context, t *asynq.Task) error {
	var spec ingest.SourceSpec
	if err := json.Unmarshal(t.Payload(), &spec); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	logger.Info("Processing source ingestion", "source", spec.SourceName, "collection", spec.Collection)

	n, err := p.ingester.IngestSource(ctx, spec)
	if err != nil {
		return err // Will retry
	}

	logger.Info("Source ingestion complete", "source", spec.SourceName, "documents", n)
	return nil
}

func (p *TaskProcessor) ProcessResetCollection(ctx context.Context, t *asynq.Task) error {
	var payload ResetCollectionPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	if err := p.store.Reset(ctx, payload.Collection); err != nil {
		if err == store.ErrCollectionNotFound {
			logger.Warn("Reset requested for unknown collection", "collection", payload.Collection)
			return asynq.SkipRetry
		}
		return err
	}

	logger.Info("Collection reset", "collection", payload.Collection)
	return nil
}
