package stats

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/store"
)

// Snapshot is one point-in-time view of the knowledge base.
type Snapshot struct {
	TakenAt     time.Time        `json:"taken_at"`
	Collections map[string]int64 `json:"collections"`
	Total       int64            `json:"total"`
}

// Reporter periodically snapshots per-collection document counts so an
// empty or shrinking knowledge base shows up in the logs before users
// notice unsourced answers.
type Reporter struct {
	store     store.SemanticReader
	scheduler *gocron.Scheduler
	interval  time.Duration
}

func NewReporter(st store.SemanticReader, interval time.Duration) *Reporter {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &Reporter{store: st, scheduler: s, interval: interval}
}

// Start schedules the snapshot job and runs the scheduler in the
// background.
func (r *Reporter) Start() error {
	_, err := r.scheduler.Every(r.interval).Tag("kb-stats").Do(func() {
		snap, err := r.Snapshot(context.Background())
		if err != nil {
			logger.Warn("Knowledge base snapshot failed", "error", err)
			return
		}
		logger.Info("Knowledge base snapshot",
			"total_documents", snap.Total,
			"collections", len(snap.Collections))
		if snap.Total == 0 {
			logger.Warn("Knowledge base is empty, answers will be unsourced")
		}
	})
	if err != nil {
		return err
	}

	r.scheduler.StartAsync()
	return nil
}

func (r *Reporter) Stop() {
	r.scheduler.Stop()
}

// Snapshot counts every collection now.
func (r *Reporter) Snapshot(ctx context.Context) (Snapshot, error) {
	names, err := r.store.Collections(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		TakenAt:     time.Now().UTC(),
		Collections: make(map[string]int64, len(names)),
	}
	for _, name := range names {
		n, err := r.store.Count(ctx, name)
		if err != nil {
			logger.Warn("Collection count failed", "collection", name, "error", err)
			continue
		}
		snap.Collections[name] = n
		snap.Total += n
	}

	return snap, nil
}
