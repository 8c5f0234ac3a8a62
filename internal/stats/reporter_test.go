package stats

import (
	"context"
	"testing"
	"time"

	"caregiver-compass/internal/store"
	"caregiver-compass/models"
)

func TestSnapshotCountsAllCollections(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore("a_coll", "b_coll")
	mem.Upsert(ctx, "a_coll", []models.Document{
		{ID: "1", Text: "x"},
		{ID: "2", Text: "y"},
	})
	mem.Upsert(ctx, "b_coll", []models.Document{
		{ID: "3", Text: "z"},
	})

	r := NewReporter(mem, time.Hour)
	snap, err := r.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	if snap.Total != 3 {
		t.Fatalf("Total = %d, want 3", snap.Total)
	}
	if snap.Collections["a_coll"] != 2 || snap.Collections["b_coll"] != 1 {
		t.Fatalf("Collections = %v", snap.Collections)
	}
	if snap.TakenAt.IsZero() {
		t.Error("TakenAt not set")
	}
}

func TestSnapshotEmptyStore(t *testing.T) {
	r := NewReporter(store.NewMemoryStore(), time.Hour)
	snap, err := r.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Total != 0 || len(snap.Collections) != 0 {
		t.Fatalf("snap = %+v, want empty", snap)
	}
}
