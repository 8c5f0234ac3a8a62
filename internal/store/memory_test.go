package store

import (
	"context"
	"errors"
	"testing"

	"caregiver-compass/models"
)

func memDoc(id string, vector []float32) models.Document {
	return models.Document{
		ID:     id,
		Text:   "text " + id,
		Vector: vector,
		Metadata: models.DocumentMetadata{
			SourceName: "test source",
			TrustTier:  models.TierAuthoritative,
		},
	}
}

func TestMemoryStoreSearchOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore("kb")

	m.Upsert(ctx, "kb", []models.Document{
		memDoc("far", []float32{0, 1}),
		memDoc("near", []float32{1, 0}),
		memDoc("mid", []float32{1, 1}),
	})

	hits, err := m.Search(ctx, "kb", []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	if hits[0].Document.ID != "near" || hits[2].Document.ID != "far" {
		t.Fatalf("order = %s,%s,%s", hits[0].Document.ID, hits[1].Document.ID, hits[2].Document.ID)
	}
	if hits[0].Distance >= hits[1].Distance || hits[1].Distance >= hits[2].Distance {
		t.Fatal("distances not ascending")
	}
}

func TestMemoryStoreSearchTruncatesToK(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore("kb")
	m.Upsert(ctx, "kb", []models.Document{
		memDoc("a", []float32{1, 0}),
		memDoc("b", []float32{0, 1}),
		memDoc("c", []float32{1, 1}),
	})

	hits, err := m.Search(ctx, "kb", []float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
}

func TestMemoryStoreUnknownCollection(t *testing.T) {
	m := NewMemoryStore("kb")

	if _, err := m.Search(context.Background(), "missing", []float32{1}, 3); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("Search err = %v, want ErrCollectionNotFound", err)
	}
	if err := m.Reset(context.Background(), "missing"); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("Reset err = %v, want ErrCollectionNotFound", err)
	}
	if _, err := m.Count(context.Background(), "missing"); !errors.Is(err, ErrCollectionNotFound) {
		t.Fatalf("Count err = %v, want ErrCollectionNotFound", err)
	}
}

func TestMemoryStoreUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	m.Upsert(ctx, "kb", []models.Document{memDoc("a", []float32{1, 0})})
	updated := memDoc("a", []float32{0, 1})
	updated.Text = "replacement"
	m.Upsert(ctx, "kb", []models.Document{updated})

	count, err := m.Count(ctx, "kb")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d after re-upsert, want 1", count)
	}

	hits, _ := m.Search(ctx, "kb", []float32{0, 1}, 1)
	if hits[0].Document.Text != "replacement" {
		t.Fatalf("document not replaced: %q", hits[0].Document.Text)
	}
}

func TestMemoryStoreResetAndCollections(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore("b_coll", "a_coll")

	m.Upsert(ctx, "a_coll", []models.Document{memDoc("a", []float32{1})})

	names, err := m.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections: %v", err)
	}
	if len(names) != 2 || names[0] != "a_coll" || names[1] != "b_coll" {
		t.Fatalf("Collections = %v, want sorted [a_coll b_coll]", names)
	}

	if err := m.Reset(ctx, "a_coll"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	count, _ := m.Count(ctx, "a_coll")
	if count != 0 {
		t.Fatalf("count after reset = %d", count)
	}
	// The collection itself survives a reset.
	names, _ = m.Collections(ctx)
	if len(names) != 2 {
		t.Fatalf("reset removed the collection: %v", names)
	}
}
