package retrieve

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"caregiver-compass/internal/store"
	"caregiver-compass/models"
)

// fixedEmbedder returns the same vector for every input, so distances in
// tests are controlled entirely through the stored document vectors.
type fixedEmbedder struct {
	vector []float32
	err    error
}

func (f *fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fixedEmbedder) Dimension() int { return len(f.vector) }

// flakyStore fails Search for one named collection and delegates the rest.
type flakyStore struct {
	store.SemanticStore
	failing string
}

func (f *flakyStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]store.Hit, error) {
	if collection == f.failing {
		return nil, store.ErrStoreUnavailable
	}
	return f.SemanticStore.Search(ctx, collection, vector, k)
}

func doc(id, source string, tier models.TrustTier, category string, region bool, vector []float32) models.Document {
	return models.Document{
		ID:     id,
		Text:   "passage " + id,
		Vector: vector,
		Metadata: models.DocumentMetadata{
			SourceName:     source,
			TrustTier:      tier,
			Category:       category,
			RegionRelevant: region,
		},
	}
}

func TestRetrieveRanksByScore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()

	// Identical vectors keep distance at zero for every document, so the
	// ranking is decided purely by trust, region and category signals.
	v := []float32{1, 0, 0}
	mem.Upsert(ctx, models.CollectionMedicalAuthoritative, []models.Document{
		doc("auth-1", "NIV Handbook", models.TierAuthoritative, "respiratory", false, v),
	})
	mem.Upsert(ctx, models.CollectionCommunityQA, []models.Document{
		doc("qa-1", "Forum QA", models.TierCuratedCommunity, "respiratory", false, v),
	})
	mem.Upsert(ctx, models.CollectionCommunityExperiences, []models.Document{
		doc("exp-1", "WhatsApp Group", models.TierRawCommunity, "daily_care", false, v),
	})

	r := NewRetriever(&fixedEmbedder{vector: v}, mem, DefaultWeights(), DefaultOptions())

	got, degraded, err := r.Retrieve(ctx, models.ClassifiedQuery{
		NormalizedText: "bipap warning signs",
		Category:       "respiratory",
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if degraded {
		t.Fatal("unexpected degraded flag")
	}
	if len(got) != 3 {
		t.Fatalf("got %d passages, want 3", len(got))
	}

	wantOrder := []string{"auth-1", "qa-1", "exp-1"}
	for i, want := range wantOrder {
		if got[i].Document.ID != want {
			t.Errorf("rank %d = %s, want %s", i+1, got[i].Document.ID, want)
		}
		if got[i].Rank != i+1 {
			t.Errorf("passage %s has Rank %d, want %d", got[i].Document.ID, got[i].Rank, i+1)
		}
	}
}

func TestRetrieveDeterministic(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	v := []float32{0, 1, 0}

	// Same score, same tier, same distance: only the ID tie-break separates
	// these, and the order must hold across repeated runs.
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("tie-%d", i)
		mem.Upsert(ctx, models.CollectionCommunityQA, []models.Document{
			doc(id, fmt.Sprintf("source-%d", i), models.TierCuratedCommunity, "", false, v),
		})
	}

	r := NewRetriever(&fixedEmbedder{vector: v}, mem, DefaultWeights(), DefaultOptions())
	q := models.ClassifiedQuery{NormalizedText: "anything"}

	first, _, err := r.Retrieve(ctx, q)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	for run := 0; run < 5; run++ {
		again, _, err := r.Retrieve(ctx, q)
		if err != nil {
			t.Fatalf("Retrieve: %v", err)
		}
		if !reflect.DeepEqual(ids(first), ids(again)) {
			t.Fatalf("order changed between runs: %v vs %v", ids(first), ids(again))
		}
	}
}

func TestSourceDiversityCap(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	v := []float32{1, 0, 0}

	// One dominant source plus two others. With MaxPerSource 2 the dominant
	// source must not exceed two slots in the final five.
	for i := 0; i < 4; i++ {
		mem.Upsert(ctx, models.CollectionMedicalAuthoritative, []models.Document{
			doc(fmt.Sprintf("dom-%d", i), "Dominant Source", models.TierAuthoritative, "", false, v),
		})
	}
	mem.Upsert(ctx, models.CollectionCommunityQA, []models.Document{
		doc("qa-1", "Forum QA", models.TierCuratedCommunity, "", false, v),
		doc("qa-2", "Forum QA", models.TierCuratedCommunity, "", false, v),
	})
	mem.Upsert(ctx, models.CollectionCommunityExperiences, []models.Document{
		doc("exp-1", "WhatsApp Group", models.TierRawCommunity, "", false, v),
	})

	r := NewRetriever(&fixedEmbedder{vector: v}, mem, DefaultWeights(), DefaultOptions())
	got, _, err := r.Retrieve(ctx, models.ClassifiedQuery{NormalizedText: "q"})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("got %d passages, want 5", len(got))
	}

	perSource := make(map[string]int)
	for _, p := range got {
		perSource[p.Document.Metadata.SourceName]++
	}
	for source, n := range perSource {
		if n > 2 {
			t.Errorf("source %q contributed %d passages, cap is 2", source, n)
		}
	}
}

func TestDiversityBackfillWhenSourcesScarce(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	v := []float32{1, 0, 0}

	// Only one source exists. The cap would leave the window underfilled, so
	// backfill must relax it rather than return fewer passages.
	for i := 0; i < 5; i++ {
		mem.Upsert(ctx, models.CollectionMedicalAuthoritative, []models.Document{
			doc(fmt.Sprintf("solo-%d", i), "Only Source", models.TierAuthoritative, "", false, v),
		})
	}

	r := NewRetriever(&fixedEmbedder{vector: v}, mem, DefaultWeights(),
		Options{PerCollectionK: 5, MaxPassages: 4, MaxPerSource: 2})
	got, _, err := r.Retrieve(ctx, models.ClassifiedQuery{NormalizedText: "q"})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d passages, want 4 via backfill", len(got))
	}
}

func TestEmergencyBoostPrefersProtocols(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	v := []float32{1, 0, 0}

	mem.Upsert(ctx, models.CollectionMedicalAuthoritative, []models.Document{
		doc("auth-1", "NIV Handbook", models.TierAuthoritative, "respiratory", false, v),
	})
	mem.Upsert(ctx, models.CollectionEmergencyProtocols, []models.Document{
		doc("emer-1", "Emergency Protocols", models.TierAuthoritative, "emergency_preparedness", false, v),
	})

	r := NewRetriever(&fixedEmbedder{vector: v}, mem, DefaultWeights(), DefaultOptions())

	got, _, err := r.Retrieve(ctx, models.ClassifiedQuery{
		NormalizedText: "cannot breathe",
		IsEmergency:    true,
		Category:       "respiratory",
	})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got[0].Document.ID != "emer-1" {
		t.Fatalf("top passage is %s, want emergency protocol first for emergency query", got[0].Document.ID)
	}
}

func TestRetrieveEmptyStore(t *testing.T) {
	r := NewRetriever(&fixedEmbedder{vector: []float32{1}}, store.NewMemoryStore(), DefaultWeights(), DefaultOptions())

	got, degraded, err := r.Retrieve(context.Background(), models.ClassifiedQuery{NormalizedText: "q"})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if degraded {
		t.Fatal("empty store should not be degraded")
	}
	if len(got) != 0 {
		t.Fatalf("got %d passages from empty store", len(got))
	}
}

func TestRetrieveDegradedOnCollectionFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	v := []float32{1, 0, 0}

	mem.Upsert(ctx, models.CollectionMedicalAuthoritative, []models.Document{
		doc("auth-1", "NIV Handbook", models.TierAuthoritative, "", false, v),
	})
	mem.Upsert(ctx, models.CollectionCommunityQA, []models.Document{
		doc("qa-1", "Forum QA", models.TierCuratedCommunity, "", false, v),
	})

	st := &flakyStore{SemanticStore: mem, failing: models.CollectionCommunityQA}
	r := NewRetriever(&fixedEmbedder{vector: v}, st, DefaultWeights(), DefaultOptions())

	got, degraded, err := r.Retrieve(ctx, models.ClassifiedQuery{NormalizedText: "q"})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !degraded {
		t.Fatal("expected degraded flag when one collection fails")
	}
	if len(got) != 1 || got[0].Document.ID != "auth-1" {
		t.Fatalf("expected surviving collection's passage, got %v", ids(got))
	}
}

func TestRetrieveEmbeddingFailureIsFatal(t *testing.T) {
	wantErr := errors.New("embedding backend down")
	r := NewRetriever(&fixedEmbedder{err: wantErr}, store.NewMemoryStore(), DefaultWeights(), DefaultOptions())

	_, _, err := r.Retrieve(context.Background(), models.ClassifiedQuery{NormalizedText: "q"})
	if !errors.Is(err, wantErr) {
		t.Fatalf("Retrieve error = %v, want %v", err, wantErr)
	}
}

// deadlineEmbedder records whether its context carried a deadline.
type deadlineEmbedder struct {
	vector      []float32
	sawDeadline bool
}

func (d *deadlineEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	_, d.sawDeadline = ctx.Deadline()
	return d.vector, nil
}

func (d *deadlineEmbedder) Dimension() int { return len(d.vector) }

// deadlineStore records whether Search contexts carried a deadline.
type deadlineStore struct {
	store.SemanticStore
	mu          sync.Mutex
	sawDeadline bool
}

func (d *deadlineStore) Search(ctx context.Context, collection string, vector []float32, k int) ([]store.Hit, error) {
	d.mu.Lock()
	_, d.sawDeadline = ctx.Deadline()
	d.mu.Unlock()
	return d.SemanticStore.Search(ctx, collection, vector, k)
}

func TestRetrieveBoundsStageDeadlines(t *testing.T) {
	ctx := context.Background()
	v := []float32{1, 0}
	mem := store.NewMemoryStore()
	mem.Upsert(ctx, models.CollectionCommunityQA, []models.Document{
		doc("qa-1", "Forum QA", models.TierCuratedCommunity, "", false, v),
	})

	embedder := &deadlineEmbedder{vector: v}
	st := &deadlineStore{SemanticStore: mem}
	r := NewRetriever(embedder, st, DefaultWeights(), Options{
		PerCollectionK: 4,
		MaxPassages:    5,
		MaxPerSource:   2,
		EmbedTimeout:   time.Second,
		StoreTimeout:   time.Second,
	})

	// The incoming request context has no deadline of its own; each stage
	// must impose one.
	if _, _, err := r.Retrieve(ctx, models.ClassifiedQuery{NormalizedText: "q"}); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !embedder.sawDeadline {
		t.Error("embedding call ran without a deadline")
	}
	if !st.sawDeadline {
		t.Error("collection search ran without a deadline")
	}
}

func TestRetrieveZeroTimeoutsKeepRequestContext(t *testing.T) {
	ctx := context.Background()
	v := []float32{1, 0}
	mem := store.NewMemoryStore()
	mem.Upsert(ctx, models.CollectionCommunityQA, []models.Document{
		doc("qa-1", "Forum QA", models.TierCuratedCommunity, "", false, v),
	})

	embedder := &deadlineEmbedder{vector: v}
	r := NewRetriever(embedder, mem, DefaultWeights(), Options{
		PerCollectionK: 4, MaxPassages: 5, MaxPerSource: 2,
	})

	if _, _, err := r.Retrieve(ctx, models.ClassifiedQuery{NormalizedText: "q"}); err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if embedder.sawDeadline {
		t.Error("zero timeout imposed a deadline")
	}
}

func TestScoreFormula(t *testing.T) {
	w := DefaultWeights()
	d := doc("d", "s", models.TierAuthoritative, "respiratory", true, nil)

	q := models.ClassifiedQuery{
		IsEmergency: true,
		Category:    "respiratory",
		RegionHint:  true,
	}
	got := w.Score(d, models.CollectionEmergencyProtocols, 0.25, q)
	want := -0.25 + 1.0 + 2.0 + 0.5 + 1.5
	if got != want {
		t.Fatalf("Score = %v, want %v", got, want)
	}

	// No signals: just distance and trust.
	got = w.Score(doc("d", "s", models.TierRawCommunity, "", false, nil),
		models.CollectionCommunityQA, 0.4, models.ClassifiedQuery{})
	want = -0.4 + 0.3
	if got != want {
		t.Fatalf("bare Score = %v, want %v", got, want)
	}
}

func ids(passages []models.RankedPassage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Document.ID
	}
	return out
}
