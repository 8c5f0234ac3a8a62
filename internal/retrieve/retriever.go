package retrieve

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"caregiver-compass/internal/ai"
	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/store"
	"caregiver-compass/models"
)

// Options bound the size and shape of the final passage set, and the time
// each suspension point may take.
type Options struct {
	PerCollectionK int // nearest neighbors requested from each collection
	MaxPassages    int // final top-N after merge and re-rank
	MaxPerSource   int // diversity cap per source_name in the final set

	EmbedTimeout time.Duration // deadline for the query embedding call; 0 = request deadline only
	StoreTimeout time.Duration // deadline per store call; 0 = request deadline only
}

func DefaultOptions() Options {
	return Options{
		PerCollectionK: 4,
		MaxPassages:    5,
		MaxPerSource:   2,
		EmbedTimeout:   15 * time.Second,
		StoreTimeout:   10 * time.Second,
	}
}

// Retriever produces a bounded, diverse, well-ranked passage set for prompt
// construction. It fans out to every knowledge collection concurrently,
// merges the hits under one scoring function, and enforces source diversity
// on the truncated result.
type Retriever struct {
	embedder ai.Embedder
	store    store.SemanticReader
	weights  Weights
	opts     Options
}

func NewRetriever(embedder ai.Embedder, st store.SemanticReader, weights Weights, opts Options) *Retriever {
	if opts.PerCollectionK < 1 {
		opts.PerCollectionK = DefaultOptions().PerCollectionK
	}
	if opts.MaxPassages < 1 {
		opts.MaxPassages = DefaultOptions().MaxPassages
	}
	if opts.MaxPerSource < 1 {
		opts.MaxPerSource = DefaultOptions().MaxPerSource
	}
	return &Retriever{embedder: embedder, store: st, weights: weights, opts: opts}
}

// Retrieve embeds the normalized query once, queries every collection, and
// returns the final ranked set. The degraded flag reports that one or more
// collections failed; the request still proceeds with whatever succeeded.
// An empty result is not an error: the composer handles zero context.
// Only an embedding failure aborts retrieval, since no semantic search is
// possible without a query vector.
func (r *Retriever) Retrieve(ctx context.Context, q models.ClassifiedQuery) ([]models.RankedPassage, bool, error) {
	vector, err := r.embed(ctx, q.NormalizedText)
	if err != nil {
		return nil, false, err
	}

	collections, err := r.collections(ctx)
	if err != nil {
		logger.Warn("Collection listing failed, retrieval degraded", "error", err)
		return nil, true, nil
	}
	if len(collections) == 0 {
		return nil, false, nil
	}

	var (
		mu         sync.Mutex
		candidates []models.RankedPassage
		failures   int
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, collection := range collections {
		collection := collection
		g.Go(func() error {
			hits, err := r.search(gctx, collection, vector)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				logger.Warn("Collection query failed", "collection", collection, "error", err)
				return nil // degraded, not fatal
			}
			for _, hit := range hits {
				candidates = append(candidates, models.RankedPassage{
					Document:   hit.Document,
					Collection: collection,
					Distance:   hit.Distance,
					Score:      r.weights.Score(hit.Document, collection, hit.Distance, q),
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, true, nil
	}

	degraded := failures > 0
	if len(candidates) == 0 {
		return nil, degraded, nil
	}

	sortCandidates(candidates)
	final := diversify(candidates, r.opts.MaxPassages, r.opts.MaxPerSource)
	for i := range final {
		final[i].Rank = i + 1
	}

	return final, degraded, nil
}

// embed bounds the embedding call with its own deadline under the request
// context.
func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	if r.opts.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.EmbedTimeout)
		defer cancel()
	}
	return r.embedder.Embed(ctx, text)
}

func (r *Retriever) collections(ctx context.Context) ([]string, error) {
	if r.opts.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.StoreTimeout)
		defer cancel()
	}
	return r.store.Collections(ctx)
}

// search bounds one collection query. A slow collection times out on its
// own without stalling the whole fan-out.
func (r *Retriever) search(ctx context.Context, collection string, vector []float32) ([]store.Hit, error) {
	if r.opts.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.StoreTimeout)
		defer cancel()
	}
	return r.store.Search(ctx, collection, vector, r.opts.PerCollectionK)
}

// sortCandidates orders by score descending, breaking ties by trust tier,
// then original distance ascending, then document ID. The full chain is
// deterministic so ranked output is reproducible across runs.
func sortCandidates(candidates []models.RankedPassage) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Document.Metadata.TrustTier != b.Document.Metadata.TrustTier {
			return a.Document.Metadata.TrustTier > b.Document.Metadata.TrustTier
		}
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		return a.Document.ID < b.Document.ID
	})
}

// diversify truncates the sorted candidates to maxPassages while capping how
// many passages any single source contributes. When the candidate pool has
// fewer distinct sources than slots, the cap is relaxed in a second pass so
// the context window is still filled.
func diversify(sorted []models.RankedPassage, maxPassages, maxPerSource int) []models.RankedPassage {
	perSource := make(map[string]int)
	picked := make([]models.RankedPassage, 0, maxPassages)
	var skipped []models.RankedPassage

	for _, p := range sorted {
		if len(picked) == maxPassages {
			break
		}
		source := p.Document.Metadata.SourceName
		if perSource[source] >= maxPerSource {
			skipped = append(skipped, p)
			continue
		}
		perSource[source]++
		picked = append(picked, p)
	}

	// Backfill from skipped passages, best first, when diversity alone
	// cannot fill the window.
	for _, p := range skipped {
		if len(picked) == maxPassages {
			break
		}
		picked = append(picked, p)
	}

	return picked
}
