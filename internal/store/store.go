package store

import (
	"context"
	"errors"

	"caregiver-compass/models"
)

var (
	// ErrCollectionNotFound is returned when the named collection does not
	// exist in the store.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrStoreUnavailable is returned when the backing store cannot be
	// reached. Retrieval treats this as "no context available".
	ErrStoreUnavailable = errors.New("semantic store unavailable")
)

// Hit is one nearest-neighbor result: the stored document plus its distance
// from the query vector. Lower distance means more similar.
type Hit struct {
	Document models.Document
	Distance float64
}

// SemanticReader is the query-time view of a multi-collection vector store.
// Collections partition the knowledge base by provenance (authoritative
// guides, clinical papers, community threads) so retrieval can weigh them
// differently.
type SemanticReader interface {
	// Search returns up to k hits from one collection, ordered by ascending
	// distance. An empty collection yields an empty slice, not an error.
	Search(ctx context.Context, collection string, vector []float32, k int) ([]Hit, error)

	// Collections lists all known collection names.
	Collections(ctx context.Context) ([]string, error)

	// Count returns the number of documents in the named collection.
	Count(ctx context.Context, collection string) (int64, error)
}

// SemanticWriter is the ingestion-time view of the store.
type SemanticWriter interface {
	// Upsert inserts or replaces documents by ID in the named collection,
	// creating the collection if needed.
	Upsert(ctx context.Context, collection string, docs []models.Document) error

	// Reset removes all documents from the named collection.
	Reset(ctx context.Context, collection string) error
}

// SemanticStore is the full store. Consumers should take the narrower view
// they actually use: the retriever and the stats reporter only read, the
// ingester and the queue worker only write.
type SemanticStore interface {
	SemanticReader
	SemanticWriter
}
