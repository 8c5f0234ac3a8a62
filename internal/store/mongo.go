package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"caregiver-compass/internal/logger"
	"caregiver-compass/internal/telemetry"
	"caregiver-compass/models"
)

// collectionPrefix namespaces knowledge-base collections so they can share a
// database with operational collections.
const collectionPrefix = "kb_"

// MongoStore is a SemanticStore backed by MongoDB. Similarity is computed
// in-process over the candidate documents; deployments on Atlas can move
// this to $vectorSearch without changing callers.
type MongoStore struct {
	db      *mongo.Database
	metrics *telemetry.Metrics // nil disables operation metrics
}

var _ SemanticStore = (*MongoStore)(nil)

func NewMongoStore(client *mongo.Client, dbName string, metrics *telemetry.Metrics) *MongoStore {
	return &MongoStore{db: client.Database(dbName), metrics: metrics}
}

func (s *MongoStore) collection(name string) *mongo.Collection {
	return s.db.Collection(collectionPrefix + name)
}

func (s *MongoStore) record(operation, collection string, err error) {
	if s.metrics != nil {
		s.metrics.RecordStoreOperation(operation, collection, err == nil)
	}
}

func (s *MongoStore) Search(ctx context.Context, collection string, vector []float32, k int) (_ []Hit, err error) {
	defer func() { s.record("search", collection, err) }()

	if k <= 0 {
		k = 5
	}

	exists, err := s.exists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !exists {
		return nil, ErrCollectionNotFound
	}

	cursor, err := s.collection(collection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var hits []Hit
	for cursor.Next(ctx) {
		var doc models.Document
		if err := cursor.Decode(&doc); err != nil {
			logger.Warn("Skipping undecodable document", "collection", collection, "error", err)
			continue
		}
		hits = append(hits, Hit{Document: doc, Distance: CosineDistance(vector, doc.Vector)})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Document.ID < hits[j].Document.ID
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (s *MongoStore) Upsert(ctx context.Context, collection string, docs []models.Document) (err error) {
	defer func() { s.record("upsert", collection, err) }()

	if len(docs) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	_, err = s.collection(collection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Reset(ctx context.Context, collection string) (err error) {
	defer func() { s.record("reset", collection, err) }()

	exists, err := s.exists(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !exists {
		return ErrCollectionNotFound
	}

	_, err = s.collection(collection).DeleteMany(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoStore) Collections(ctx context.Context) ([]string, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var out []string
	for _, name := range names {
		if strings.HasPrefix(name, collectionPrefix) {
			out = append(out, strings.TrimPrefix(name, collectionPrefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MongoStore) Count(ctx context.Context, collection string) (_ int64, err error) {
	defer func() { s.record("count", collection, err) }()

	exists, err := s.exists(ctx, collection)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !exists {
		return 0, ErrCollectionNotFound
	}

	n, err := s.collection(collection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return n, nil
}

func (s *MongoStore) exists(ctx context.Context, collection string) (bool, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.M{"name": collectionPrefix + collection})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}
