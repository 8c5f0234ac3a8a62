package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

// createIndexes sets up the indexes every knowledge collection needs for
// metadata-filtered reads. Vector similarity itself is computed in-process,
// so only the filter fields are indexed here.
func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	names, err := db.ListCollectionNames(context.Background(), bson.M{})
	if err != nil {
		return err
	}

	for _, name := range names {
		if len(name) < 3 || name[:3] != "kb_" {
			continue
		}
		col := db.Collection(name)
		indexes := []mongo.IndexModel{
			{Keys: bson.D{{Key: "metadata.source_name", Value: 1}}},
			{Keys: bson.D{{Key: "metadata.category", Value: 1}}},
			{Keys: bson.D{{Key: "metadata.trust_tier", Value: 1}}},
		}
		if _, err := col.Indexes().CreateMany(context.Background(), indexes); err != nil {
			return err
		}
	}

	return nil
}
