package jobRepo

import (
	"context"
	"fmt"
	"time"

	"fixly/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the dispatch engine queries against.
// The partial unique index enforces the one-active-offer-per-pair invariant
// at the storage layer.
func (r *MongoJobRequestRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	activePairOpts := options.Index().
		SetUnique(true).
		SetPartialFilterExpression(bson.M{"status": models.JobRequestSent})

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys: bson.D{
				{Key: "booking_id", Value: 1},
				{Key: "provider_id", Value: 1},
			},
			Options: activePairOpts,
		},
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create job request indexes: %w", err)
	}
	return nil
}
