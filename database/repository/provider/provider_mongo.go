package providerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fixly/database"
	"fixly/models"
	"fixly/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoProviderRepo implements Repository using MongoDB.
type MongoProviderRepo struct {
	coll *mongo.Collection
}

// NewMongoProviderRepo creates a provider repository backed by the
// "providers" collection.
func NewMongoProviderRepo() Repository {
	repo := &MongoProviderRepo{coll: database.Collection("providers")}
	if err := repo.EnsureIndexes(); err != nil {
		utils.GetLogger().Warn("failed to create provider indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoProviderRepo) GetByID(ctx context.Context, id string) (*models.Provider, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var provider models.Provider
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&provider); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch provider %s: %w", id, err)
	}
	return &provider, nil
}

// SearchEligible builds the eligibility filter for the matching engine.
// Instant bookings need an online and available provider; scheduled
// bookings need an open calendar slot covering the scheduled time. The
// geo pre-filter uses $nearSphere so results come back closest-first; the
// engine re-computes exact distances and scores on top.
func (r *MongoProviderRepo) SearchEligible(ctx context.Context, criteria SearchCriteria) ([]models.Provider, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{}
	if criteria.Category != "" {
		filter["service_categories"] = criteria.Category
	}
	switch criteria.BookingType {
	case models.BookingTypeInstant:
		filter["status"] = "online"
		filter["available"] = true
	case models.BookingTypeScheduled:
		if criteria.ScheduledAt != nil {
			filter["open_slots"] = bson.M{"$elemMatch": bson.M{
				"start": bson.M{"$lte": *criteria.ScheduledAt},
				"end":   bson.M{"$gt": *criteria.ScheduledAt},
			}}
		}
	}
	if len(criteria.ExcludeIDs) > 0 {
		filter["id"] = bson.M{"$nin": criteria.ExcludeIDs}
	}
	if criteria.MaxDistanceKm > 0 && len(criteria.Center.Coordinates) >= 2 {
		filter["location_geo"] = bson.M{
			"$nearSphere": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": criteria.Center.Coordinates,
				},
				"$maxDistance": criteria.MaxDistanceKm * 1000,
			},
		}
	}

	limit := criteria.Limit
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().SetLimit(limit)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("eligibility search failed: %w", err)
	}
	defer cursor.Close(ctx)

	var providers []models.Provider
	for cursor.Next(ctx) {
		var p models.Provider
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("failed to decode provider: %w", err)
		}
		providers = append(providers, p)
	}
	return providers, nil
}
