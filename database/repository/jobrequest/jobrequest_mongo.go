package jobRepo

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
	"go.uber.org/zap"
)

// MongoJobRequestRepo implements Repository using MongoDB.
type MongoJobRequestRepo struct {
	coll *mongo.Collection
}

// NewMongoJobRequestRepo creates a job request repository backed by the
// "job_requests" collection.
func NewMongoJobRequestRepo() Repository {
	repo := &MongoJobRequestRepo{coll: database.Collection("job_requests")}
	if err := repo.EnsureIndexes(); err != nil {
		utils.GetLogger().Warn("failed to create job request indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoJobRequestRepo) Create(ctx context.Context, jr *models.JobRequest) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, jr); err != nil {
		// The partial unique index on (booking_id, provider_id, status=sent)
		// rejects a second active offer for the same pair.
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateActive
		}
		return fmt.Errorf("failed to create job request: %w", err)
	}
	return nil
}

func (r *MongoJobRequestRepo) GetByID(ctx context.Context, id string) (*models.JobRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var jr models.JobRequest
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&jr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch job request %s: %w", id, err)
	}
	return &jr, nil
}

func (r *MongoJobRequestRepo) GetActive(ctx context.Context, bookingID, providerID string) (*models.JobRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	filter := bson.M{
		"booking_id":  bookingID,
		"provider_id": providerID,
		"status":      models.JobRequestSent,
	}
	var jr models.JobRequest
	if err := r.coll.FindOne(ctx, filter).Decode(&jr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch active job request for booking %s: %w", bookingID, err)
	}
	return &jr, nil
}

func (r *MongoJobRequestRepo) ListByBooking(ctx context.Context, bookingID string) ([]models.JobRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	cursor, err := r.coll.Find(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return nil, fmt.Errorf("failed to list job requests for booking %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)

	var requests []models.JobRequest
	for cursor.Next(ctx) {
		var jr models.JobRequest
		if err := cursor.Decode(&jr); err != nil {
			return nil, fmt.Errorf("failed to decode job request: %w", err)
		}
		requests = append(requests, jr)
	}
	return requests, nil
}

func (r *MongoJobRequestRepo) MarkAccepted(ctx context.Context, id string, at time.Time, details AcceptDetails) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"status":       models.JobRequestAccepted,
		"responded_at": at,
	}
	if details.QuotedPrice != nil {
		set["quoted_price"] = *details.QuotedPrice
	}
	if details.EstimatedArrival != nil {
		set["estimated_arrival"] = *details.EstimatedArrival
	}
	if details.Notes != "" {
		set["notes"] = details.Notes
	}

	filter := bson.M{"id": id, "status": models.JobRequestSent}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to accept job request %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

func (r *MongoJobRequestRepo) MarkDeclined(ctx context.Context, id string, at time.Time, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	set := bson.M{
		"status":       models.JobRequestDeclined,
		"responded_at": at,
	}
	if reason != "" {
		set["decline_reason"] = reason
	}
	filter := bson.M{"id": id, "status": models.JobRequestSent}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to decline job request %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrAlreadyResolved
	}
	return nil
}

func (r *MongoJobRequestRepo) CancelAllSent(ctx context.Context, bookingID, exceptID string, at time.Time) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"booking_id": bookingID, "status": models.JobRequestSent}
	if exceptID != "" {
		filter["id"] = bson.M{"$ne": exceptID}
	}

	// Collect ids first so losers can be notified after the bulk update.
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find sent job requests for booking %s: %w", bookingID, err)
	}
	var ids []string
	for cursor.Next(ctx) {
		var jr models.JobRequest
		if err := cursor.Decode(&jr); err != nil {
			cursor.Close(ctx)
			return nil, fmt.Errorf("failed to decode job request: %w", err)
		}
		ids = append(ids, jr.ID)
	}
	cursor.Close(ctx)

	update := bson.M{"$set": bson.M{
		"status":       models.JobRequestCancelled,
		"responded_at": at,
	}}
	if _, err := r.coll.UpdateMany(ctx, filter, update); err != nil {
		return nil, fmt.Errorf("failed to cancel sent job requests for booking %s: %w", bookingID, err)
	}
	return ids, nil
}

func (r *MongoJobRequestRepo) ExpireDue(ctx context.Context, bookingID string, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"booking_id": bookingID,
		"status":     models.JobRequestSent,
		"expires_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"status": models.JobRequestExpired}}
	res, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to expire job requests for booking %s: %w", bookingID, err)
	}
	return res.ModifiedCount, nil
}

func (r *MongoJobRequestRepo) CountSent(ctx context.Context, bookingID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	count, err := r.coll.CountDocuments(ctx, bson.M{
		"booking_id": bookingID,
		"status":     models.JobRequestSent,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count sent job requests for booking %s: %w", bookingID, err)
	}
	return count, nil
}

func (r *MongoJobRequestRepo) TerminalProviderIDs(ctx context.Context, bookingID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	filter := bson.M{
		"booking_id": bookingID,
		"status": bson.M{"$in": bson.A{
			models.JobRequestDeclined,
			models.JobRequestExpired,
			models.JobRequestCancelled,
		}},
	}
	raw, err := r.coll.Distinct(ctx, "provider_id", filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list terminal providers for booking %s: %w", bookingID, err)
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			ids = append(ids, s)
		}
	}
	return ids, nil
}
