package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"alcyxob/flexcoach/internal/domain"
	"alcyxob/flexcoach/internal/repository"
)

// mongoRequestRepository implements repository.RequestRepository.
type mongoRequestRepository struct {
	collection *mongo.Collection
}

// NewMongoRequestRepository creates a program_requests repository.
func NewMongoRequestRepository(db *mongo.Database) repository.RequestRepository {
	return &mongoRequestRepository{
		collection: db.Collection(requestCollectionName),
	}
}

func (r *mongoRequestRepository) find(ctx context.Context, filter bson.M) ([]domain.ProgramRequest, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	requests := []domain.ProgramRequest{}
	if err = cursor.All(ctx, &requests); err != nil {
		return nil, err
	}
	return requests, cursor.Err()
}

// FetchByCoach returns requests addressed to coachID, newest first.
func (r *mongoRequestRepository) FetchByCoach(ctx context.Context, coachID string) ([]domain.ProgramRequest, error) {
	return r.find(ctx, bson.M{"coach_id": coachID})
}

// FetchByClient returns requests submitted by clientID, newest first.
func (r *mongoRequestRepository) FetchByClient(ctx context.Context, clientID string) ([]domain.ProgramRequest, error) {
	return r.find(ctx, bson.M{"client_id": clientID})
}

// Create inserts a new request.
func (r *mongoRequestRepository) Create(ctx context.Context, req *domain.ProgramRequest) error {
	if req.ID == "" || req.ClientID == "" || req.CoachID == "" {
		return errors.New("request requires id, client_id and coach_id")
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, req); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return err
	}
	return nil
}

// UpdateStatus moves a pending request to status. The pending filter keeps
// transitions monotonic even when two sessions race on the same request.
func (r *mongoRequestRepository) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus, response string) error {
	if !status.Terminal() {
		return errors.New("status update must target a terminal status")
	}
	filter := bson.M{"_id": id, "status": domain.RequestPending}
	set := bson.M{"status": status, "updated_at": time.Now().UTC()}
	if response != "" {
		set["coach_response"] = response
	}

	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either gone or already resolved; tell the two apart for the caller.
		count, cerr := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if cerr == nil && count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}

// Delete removes the request with id.
func (r *mongoRequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureRequestIndexes creates necessary indexes for the program_requests collection.
func EnsureRequestIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coach_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
