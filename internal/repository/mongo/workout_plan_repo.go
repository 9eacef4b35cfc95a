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

// mongoWorkoutPlanRepository implements repository.WorkoutPlanRepository
type mongoWorkoutPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutPlanRepository creates a workout_plans repository.
func NewMongoWorkoutPlanRepository(db *mongo.Database) repository.WorkoutPlanRepository {
	return &mongoWorkoutPlanRepository{
		collection: db.Collection(workoutPlanCollectionName),
	}
}

// FetchByCoach returns every plan document owned by coachID.
func (r *mongoWorkoutPlanRepository) FetchByCoach(ctx context.Context, coachID string) ([]domain.WorkoutPlanRecord, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"coach_id": coachID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.WorkoutPlanRecord{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	return plans, cursor.Err()
}

// Upsert writes the plan document, inserting it when missing. The stored
// created_at of an existing document is kept.
func (r *mongoWorkoutPlanRepository) Upsert(ctx context.Context, rec *domain.WorkoutPlanRecord) error {
	if rec.ID == "" || rec.ClientID == "" {
		return errors.New("workout plan requires id and client_id")
	}
	now := time.Now().UTC()
	rec.UpdatedAt = now
	return upsertKeepingCreated(ctx, r.collection, rec.ID, rec, rec.CreatedAt, now)
}

// Delete removes the plan document with id.
func (r *mongoWorkoutPlanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		// A client saved while offline may never have had a plan document.
		return repository.ErrNotFound
	}
	return nil
}

// EnsureWorkoutPlanIndexes creates necessary indexes. Call during startup.
func EnsureWorkoutPlanIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coach_id", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}},
			Options: options.Index().SetUnique(true), // one plan document per client
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
