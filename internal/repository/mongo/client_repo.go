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

// mongoClientRepository implements repository.ClientRepository.
type mongoClientRepository struct {
	collection *mongo.Collection
}

// NewMongoClientRepository creates a clients repository backed by MongoDB.
func NewMongoClientRepository(db *mongo.Database) repository.ClientRepository {
	return &mongoClientRepository{
		collection: db.Collection(clientCollectionName),
	}
}

// FetchByCoach returns every client document owned by coachID.
func (r *mongoClientRepository) FetchByCoach(ctx context.Context, coachID string) ([]domain.ClientRecord, error) {
	filter := bson.M{"coach_id": coachID}
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []domain.ClientRecord{}
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, cursor.Err()
}

// Upsert writes rec under rec.ID, inserting it when missing. The stored
// created_at of an existing document is kept.
func (r *mongoClientRepository) Upsert(ctx context.Context, rec *domain.ClientRecord) error {
	if rec.ID == "" {
		return errors.New("client record requires an id")
	}
	now := time.Now().UTC()
	rec.UpdatedAt = now
	return upsertKeepingCreated(ctx, r.collection, rec.ID, rec, rec.CreatedAt, now)
}

// Delete removes the client document with id.
func (r *mongoClientRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureClientIndexes creates necessary indexes for the clients collection.
func EnsureClientIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "coach_id", Value: 1}, {Key: "created_at", Value: 1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
