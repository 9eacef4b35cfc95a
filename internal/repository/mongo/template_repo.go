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

// mongoTemplateRepository implements repository.TemplateRepository.
type mongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a templates repository.
func NewMongoTemplateRepository(db *mongo.Database) repository.TemplateRepository {
	return &mongoTemplateRepository{
		collection: db.Collection(templateCollectionName),
	}
}

// FetchByCoach returns the coach's templates, newest first.
func (r *mongoTemplateRepository) FetchByCoach(ctx context.Context, coachID string) ([]domain.Template, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"created_by": coachID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	templates := []domain.Template{}
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, cursor.Err()
}

// Upsert stores the template. Templates are replaced whole, never patched.
func (r *mongoTemplateRepository) Upsert(ctx context.Context, tpl *domain.Template) error {
	if tpl.ID == "" || tpl.CreatedBy == "" {
		return errors.New("template requires id and created_by")
	}
	if tpl.CreatedAt.IsZero() {
		tpl.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": tpl.ID}, tpl, options.Replace().SetUpsert(true))
	return err
}

// Delete removes a template, scoped to its owner.
func (r *mongoTemplateRepository) Delete(ctx context.Context, id, coachID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "created_by": coachID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureTemplateIndexes creates necessary indexes for the templates collection.
func EnsureTemplateIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_by", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index(),
		},
	}
	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
