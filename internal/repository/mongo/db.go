package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"alcyxob/flexcoach/internal/repository"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// Collection names of the remote store.
const (
	clientCollectionName      = "clients"
	workoutPlanCollectionName = "workout_plans"
	templateCollectionName    = "templates"
	requestCollectionName     = "program_requests"
)

// ConnectDB establishes a connection to MongoDB using the provided URI.
// Nested documents decode as maps so request snapshots (client_data) keep
// a JSON-compatible shape.
func ConnectDB(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary node to verify the connection.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}
	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// NewRemote wires the four collection repositories against db.
func NewRemote(db *mongo.Database) repository.Remote {
	return repository.Remote{
		Clients:   NewMongoClientRepository(db),
		Plans:     NewMongoWorkoutPlanRepository(db),
		Templates: NewMongoTemplateRepository(db),
		Requests:  NewMongoRequestRepository(db),
	}
}

// EnsureIndexes creates the indexes of every collection. Failures are
// logged by the individual helpers and never abort startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) {
	EnsureClientIndexes(ctx, db.Collection(clientCollectionName))
	EnsureWorkoutPlanIndexes(ctx, db.Collection(workoutPlanCollectionName))
	EnsureTemplateIndexes(ctx, db.Collection(templateCollectionName))
	EnsureRequestIndexes(ctx, db.Collection(requestCollectionName))
}

// upsertKeepingCreated writes doc under id and inserts it when missing.
// created_at is written on insert only, so edits keep the document's place
// in created_at order.
func upsertKeepingCreated(ctx context.Context, coll *mongo.Collection, id string, doc any, created, now time.Time) error {
	update, err := keepCreatedUpdate(doc, created, now)
	if err != nil {
		return err
	}
	_, err = coll.UpdateOne(ctx, bson.M{"_id": id}, update, options.Update().SetUpsert(true))
	return err
}

func keepCreatedUpdate(doc any, created, now time.Time) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	fields := bson.M{}
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	delete(fields, "_id")
	delete(fields, "created_at")
	fields["updated_at"] = now
	if created.IsZero() {
		created = now
	}
	return bson.M{
		"$set":         fields,
		"$setOnInsert": bson.M{"created_at": created},
	}, nil
}
