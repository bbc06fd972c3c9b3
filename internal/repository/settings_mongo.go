package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const settingsCollection = "notification_settings"

type settingDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoSettingsRepository stores reminder settings as one document per key
type MongoSettingsRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoSettingsRepository connects to uri and pings the primary
func NewMongoSettingsRepository(ctx context.Context, uri, database string) (*MongoSettingsRepository, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri).SetMaxPoolSize(4))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("Connected to MongoDB database: %s", database)
	return &MongoSettingsRepository{
		client:     client,
		collection: client.Database(database).Collection(settingsCollection),
	}, nil
}

func (r *MongoSettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var doc settingDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return doc.Value, true, nil
}

func (r *MongoSettingsRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "updatedAt": time.Now()}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (r *MongoSettingsRepository) SetMany(ctx context.Context, kv map[string]string) error {
	if len(kv) == 0 {
		return nil
	}

	now := time.Now()
	writes := make([]mongo.WriteModel, 0, len(kv))
	for key, value := range kv {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": key}).
			SetUpdate(bson.M{"$set": bson.M{"value": value, "updatedAt": now}}).
			SetUpsert(true))
	}
	_, err := r.collection.BulkWrite(ctx, writes)
	return err
}

func (r *MongoSettingsRepository) All(ctx context.Context) (map[string]string, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []settingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	kv := make(map[string]string, len(docs))
	for _, d := range docs {
		kv[d.Key] = d.Value
	}
	return kv, nil
}

func (r *MongoSettingsRepository) Delete(ctx context.Context, key string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}

func (r *MongoSettingsRepository) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.client.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting from MongoDB: %v", err)
	}
}
