package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const postsCollectionName = "posts"

// ConnectMongo opens a client shared by all MongoDB storages
func ConnectMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	return client, nil
}

type MongoPostStorage struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoPostStorage(client *mongo.Client, database string, log *slog.Logger) *MongoPostStorage {
	return &MongoPostStorage{
		client:     client,
		collection: client.Database(database).Collection(postsCollectionName),
		log:        log,
	}
}

func (m *MongoPostStorage) GetPost(id string) (*Post, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var post Post
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&post)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding post: %w", err)
	}
	return &post, nil
}

func (m *MongoPostStorage) SavePost(post *Post) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	set := bson.M{
		"title":      post.Title,
		"updated_at": now,
	}
	if post.FeaturedImageId != "" {
		set["featured_image_id"] = post.FeaturedImageId
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"created_at": now,
		},
	}

	opts := options.Update().SetUpsert(true)
	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": post.Id}, update, opts)
	if err != nil {
		return fmt.Errorf("saving post: %w", err)
	}
	return nil
}

func (m *MongoPostStorage) SetFeaturedImage(postId, assetId string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update := bson.M{
		"$set": bson.M{
			"featured_image_id": assetId,
			"updated_at":        time.Now(),
		},
	}
	res, err := m.collection.UpdateOne(ctx, bson.M{"_id": postId}, update)
	if err != nil {
		return fmt.Errorf("setting featured image: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Close disconnects the shared client; call it once, after the other storages
func (m *MongoPostStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
