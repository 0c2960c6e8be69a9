package storage

import (
	"aifi/lib/sl"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const assetsCollectionName = "assets"

// MongoAssetStorage is a MongoDB implementation of AssetStorage
type MongoAssetStorage struct {
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoAssetStorage(client *mongo.Client, database string, log *slog.Logger) *MongoAssetStorage {
	collection := client.Database(database).Collection(assetsCollectionName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		log.Warn("creating assets index", sl.Err(err))
	}

	return &MongoAssetStorage{
		collection: collection,
		log:        log,
	}
}

func (m *MongoAssetStorage) SaveAsset(asset *Asset) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = time.Now()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": asset.Id}, asset, opts)
	if err != nil {
		return fmt.Errorf("saving asset: %w", err)
	}
	return nil
}

func (m *MongoAssetStorage) GetAsset(id string) (*Asset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var asset Asset
	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&asset)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding asset: %w", err)
	}
	return &asset, nil
}

func (m *MongoAssetStorage) ListPostAssets(postId string) ([]Asset, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := m.collection.Find(ctx, bson.M{"post_id": postId}, opts)
	if err != nil {
		return nil, fmt.Errorf("finding assets: %w", err)
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		err := cursor.Close(ctx)
		if err != nil {
			m.log.Warn("closing cursor", sl.Err(err))
		}
	}(cursor, ctx)

	var assets []Asset
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("decoding assets: %w", err)
	}
	return assets, nil
}

// Close is a no-op, the client is shared
func (m *MongoAssetStorage) Close() error {
	return nil
}
