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

const (
	settingsCollectionName = "settings"
	settingsDocumentId     = "aifi_settings"
)

type settingsDocument struct {
	Id        string    `bson:"_id"`
	Settings  Settings  `bson:",inline"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoSettingsStorage keeps the settings record as a single document
type MongoSettingsStorage struct {
	collection *mongo.Collection
	log        *slog.Logger
}

func NewMongoSettingsStorage(client *mongo.Client, database string, log *slog.Logger) *MongoSettingsStorage {
	return &MongoSettingsStorage{
		collection: client.Database(database).Collection(settingsCollectionName),
		log:        log,
	}
}

func (m *MongoSettingsStorage) GetSettings() (*Settings, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var doc settingsDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": settingsDocumentId}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding settings: %w", err)
	}
	return &doc.Settings, nil
}

func (m *MongoSettingsStorage) SaveSettings(settings *Settings) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	doc := settingsDocument{
		Id:        settingsDocumentId,
		Settings:  *settings,
		UpdatedAt: time.Now(),
	}
	opts := options.Replace().SetUpsert(true)
	_, err := m.collection.ReplaceOne(ctx, bson.M{"_id": settingsDocumentId}, doc, opts)
	if err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// Close is a no-op, the client is shared
func (m *MongoSettingsStorage) Close() error {
	return nil
}
