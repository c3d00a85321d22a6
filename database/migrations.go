package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FileIndexes are the indexes the files collection relies on: a unique
// share token lookup, owner listing and the expiry sweep.
func FileIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "share_token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("share_token_unique"),
		},
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "active", Value: 1},
				{Key: "expires_at", Value: 1},
			},
			Options: options.Index().SetName("owner_active_expires"),
		},
		{
			Keys:    bson.D{{Key: "active", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("active_expires"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("owner_created"),
		},
	}
}

// RunMigrations creates the indexes for every collection the service uses.
// Index creation is idempotent, so this runs on every startup.
func (m *Manager) RunMigrations(ctx context.Context) error {
	m.logger.Info("Creating database indexes...")

	if err := CreateFileIndexes(ctx, m.GetCollection(FilesCollection)); err != nil {
		return err
	}

	m.logger.Info("Database indexes created successfully")
	return nil
}

// CreateFileIndexes creates the files collection indexes.
func CreateFileIndexes(ctx context.Context, collection *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := collection.Indexes().CreateMany(ctx, FileIndexes()); err != nil {
		return fmt.Errorf("failed to create file indexes: %w", err)
	}
	return nil
}
