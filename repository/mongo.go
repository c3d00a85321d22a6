package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"secureshare/models"
)

const defaultOpTimeout = 10 * time.Second

// MongoFileRepository stores FileRecords in a MongoDB collection.
// Counter updates rely on MongoDB's atomic single-document updates, so no
// in-process locking is needed.
type MongoFileRepository struct {
	fileCollection *mongo.Collection
	timeout        time.Duration
}

// NewMongoFileRepository wraps an existing collection handle.
func NewMongoFileRepository(collection *mongo.Collection) *MongoFileRepository {
	return &MongoFileRepository{
		fileCollection: collection,
		timeout:        defaultOpTimeout,
	}
}

func (r *MongoFileRepository) Create(ctx context.Context, record *models.FileRecord) (primitive.ObjectID, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := record.Clone()
	doc.ID = primitive.NewObjectID()

	if _, err := r.fileCollection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, ErrDuplicateToken
		}
		return primitive.NilObjectID, fmt.Errorf("failed to insert file record: %w", err)
	}

	record.ID = doc.ID
	return doc.ID, nil
}

func (r *MongoFileRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.FileRecord, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoFileRepository) GetByToken(ctx context.Context, token string) (*models.FileRecord, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"share_token": token})
}

func (r *MongoFileRepository) findOne(ctx context.Context, filter bson.M) (*models.FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var record models.FileRecord
	err := r.fileCollection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load file record: %w", err)
	}
	return &record, nil
}

func (r *MongoFileRepository) ListByOwner(ctx context.Context, ownerID string, includeInactive bool) ([]*models.FileRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"owner_id": ownerID}
	if !includeInactive {
		filter["active"] = true
	}

	cursor, err := r.fileCollection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*models.FileRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	return records, nil
}

func (r *MongoFileRepository) IncrementDownloadCount(ctx context.Context, id primitive.ObjectID) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// The limit check lives in the filter so two concurrent increments can
	// never push the counter past the limit.
	filter := bson.M{
		"_id":    id,
		"active": true,
		"$or": bson.A{
			bson.M{"download_limit": nil},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$download_count", "$download_limit"}}},
		},
	}
	update := bson.M{"$inc": bson.M{"download_count": 1}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.FileRecord
	err := r.fileCollection.FindOneAndUpdate(opCtx, filter, update, opts).Decode(&updated)
	if err == nil {
		return updated.DownloadCount, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, fmt.Errorf("failed to increment download count: %w", err)
	}

	if _, getErr := r.GetByID(ctx, id); getErr != nil {
		return 0, getErr
	}
	return 0, ErrConditionFailed
}

func (r *MongoFileRepository) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.fileCollection.UpdateOne(opCtx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{
			"active":         false,
			"deactivated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate file: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either already inactive (fine) or missing.
	_, err = r.GetByID(ctx, id)
	return err
}

func (r *MongoFileRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	result, err := r.fileCollection.UpdateMany(ctx,
		bson.M{
			"active":     true,
			"expires_at": bson.M{"$lt": now},
		},
		bson.M{"$set": bson.M{
			"active":         false,
			"deactivated_at": now,
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired files: %w", err)
	}
	return result.ModifiedCount, nil
}
