// Package repository persists FileRecord metadata.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"secureshare/models"
)

var (
	// ErrNotFound is returned when no record matches the id or token.
	ErrNotFound = errors.New("file record not found")

	// ErrDuplicateToken is returned by Create when the share token is taken.
	// Callers regenerate the token and retry.
	ErrDuplicateToken = errors.New("share token already in use")

	// ErrConditionFailed is returned by IncrementDownloadCount when the record
	// exists but is inactive or its download limit is already reached.
	ErrConditionFailed = errors.New("record is not eligible for another download")
)

// FileRepository is the durable metadata store for FileRecords.
// Implementations must be safe for concurrent use.
type FileRepository interface {
	// Create assigns an ID, persists the record and returns the ID.
	Create(ctx context.Context, record *models.FileRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.FileRecord, error)
	GetByToken(ctx context.Context, token string) (*models.FileRecord, error)
	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, ownerID string, includeInactive bool) ([]*models.FileRecord, error)
	// IncrementDownloadCount atomically bumps the counter of an active record
	// whose limit is not yet reached and returns the new value.
	IncrementDownloadCount(ctx context.Context, id primitive.ObjectID) (int64, error)
	// Deactivate marks the record inactive. Deactivating twice is a no-op.
	Deactivate(ctx context.Context, id primitive.ObjectID) error
	// SweepExpired deactivates every active record with expires_at < now.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}
