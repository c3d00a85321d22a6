package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultBucketName = "blobs"

// GridFSClient stores blobs in a MongoDB GridFS bucket next to the metadata.
// Handles are the hex form of the GridFS file id. GridFS writes the files
// document only after every chunk is stored, so an interrupted upload never
// yields a usable handle.
type GridFSClient struct {
	db         *mongo.Database
	bucketName string
	timeout    time.Duration
}

func NewGridFSClient(db *mongo.Database, bucketName string) *GridFSClient {
	if bucketName == "" {
		bucketName = defaultBucketName
	}
	return &GridFSClient{
		db:         db,
		bucketName: bucketName,
		timeout:    5 * time.Minute,
	}
}

// bucket returns a fresh bucket per call; deadlines are bucket state and
// must not leak between concurrent operations.
func (g *GridFSClient) bucket(ctx context.Context, write bool) (*gridfs.Bucket, error) {
	b, err := gridfs.NewBucket(g.db, options.GridFSBucket().SetName(g.bucketName))
	if err != nil {
		return nil, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(g.timeout)
	}
	if write {
		err = b.SetWriteDeadline(deadline)
	} else {
		err = b.SetReadDeadline(deadline)
	}
	return b, err
}

func (g *GridFSClient) Put(ctx context.Context, data []byte, opts PutOptions) (string, error) {
	b, err := g.bucket(ctx, true)
	if err != nil {
		return "", NewStorageError("gridfs", "BUCKET_FAILED", "failed to open bucket", "").Wrap(err)
	}

	uploadOpts := options.GridFSUpload().SetMetadata(bson.M{"content_type": opts.ContentType})
	id, err := b.UploadFromStream(opts.Name, bytes.NewReader(data), uploadOpts)
	if err != nil {
		return "", NewStorageError("gridfs", "UPLOAD_FAILED", "failed to upload blob", opts.Name).Wrap(err)
	}
	return id.Hex(), nil
}

func (g *GridFSClient) Get(ctx context.Context, handle string) ([]byte, error) {
	id, err := primitive.ObjectIDFromHex(handle)
	if err != nil {
		return nil, NewStorageError("gridfs", "INVALID_HANDLE", "invalid blob handle", handle).Wrap(err)
	}

	b, err := g.bucket(ctx, false)
	if err != nil {
		return nil, NewStorageError("gridfs", "BUCKET_FAILED", "failed to open bucket", handle).Wrap(err)
	}

	var buf bytes.Buffer
	if _, err := b.DownloadToStream(id, &buf); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, notFound("gridfs", handle)
		}
		return nil, NewStorageError("gridfs", "DOWNLOAD_FAILED", "failed to download blob", handle).Wrap(err)
	}
	return buf.Bytes(), nil
}

func (g *GridFSClient) Delete(ctx context.Context, handle string) error {
	id, err := primitive.ObjectIDFromHex(handle)
	if err != nil {
		return NewStorageError("gridfs", "INVALID_HANDLE", "invalid blob handle", handle).Wrap(err)
	}

	b, err := g.bucket(ctx, true)
	if err != nil {
		return NewStorageError("gridfs", "BUCKET_FAILED", "failed to open bucket", handle).Wrap(err)
	}

	if err := b.DeleteContext(ctx, id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return notFound("gridfs", handle)
		}
		return NewStorageError("gridfs", "DELETE_FAILED", "failed to delete blob", handle).Wrap(err)
	}
	return nil
}

func (g *GridFSClient) GetProviderInfo() *ProviderInfo {
	return &ProviderInfo{
		Name: "gridfs",
		Type: "gridfs",
		Metadata: map[string]string{
			"database": g.db.Name(),
			"bucket":   g.bucketName,
		},
	}
}

func (g *GridFSClient) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := g.db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		return fmt.Errorf("gridfs health check failed: %w", err)
	}
	return nil
}
