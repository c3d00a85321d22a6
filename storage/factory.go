package storage

import (
	"fmt"

	"github.com/spf13/afero"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	BackendGridFS = "gridfs"
	BackendLocal  = "local"
	BackendS3     = "s3"
)

// Options selects and configures a blob backend.
type Options struct {
	Backend    string
	LocalPath  string
	BucketName string
	S3         S3Config
}

// NewBlobStore creates a blob store for the configured backend. db is only
// needed for the gridfs backend.
func NewBlobStore(opts Options, db *mongo.Database) (BlobStore, error) {
	if err := ValidateOptions(opts); err != nil {
		return nil, err
	}

	switch opts.Backend {
	case BackendGridFS:
		if db == nil {
			return nil, fmt.Errorf("gridfs backend requires a database connection")
		}
		return NewGridFSClient(db, opts.BucketName), nil
	case BackendLocal:
		return NewLocalClient(afero.NewOsFs(), opts.LocalPath)
	case BackendS3:
		return NewS3Client(opts.S3)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", opts.Backend)
	}
}

// ValidateOptions validates backend configuration
func ValidateOptions(opts Options) error {
	switch opts.Backend {
	case BackendGridFS, BackendLocal:
		return nil
	case BackendS3:
		if opts.S3.Bucket == "" {
			return fmt.Errorf("bucket name is required")
		}
		if opts.S3.Region == "" {
			return fmt.Errorf("AWS region is required")
		}
		if (opts.S3.AccessKey == "") != (opts.S3.SecretKey == "") {
			return fmt.Errorf("AWS access key and secret key must be set together")
		}
		return nil
	default:
		return fmt.Errorf("unsupported storage backend: %s", opts.Backend)
	}
}
