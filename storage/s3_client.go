package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
)

// S3Config holds the settings for an S3 or S3-compatible bucket.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// S3Client implements BlobStore for Amazon S3 and compatible services.
// The handle is the object key.
type S3Client struct {
	client     *s3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	bucket     string
	region     string
	endpoint   string
	prefix     string
}

// NewS3Client creates a new S3 client
func NewS3Client(cfg S3Config) (*S3Client, error) {
	config := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// Set credentials if provided
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		config.Credentials = credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, "")
	}

	// Set custom endpoint if provided (for S3-compatible services)
	if cfg.Endpoint != "" {
		config.Endpoint = aws.String(cfg.Endpoint)
		config.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Client{
		client:     s3.New(sess),
		uploader:   s3manager.NewUploader(sess),
		downloader: s3manager.NewDownloader(sess),
		bucket:     cfg.Bucket,
		region:     cfg.Region,
		endpoint:   cfg.Endpoint,
		prefix:     cfg.Prefix,
	}, nil
}

// Put uploads data with the s3manager uploader. Multipart uploads are
// completed or aborted as a unit, so the key only appears once fully written.
func (s *S3Client) Put(ctx context.Context, data []byte, opts PutOptions) (string, error) {
	name := opts.Name
	if name == "" {
		name = uuid.New().String()
	}
	key := s.prefix + name

	input := &s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	if _, err := s.uploader.UploadWithContext(ctx, input); err != nil {
		return "", NewStorageError("s3", "UPLOAD_FAILED", "failed to upload blob", key).Wrap(err)
	}
	return key, nil
}

func (s *S3Client) Get(ctx context.Context, key string) ([]byte, error) {
	buf := aws.NewWriteAtBuffer(nil)
	_, err := s.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, notFound("s3", key)
		}
		return nil, NewStorageError("s3", "DOWNLOAD_FAILED", "failed to download blob", key).Wrap(err)
	}
	return buf.Bytes(), nil
}

// Delete removes the object. S3 deletes are silent for missing keys, so the
// object is probed first to report ErrBlobNotFound.
func (s *S3Client) Delete(ctx context.Context, key string) error {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return notFound("s3", key)
		}
		return NewStorageError("s3", "HEAD_FAILED", "failed to stat blob", key).Wrap(err)
	}

	if _, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return NewStorageError("s3", "DELETE_FAILED", "failed to delete blob", key).Wrap(err)
	}
	return nil
}

func (s *S3Client) GetProviderInfo() *ProviderInfo {
	return &ProviderInfo{
		Name:     "s3",
		Type:     "s3",
		Region:   s.region,
		Endpoint: s.endpoint,
		Metadata: map[string]string{
			"bucket": s.bucket,
		},
	}
}

// HealthCheck verifies the bucket is reachable with the configured credentials.
func (s *S3Client) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("S3 health check failed: %w", err)
	}
	return nil
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == 404 {
		return true
	}
	return false
}
