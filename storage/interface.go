package storage

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned when a handle does not resolve to stored bytes.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is durable content storage keyed by an opaque handle.
// Put is atomic: it either returns a handle whose bytes are fully committed
// or fails and leaves nothing addressable behind.
type BlobStore interface {
	Put(ctx context.Context, data []byte, opts PutOptions) (string, error)
	Get(ctx context.Context, handle string) ([]byte, error)
	Delete(ctx context.Context, handle string) error

	GetProviderInfo() *ProviderInfo
	HealthCheck(ctx context.Context) error
}

// PutOptions describes the blob being written.
type PutOptions struct {
	// Name is a server generated, path free name. Backends may embed it in
	// the handle.
	Name        string
	ContentType string
}

// ProviderInfo contains information about the storage backend
type ProviderInfo struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Region   string            `json:"region,omitempty"`
	Endpoint string            `json:"endpoint,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// StorageError represents storage-specific errors
type StorageError struct {
	Provider string `json:"provider"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Key      string `json:"key,omitempty"`
	Err      error  `json:"-"`
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return e.Provider + ": " + e.Message + " (" + e.Key + ")"
	}
	return e.Provider + ": " + e.Message
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError creates a new storage error
func NewStorageError(provider, code, message, key string) *StorageError {
	return &StorageError{
		Provider: provider,
		Code:     code,
		Message:  message,
		Key:      key,
	}
}

// Wrap attaches the underlying cause.
func (e *StorageError) Wrap(err error) *StorageError {
	e.Err = err
	return e
}

func notFound(provider, key string) *StorageError {
	return NewStorageError(provider, "NOT_FOUND", "blob not found", key).Wrap(ErrBlobNotFound)
}
