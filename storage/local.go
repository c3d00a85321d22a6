package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// LocalClient stores blobs on a filesystem. Handles are slash separated
// paths relative to basePath, bucketed by upload date.
type LocalClient struct {
	fs       afero.Fs
	basePath string
	now      func() time.Time
}

// NewLocalClient creates a new local storage client rooted at basePath.
func NewLocalClient(fs afero.Fs, basePath string) (*LocalClient, error) {
	if basePath == "" {
		basePath = "./uploads"
	}

	// Ensure directory exists
	if err := fs.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &LocalClient{
		fs:       fs,
		basePath: basePath,
		now:      time.Now,
	}, nil
}

// Put writes data to a temp file, syncs it and renames it into place so a
// handle never points at a partially written file.
func (lc *LocalClient) Put(ctx context.Context, data []byte, opts PutOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name := opts.Name
	if name == "" {
		name = uuid.New().String()
	}
	if name != filepath.Base(name) || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", NewStorageError("local", "INVALID_NAME", "blob name must be a plain file name", name)
	}

	now := lc.now().UTC()
	handle := path.Join(now.Format("2006"), now.Format("01"), now.Format("02"), name)
	fullPath := filepath.Join(lc.basePath, filepath.FromSlash(handle))
	dir := filepath.Dir(fullPath)

	if err := lc.fs.MkdirAll(dir, 0o755); err != nil {
		return "", NewStorageError("local", "MKDIR_FAILED", "failed to create directory", handle).Wrap(err)
	}
	if exists, _ := afero.Exists(lc.fs, fullPath); exists {
		return "", NewStorageError("local", "ALREADY_EXISTS", "blob already exists", handle)
	}

	tmp, err := afero.TempFile(lc.fs, dir, ".upload-*")
	if err != nil {
		return "", NewStorageError("local", "UPLOAD_FAILED", "failed to create temp file", handle).Wrap(err)
	}
	tmpName := tmp.Name()

	cleanup := func(cause error, code, msg string) (string, error) {
		_ = tmp.Close()
		_ = lc.fs.Remove(tmpName)
		return "", NewStorageError("local", code, msg, handle).Wrap(cause)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err, "UPLOAD_FAILED", "failed to write blob")
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(err, "UPLOAD_FAILED", "failed to sync blob")
	}
	if err := tmp.Close(); err != nil {
		_ = lc.fs.Remove(tmpName)
		return "", NewStorageError("local", "UPLOAD_FAILED", "failed to close blob", handle).Wrap(err)
	}
	if err := lc.fs.Rename(tmpName, fullPath); err != nil {
		_ = lc.fs.Remove(tmpName)
		return "", NewStorageError("local", "UPLOAD_FAILED", "failed to commit blob", handle).Wrap(err)
	}

	return handle, nil
}

// Get reads the blob behind handle.
func (lc *LocalClient) Get(ctx context.Context, handle string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := lc.resolve(handle)
	if err != nil {
		return nil, err
	}

	data, err := afero.ReadFile(lc.fs, fullPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound("local", handle)
		}
		return nil, NewStorageError("local", "DOWNLOAD_FAILED", "failed to read blob", handle).Wrap(err)
	}
	return data, nil
}

// Delete removes the blob behind handle.
func (lc *LocalClient) Delete(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := lc.resolve(handle)
	if err != nil {
		return err
	}

	if err := lc.fs.Remove(fullPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound("local", handle)
		}
		return NewStorageError("local", "DELETE_FAILED", "failed to delete blob", handle).Wrap(err)
	}
	return nil
}

// resolve maps a handle to a path under basePath and refuses anything that
// would escape it.
func (lc *LocalClient) resolve(handle string) (string, error) {
	clean := path.Clean("/" + handle)
	if handle == "" || clean == "/" || clean[1:] != handle {
		return "", NewStorageError("local", "INVALID_HANDLE", "invalid blob handle", handle)
	}
	return filepath.Join(lc.basePath, filepath.FromSlash(handle)), nil
}

func (lc *LocalClient) GetProviderInfo() *ProviderInfo {
	return &ProviderInfo{
		Name:     "local",
		Type:     "local",
		Endpoint: lc.basePath,
		Metadata: map[string]string{
			"base_path": lc.basePath,
		},
	}
}

// HealthCheck verifies local storage is accessible
func (lc *LocalClient) HealthCheck(_ context.Context) error {
	testFile := filepath.Join(lc.basePath, ".health_check")

	if err := afero.WriteFile(lc.fs, testFile, []byte("health_check"), 0o644); err != nil {
		return fmt.Errorf("local storage write test failed: %w", err)
	}
	if _, err := afero.ReadFile(lc.fs, testFile); err != nil {
		return fmt.Errorf("local storage read test failed: %w", err)
	}

	_ = lc.fs.Remove(testFile)
	return nil
}
