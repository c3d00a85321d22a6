package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FileRecord is the metadata kept for every uploaded file.
// Records are never removed from the metadata store; deletion and expiry
// only flip Active to false.
type FileRecord struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StoredName    string             `bson:"stored_name" json:"stored_name"`
	OriginalName  string             `bson:"original_name" json:"original_name"`
	SizeBytes     int64              `bson:"size_bytes" json:"size_bytes"`
	ContentType   string             `bson:"content_type" json:"content_type"`
	OwnerID       string             `bson:"owner_id" json:"-"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	ExpiresAt     time.Time          `bson:"expires_at" json:"expires_at"`
	PasswordHash  *string            `bson:"password_hash,omitempty" json:"-"`
	DownloadLimit *int64             `bson:"download_limit,omitempty" json:"download_limit"`
	DownloadCount int64              `bson:"download_count" json:"download_count"`
	Active        bool               `bson:"active" json:"active"`
	ShareToken    string             `bson:"share_token" json:"-"`
	BlobHandle    string             `bson:"blob_handle" json:"-"`
	DeactivatedAt *time.Time         `bson:"deactivated_at,omitempty" json:"deactivated_at,omitempty"`
}

// HasPassword reports whether retrieval requires a password.
func (f *FileRecord) HasPassword() bool {
	return f.PasswordHash != nil && *f.PasswordHash != ""
}

// IsExpiredAt reports whether the record's TTL elapsed strictly before now.
func (f *FileRecord) IsExpiredAt(now time.Time) bool {
	return f.ExpiresAt.Before(now)
}

// LimitReached reports whether the download quota is exhausted.
func (f *FileRecord) LimitReached() bool {
	return f.DownloadLimit != nil && f.DownloadCount >= *f.DownloadLimit
}

// Clone returns a deep copy so callers can't mutate stored state.
func (f *FileRecord) Clone() *FileRecord {
	if f == nil {
		return nil
	}
	c := *f
	if f.PasswordHash != nil {
		h := *f.PasswordHash
		c.PasswordHash = &h
	}
	if f.DownloadLimit != nil {
		l := *f.DownloadLimit
		c.DownloadLimit = &l
	}
	if f.DeactivatedAt != nil {
		d := *f.DeactivatedAt
		c.DeactivatedAt = &d
	}
	return &c
}

// FileInfo is the sanitized view of a FileRecord returned to clients.
// OwnerID and ShareToken are only filled in for the owner.
type FileInfo struct {
	ID            string    `json:"file_id"`
	StoredName    string    `json:"filename"`
	OriginalName  string    `json:"original_filename"`
	SizeBytes     int64     `json:"file_size"`
	ContentType   string    `json:"file_type"`
	CreatedAt     time.Time `json:"upload_date"`
	ExpiresAt     time.Time `json:"expiration_date"`
	DownloadCount int64     `json:"download_count"`
	DownloadLimit *int64    `json:"download_limit"`
	Active        bool      `json:"is_active"`
	HasPassword   bool      `json:"has_password"`
	OwnerID       string    `json:"owner_id,omitempty"`
	ShareToken    string    `json:"access_token,omitempty"`
}

// NewFileInfo builds the client view of a record. includePrivate exposes
// the owner identity and share token.
func NewFileInfo(f *FileRecord, includePrivate bool) *FileInfo {
	info := &FileInfo{
		ID:            f.ID.Hex(),
		StoredName:    f.StoredName,
		OriginalName:  f.OriginalName,
		SizeBytes:     f.SizeBytes,
		ContentType:   f.ContentType,
		CreatedAt:     f.CreatedAt,
		ExpiresAt:     f.ExpiresAt,
		DownloadCount: f.DownloadCount,
		DownloadLimit: f.DownloadLimit,
		Active:        f.Active,
		HasPassword:   f.HasPassword(),
	}
	if includePrivate {
		info.OwnerID = f.OwnerID
		info.ShareToken = f.ShareToken
	}
	return info
}

// UploadResult is returned to the uploader.
type UploadResult struct {
	ID           string    `json:"file_id"`
	StoredName   string    `json:"filename"`
	OriginalName string    `json:"original_filename"`
	SizeBytes    int64     `json:"file_size"`
	ContentType  string    `json:"file_type"`
	ExpiresAt    time.Time `json:"expiration_date"`
	ShareToken   string    `json:"access_token"`
}

// NewUploadResult builds the upload response for a freshly created record.
func NewUploadResult(f *FileRecord) *UploadResult {
	return &UploadResult{
		ID:           f.ID.Hex(),
		StoredName:   f.StoredName,
		OriginalName: f.OriginalName,
		SizeBytes:    f.SizeBytes,
		ContentType:  f.ContentType,
		ExpiresAt:    f.ExpiresAt,
		ShareToken:   f.ShareToken,
	}
}
