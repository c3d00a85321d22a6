package services

import (
	"context"
	"errors"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"secureshare/models"
	"secureshare/policy"
	"secureshare/repository"
	"secureshare/storage"
	"secureshare/utils"
)

const maxTokenAttempts = 3

// PasswordHasher hashes share passwords and verifies them in constant time.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Options are the lifecycle limits applied by FileService.
type Options struct {
	MaxFileSize          int64
	AllowedExtensions    []string
	DefaultTTLHours      int
	MaxTTLHours          int
	ReadRetryAttempts    int
	RetryInitialInterval time.Duration
}

// FileService runs the file lifecycle: upload, guarded download, owner
// deletion and expiry sweeps. It keeps no per-file state; concurrency
// control lives in the repository.
type FileService struct {
	repo     repository.FileRepository
	blobs    storage.BlobStore
	hasher   PasswordHasher
	policy   *policy.Engine
	uploads  *utils.UploadPolicy
	retry    retryPolicy
	expiry   *ExpiryJob
	opts     Options
	logger   *logrus.Logger
	now      func() time.Time
	newToken func() (string, error)
}

func NewFileService(
	repo repository.FileRepository,
	blobs storage.BlobStore,
	hasher PasswordHasher,
	opts Options,
	logger *logrus.Logger,
) *FileService {
	if opts.ReadRetryAttempts < 1 {
		opts.ReadRetryAttempts = 1
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = 100 * time.Millisecond
	}

	return &FileService{
		repo:    repo,
		blobs:   blobs,
		hasher:  hasher,
		policy:  policy.NewEngine(hasher),
		uploads: utils.NewUploadPolicy(opts.MaxFileSize, opts.AllowedExtensions),
		retry: retryPolicy{
			attempts: opts.ReadRetryAttempts,
			initial:  opts.RetryInitialInterval,
			logger:   logger,
		},
		expiry:   NewExpiryJob(repo, logger),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		newToken: utils.GenerateShareToken,
	}
}

// UploadInput is a single upload request.
type UploadInput struct {
	Content       []byte
	OriginalName  string
	OwnerID       string
	TTLHours      *int
	Password      string
	DownloadLimit *int64
}

// Locator addresses a file by id or by share token.
type Locator struct {
	ID    string
	Token string
}

func ByID(id string) Locator       { return Locator{ID: id} }
func ByToken(token string) Locator { return Locator{Token: token} }

// DownloadResult carries either the released content or the denial.
type DownloadResult struct {
	Decision    policy.Decision
	Content     []byte
	Filename    string
	ContentType string
	Record      *models.FileRecord
}

// InfoResult carries either the file metadata or the reason it is hidden.
type InfoResult struct {
	Decision policy.Decision
	Info     *models.FileInfo
}

// Upload validates the input, stores the blob and then creates the record.
// A failure after the blob is stored leaves an orphaned blob, never a
// record without content.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (*models.FileRecord, error) {
	record, err := s.upload(ctx, in)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			uploadsTotal.WithLabelValues("rejected").Inc()
		} else {
			uploadsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	uploadsTotal.WithLabelValues("ok").Inc()
	uploadBytesTotal.Add(float64(record.SizeBytes))
	return record, nil
}

func (s *FileService) upload(ctx context.Context, in UploadInput) (*models.FileRecord, error) {
	if in.OwnerID == "" {
		return nil, newValidationError("owner", "an authenticated owner is required")
	}
	if len(in.Content) == 0 {
		return nil, newValidationError("file", "file is empty")
	}
	if int64(len(in.Content)) > s.uploads.MaxFileSize {
		verr := newValidationError("file", "file exceeds the maximum size of %s", utils.FormatFileSize(s.uploads.MaxFileSize))
		verr.Err = ErrFileTooLarge
		return nil, verr
	}

	originalName := utils.SanitizeFilename(in.OriginalName)
	ext := utils.FileExtension(originalName)
	if ext == "" {
		return nil, newValidationError("filename", "file must have an extension")
	}
	if !s.uploads.IsAllowedExtension(ext) {
		return nil, newValidationError("filename", "file type .%s is not allowed", ext)
	}

	ttlHours := s.opts.DefaultTTLHours
	if in.TTLHours != nil {
		ttlHours = *in.TTLHours
	}
	if ttlHours < 0 || ttlHours > s.opts.MaxTTLHours {
		return nil, newValidationError("expiration_hours", "must be between 0 and %d", s.opts.MaxTTLHours)
	}

	if in.DownloadLimit != nil && *in.DownloadLimit < 1 {
		return nil, newValidationError("download_limit", "must be at least 1")
	}

	var passwordHash *string
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			if errors.Is(err, utils.ErrPasswordTooLong) {
				return nil, newValidationError("password", "%s", err.Error())
			}
			return nil, err
		}
		passwordHash = &hash
	}

	contentType := mimetype.Detect(in.Content).String()
	storedName := utils.GenerateStoredName(ext)

	handle, err := s.blobs.Put(ctx, in.Content, storage.PutOptions{
		Name:        storedName,
		ContentType: contentType,
	})
	if err != nil {
		return nil, unavailable("store blob", err)
	}

	now := s.now().UTC()
	record := &models.FileRecord{
		StoredName:    storedName,
		OriginalName:  originalName,
		SizeBytes:     int64(len(in.Content)),
		ContentType:   contentType,
		OwnerID:       in.OwnerID,
		CreatedAt:     now,
		ExpiresAt:     now.Add(time.Duration(ttlHours) * time.Hour),
		PasswordHash:  passwordHash,
		DownloadLimit: in.DownloadLimit,
		Active:        true,
		BlobHandle:    handle,
	}

	if err := s.createWithFreshToken(ctx, record); err != nil {
		s.logger.WithFields(logrus.Fields{
			"blob_handle": handle,
			"owner_id":    in.OwnerID,
		}).WithError(err).Warn("Record creation failed, blob left orphaned")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"file_id":  record.ID.Hex(),
		"owner_id": record.OwnerID,
		"size":     record.SizeBytes,
	}).Info("File uploaded")

	return record, nil
}

func (s *FileService) createWithFreshToken(ctx context.Context, record *models.FileRecord) error {
	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return err
		}
		record.ShareToken = token

		_, err = s.repo.Create(ctx, record)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicateToken) {
			return unavailable("create record", err)
		}
		s.logger.WithField("attempt", attempt).Warn("Share token collision, regenerating")
	}
	return unavailable("create record", repository.ErrDuplicateToken)
}

// resolve loads the record for loc. A missing or malformed locator yields a
// nil record and no error.
func (s *FileService) resolve(ctx context.Context, loc Locator) (*models.FileRecord, error) {
	var lookup func() (*models.FileRecord, error)

	switch {
	case loc.ID != "":
		id, err := utils.StringToObjectID(loc.ID)
		if err != nil {
			return nil, nil
		}
		lookup = func() (*models.FileRecord, error) { return s.repo.GetByID(ctx, id) }
	case loc.Token != "":
		lookup = func() (*models.FileRecord, error) { return s.repo.GetByToken(ctx, loc.Token) }
	default:
		return nil, nil
	}

	var record *models.FileRecord
	err := s.retry.do(ctx, "get_record", func() error {
		var err error
		record, err = lookup()
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, unavailable("load record", err)
	}
	return record, nil
}

// Download authorizes a retrieval and releases the content. Bytes are
// fetched first; the conditional increment then admits the download, so a
// failed fetch never consumes quota. Once admitted the unit is spent even if
// the caller never receives the bytes.
func (s *FileService) Download(ctx context.Context, loc Locator, password string) (*DownloadResult, error) {
	record, err := s.resolve(ctx, loc)
	if err != nil {
		downloadsTotal.WithLabelValues("error", "").Inc()
		return nil, err
	}

	decision := s.policy.Evaluate(record, password, s.now())
	if !decision.Allowed {
		return s.denied(record, decision.Reason), nil
	}

	log := s.logger.WithField("file_id", record.ID.Hex())

	var content []byte
	err = s.retry.do(ctx, "get_blob", func() error {
		var err error
		content, err = s.blobs.Get(ctx, record.BlobHandle)
		return err
	})
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			consistencyErrorsTotal.Inc()
			log.WithField("blob_handle", record.BlobHandle).Error("Active record references a missing blob")
			return s.denied(record, policy.ReasonNotFound), nil
		}
		downloadsTotal.WithLabelValues("error", "").Inc()
		return nil, unavailable("load blob", err)
	}

	count, err := s.repo.IncrementDownloadCount(ctx, record.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return s.denied(record, policy.ReasonNotFound), nil
		case errors.Is(err, repository.ErrConditionFailed):
			return s.denied(record, s.lostRaceReason(ctx, record.ID)), nil
		default:
			downloadsTotal.WithLabelValues("error", "").Inc()
			return nil, unavailable("record download", err)
		}
	}
	record.DownloadCount = count

	downloadsTotal.WithLabelValues("ok", "").Inc()
	downloadBytesTotal.Add(float64(len(content)))
	log.WithField("download_count", count).Info("File downloaded")

	return &DownloadResult{
		Decision:    policy.Allow(),
		Content:     content,
		Filename:    record.OriginalName,
		ContentType: record.ContentType,
		Record:      record,
	}, nil
}

// lostRaceReason explains a refused increment: the record was either
// deactivated meanwhile or another download took the last unit.
func (s *FileService) lostRaceReason(ctx context.Context, id primitive.ObjectID) policy.Reason {
	fresh, err := s.repo.GetByID(ctx, id)
	if err == nil && !fresh.Active {
		return policy.ReasonInactive
	}
	return policy.ReasonLimitReached
}

func (s *FileService) denied(record *models.FileRecord, reason policy.Reason) *DownloadResult {
	downloadsTotal.WithLabelValues("denied", string(reason)).Inc()

	entry := s.logger.WithField("reason", reason)
	if record != nil {
		entry = entry.WithField("file_id", record.ID.Hex())
	}
	entry.Info("Download denied")

	return &DownloadResult{Decision: policy.Deny(reason)}
}

// Info returns sanitized metadata. Owners always see their record including
// the share token; everyone else sees only available files and never the
// owner identity.
func (s *FileService) Info(ctx context.Context, loc Locator, requesterID string) (*InfoResult, error) {
	record, err := s.resolve(ctx, loc)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &InfoResult{Decision: policy.Deny(policy.ReasonNotFound)}, nil
	}

	if requesterID != "" && record.OwnerID == requesterID {
		return &InfoResult{Decision: policy.Allow(), Info: models.NewFileInfo(record, true)}, nil
	}

	decision := s.policy.Availability(record, s.now())
	if !decision.Allowed {
		return &InfoResult{Decision: decision}, nil
	}
	return &InfoResult{Decision: decision, Info: models.NewFileInfo(record, false)}, nil
}

// ListUserFiles returns the owner's files, newest first. Unless
// includeExpired is set, inactive and already expired files are left out.
func (s *FileService) ListUserFiles(ctx context.Context, ownerID string, includeExpired bool) ([]*models.FileInfo, error) {
	var records []*models.FileRecord
	err := s.retry.do(ctx, "list_records", func() error {
		var err error
		records, err = s.repo.ListByOwner(ctx, ownerID, includeExpired)
		return err
	})
	if err != nil {
		return nil, unavailable("list records", err)
	}

	now := s.now()
	files := make([]*models.FileInfo, 0, len(records))
	for _, record := range records {
		if !includeExpired && record.IsExpiredAt(now) {
			continue
		}
		files = append(files, models.NewFileInfo(record, true))
	}
	return files, nil
}

// Delete removes the blob and then deactivates the record. Only the owner
// may delete; a share token never authorizes it.
func (s *FileService) Delete(ctx context.Context, id, requesterID string) error {
	record, err := s.resolve(ctx, ByID(id))
	if err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		return err
	}
	if record == nil {
		deletesTotal.WithLabelValues("not_found").Inc()
		return ErrNotFound
	}
	if requesterID == "" || record.OwnerID != requesterID {
		deletesTotal.WithLabelValues("forbidden").Inc()
		s.logger.WithFields(logrus.Fields{
			"file_id":   id,
			"requester": requesterID,
		}).Warn("Delete refused for non-owner")
		return ErrForbidden
	}

	log := s.logger.WithFields(logrus.Fields{
		"file_id":     id,
		"blob_handle": record.BlobHandle,
	})

	if err := s.blobs.Delete(ctx, record.BlobHandle); err != nil {
		if !errors.Is(err, storage.ErrBlobNotFound) {
			deletesTotal.WithLabelValues("error").Inc()
			return unavailable("delete blob", err)
		}
		log.Debug("Blob already gone")
	}

	if err := s.repo.Deactivate(ctx, record.ID); err != nil {
		deletesTotal.WithLabelValues("error").Inc()
		return unavailable("deactivate record", err)
	}

	deletesTotal.WithLabelValues("ok").Inc()
	log.Info("File deleted")
	return nil
}

// Cleanup runs an expiry sweep on behalf of an administrator.
func (s *FileService) Cleanup(ctx context.Context, principal *models.Principal) (int64, error) {
	if principal == nil || !principal.Admin {
		return 0, ErrForbidden
	}
	return s.ExpirySweep(ctx)
}

// ExpirySweep deactivates every record whose expiry has passed, using the
// service clock.
func (s *FileService) ExpirySweep(ctx context.Context) (int64, error) {
	return s.expiry.sweepAt(ctx, s.now().UTC())
}
