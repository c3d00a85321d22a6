package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"secureshare/models"
)

// MemoryFileRepository keeps records in process memory. It is used by tests
// and by single-node deployments started with METADATA_DRIVER=memory.
type MemoryFileRepository struct {
	mu      sync.RWMutex
	records map[primitive.ObjectID]*models.FileRecord
	tokens  map[string]primitive.ObjectID
}

func NewMemoryFileRepository() *MemoryFileRepository {
	return &MemoryFileRepository{
		records: make(map[primitive.ObjectID]*models.FileRecord),
		tokens:  make(map[string]primitive.ObjectID),
	}
}

func (r *MemoryFileRepository) Create(_ context.Context, record *models.FileRecord) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ShareToken != "" {
		if _, taken := r.tokens[record.ShareToken]; taken {
			return primitive.NilObjectID, ErrDuplicateToken
		}
	}

	stored := record.Clone()
	stored.ID = primitive.NewObjectID()
	r.records[stored.ID] = stored
	if stored.ShareToken != "" {
		r.tokens[stored.ShareToken] = stored.ID
	}

	record.ID = stored.ID
	return stored.ID, nil
}

func (r *MemoryFileRepository) GetByID(_ context.Context, id primitive.ObjectID) (*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return record.Clone(), nil
}

func (r *MemoryFileRepository) GetByToken(_ context.Context, token string) (*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.tokens[token]
	if !ok {
		return nil, ErrNotFound
	}
	return r.records[id].Clone(), nil
}

func (r *MemoryFileRepository) ListByOwner(_ context.Context, ownerID string, includeInactive bool) ([]*models.FileRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*models.FileRecord, 0)
	for _, record := range r.records {
		if record.OwnerID != ownerID {
			continue
		}
		if !includeInactive && !record.Active {
			continue
		}
		records = append(records, record.Clone())
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID.Hex() > records[j].ID.Hex()
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (r *MemoryFileRepository) IncrementDownloadCount(_ context.Context, id primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return 0, ErrNotFound
	}
	if !record.Active || record.LimitReached() {
		return 0, ErrConditionFailed
	}
	record.DownloadCount++
	return record.DownloadCount, nil
}

func (r *MemoryFileRepository) Deactivate(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if record.Active {
		now := time.Now().UTC()
		record.Active = false
		record.DeactivatedAt = &now
	}
	return nil
}

func (r *MemoryFileRepository) SweepExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var swept int64
	for _, record := range r.records {
		if record.Active && record.IsExpiredAt(now) {
			deactivatedAt := now
			record.Active = false
			record.DeactivatedAt = &deactivatedAt
			swept++
		}
	}
	return swept, nil
}
