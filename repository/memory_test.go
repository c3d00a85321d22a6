package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"secureshare/models"
)

func newRecord(owner, token string, created, expires time.Time) *models.FileRecord {
	return &models.FileRecord{
		StoredName:   "stored.txt",
		OriginalName: "report.txt",
		SizeBytes:    10,
		ContentType:  "text/plain",
		OwnerID:      owner,
		CreatedAt:    created,
		ExpiresAt:    expires,
		Active:       true,
		ShareToken:   token,
		BlobHandle:   "blob-" + token,
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestMemoryCreateAssignsIDAndCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	now := time.Now().UTC()

	rec := newRecord("u1", "tok-1", now, now.Add(time.Hour))
	id, err := repo.Create(ctx, rec)
	require.NoError(t, err)
	assert.False(t, id.IsZero())
	assert.Equal(t, id, rec.ID)

	rec.OriginalName = "mutated.txt"
	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "report.txt", got.OriginalName)

	got.DownloadCount = 99
	again, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(0), again.DownloadCount)
}

func TestMemoryDuplicateToken(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	now := time.Now().UTC()

	_, err := repo.Create(ctx, newRecord("u1", "same", now, now.Add(time.Hour)))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newRecord("u2", "same", now, now.Add(time.Hour)))
	assert.ErrorIs(t, err, ErrDuplicateToken)
}

func TestMemoryLookups(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	now := time.Now().UTC()

	id, err := repo.Create(ctx, newRecord("u1", "tok-a", now, now.Add(time.Hour)))
	require.NoError(t, err)

	byToken, err := repo.GetByToken(ctx, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, id, byToken.ID)

	_, err = repo.GetByToken(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetByID(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	base := time.Now().UTC()

	oldID, err := repo.Create(ctx, newRecord("u1", "t1", base.Add(-2*time.Hour), base.Add(time.Hour)))
	require.NoError(t, err)
	newID, err := repo.Create(ctx, newRecord("u1", "t2", base.Add(-time.Hour), base.Add(time.Hour)))
	require.NoError(t, err)
	goneID, err := repo.Create(ctx, newRecord("u1", "t3", base, base.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newRecord("u2", "t4", base, base.Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(ctx, goneID))

	active, err := repo.ListByOwner(ctx, "u1", false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, newID, active[0].ID)
	assert.Equal(t, oldID, active[1].ID)

	all, err := repo.ListByOwner(ctx, "u1", true)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, goneID, all[0].ID)

	none, err := repo.ListByOwner(ctx, "nobody", true)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestMemoryIncrementRespectsLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	now := time.Now().UTC()

	rec := newRecord("u1", "t", now, now.Add(time.Hour))
	rec.DownloadLimit = int64Ptr(2)
	id, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	n, err := repo.IncrementDownloadCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.IncrementDownloadCount(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.IncrementDownloadCount(ctx, id)
	assert.ErrorIs(t, err, ErrConditionFailed)

	_, err = repo.IncrementDownloadCount(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryIncrementInactive(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	now := time.Now().UTC()

	id, err := repo.Create(ctx, newRecord("u1", "t", now, now.Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, repo.Deactivate(ctx, id))

	_, err = repo.IncrementDownloadCount(ctx, id)
	assert.ErrorIs(t, err, ErrConditionFailed)
}

func TestMemoryConcurrentIncrementNeverExceedsLimit(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	now := time.Now().UTC()

	rec := newRecord("u1", "t", now, now.Add(time.Hour))
	rec.DownloadLimit = int64Ptr(5)
	id, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var granted int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.IncrementDownloadCount(ctx, id); err == nil {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), granted)
	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.DownloadCount)
}

func TestMemoryDeactivateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	now := time.Now().UTC()

	id, err := repo.Create(ctx, newRecord("u1", "t", now, now.Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, repo.Deactivate(ctx, id))
	first, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, first.DeactivatedAt)

	require.NoError(t, repo.Deactivate(ctx, id))
	second, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, second.Active)
	assert.Equal(t, *first.DeactivatedAt, *second.DeactivatedAt)

	assert.ErrorIs(t, repo.Deactivate(ctx, primitive.NewObjectID()), ErrNotFound)
}

func TestMemorySweepExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryFileRepository()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	expiredID, err := repo.Create(ctx, newRecord("u1", "a", now.Add(-2*time.Hour), now.Add(-time.Minute)))
	require.NoError(t, err)
	boundaryID, err := repo.Create(ctx, newRecord("u1", "b", now.Add(-time.Hour), now))
	require.NoError(t, err)
	liveID, err := repo.Create(ctx, newRecord("u1", "c", now, now.Add(time.Hour)))
	require.NoError(t, err)

	swept, err := repo.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	swept, err = repo.SweepExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), swept)

	expired, _ := repo.GetByID(ctx, expiredID)
	boundary, _ := repo.GetByID(ctx, boundaryID)
	live, _ := repo.GetByID(ctx, liveID)
	assert.False(t, expired.Active)
	assert.True(t, boundary.Active)
	assert.True(t, live.Active)
}
