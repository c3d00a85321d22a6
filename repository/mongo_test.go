package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func recordDoc(id primitive.ObjectID, count int64, active bool) bson.D {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "stored_name", Value: "a.txt"},
		{Key: "original_name", Value: "report.txt"},
		{Key: "size_bytes", Value: int64(10)},
		{Key: "content_type", Value: "text/plain"},
		{Key: "owner_id", Value: "u1"},
		{Key: "created_at", Value: now},
		{Key: "expires_at", Value: now.Add(time.Hour)},
		{Key: "download_limit", Value: int64(3)},
		{Key: "download_count", Value: count},
		{Key: "active", Value: active},
		{Key: "share_token", Value: "tok"},
		{Key: "blob_handle", Value: "h"},
	}
}

func TestMongoFileRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	ns := "secure_share.files"

	mt.Run("create assigns id", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		rec := newRecord("u1", "tok", time.Now().UTC(), time.Now().UTC().Add(time.Hour))
		id, err := repo.Create(ctx, rec)
		require.NoError(mt, err)
		assert.False(mt, id.IsZero())
		assert.Equal(mt, id, rec.ID)
	})

	mt.Run("create duplicate token", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: secure_share.files index: share_token_1",
		}))

		rec := newRecord("u1", "tok", time.Now().UTC(), time.Now().UTC().Add(time.Hour))
		_, err := repo.Create(ctx, rec)
		assert.ErrorIs(mt, err, ErrDuplicateToken)
		assert.True(mt, rec.ID.IsZero())
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, recordDoc(id, 1, true)))

		got, err := repo.GetByID(ctx, id)
		require.NoError(mt, err)
		assert.Equal(mt, id, got.ID)
		assert.Equal(mt, "report.txt", got.OriginalName)
		require.NotNil(mt, got.DownloadLimit)
		assert.Equal(mt, int64(3), *got.DownloadLimit)
		assert.Equal(mt, int64(1), got.DownloadCount)
	})

	mt.Run("get by token missing", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.GetByToken(ctx, "nope")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list by owner", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
			recordDoc(first, 0, true),
			recordDoc(second, 0, true),
		))

		records, err := repo.ListByOwner(ctx, "u1", false)
		require.NoError(mt, err)
		require.Len(mt, records, 2)
		assert.Equal(mt, first, records[0].ID)
		assert.Equal(mt, second, records[1].ID)
	})

	mt.Run("increment success", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: recordDoc(id, 2, true)},
		))

		n, err := repo.IncrementDownloadCount(ctx, id)
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), n)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "findAndModify", started.CommandName)

		query := started.Command.Lookup("query").Document()
		assert.Equal(mt, id, query.Lookup("_id").ObjectID())
		assert.True(mt, query.Lookup("active").Boolean())

		branches, err := query.Lookup("$or").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, branches, 2)
		assert.Equal(mt, bson.TypeNull, branches[0].Document().Lookup("download_limit").Type)

		operands, err := branches[1].Document().Lookup("$expr", "$lt").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, operands, 2)
		assert.Equal(mt, "$download_count", operands[0].StringValue())
		assert.Equal(mt, "$download_limit", operands[1].StringValue())

		inc := started.Command.Lookup("update", "$inc", "download_count")
		assert.Equal(mt, int64(1), inc.AsInt64())
	})

	mt.Run("increment limit reached", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, recordDoc(id, 3, true)),
		)

		_, err := repo.IncrementDownloadCount(ctx, id)
		assert.ErrorIs(mt, err, ErrConditionFailed)
	})

	mt.Run("increment missing record", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		_, err := repo.IncrementDownloadCount(ctx, primitive.NewObjectID())
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("deactivate active record", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		assert.NoError(mt, repo.Deactivate(ctx, primitive.NewObjectID()))
	})

	mt.Run("deactivate already inactive", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		id := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, recordDoc(id, 0, false)),
		)

		assert.NoError(mt, repo.Deactivate(ctx, id))
	})

	mt.Run("deactivate missing", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		assert.ErrorIs(mt, repo.Deactivate(ctx, primitive.NewObjectID()), ErrNotFound)
	})

	mt.Run("sweep expired", func(mt *mtest.T) {
		repo := NewMongoFileRepository(mt.Coll)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 4},
			bson.E{Key: "nModified", Value: 4},
		))

		now := time.Now().UTC().Truncate(time.Millisecond)
		swept, err := repo.SweepExpired(ctx, now)
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), swept)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)

		updates, err := started.Command.Lookup("updates").Array().Values()
		require.NoError(mt, err)
		require.Len(mt, updates, 1)
		assert.True(mt, updates[0].Document().Lookup("multi").Boolean())

		query := updates[0].Document().Lookup("q").Document()
		assert.True(mt, query.Lookup("active").Boolean())
		assert.True(mt, now.Equal(query.Lookup("expires_at", "$lt").Time()))
		_, err = query.LookupErr("expires_at", "$lte")
		assert.Error(mt, err, "the sweep boundary must stay strict")
	})
}
