package db

import (
	"context"
	"testing"
	"time"

	"github.com/healthtrack/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoRefreshRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewMongoRefreshRepository(mt.Coll)
		err := repo.InsertRefreshRecord(ctx, model.RefreshRecord{ID: "rec-1", UserID: "u1", SecretHash: "h1", ExpiresAt: expires})
		require.NoError(mt, err)
	})

	mt.Run("insert duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index: 0, Code: 11000, Message: "duplicate key error",
		}))
		repo := NewMongoRefreshRepository(mt.Coll)
		err := repo.InsertRefreshRecord(ctx, model.RefreshRecord{ID: "rec-1", UserID: "u1", SecretHash: "h1", ExpiresAt: expires})
		require.ErrorIs(mt, err, ErrDuplicate)
	})

	mt.Run("find by hash", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "rec-1"},
			{Key: "userId", Value: "u1"},
			{Key: "tokenHash", Value: "h1"},
			{Key: "expiresAt", Value: expires},
			{Key: "createdAt", Value: expires.Add(-time.Hour)},
		}))
		repo := NewMongoRefreshRepository(mt.Coll)
		got, err := repo.GetRefreshRecordByHash(ctx, "h1")
		require.NoError(mt, err)
		assert.Equal(mt, "rec-1", got.ID)
		assert.Equal(mt, "u1", got.UserID)
		assert.True(mt, got.ExpiresAt.Equal(expires))
	})

	mt.Run("find missing", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))
		repo := NewMongoRefreshRepository(mt.Coll)
		_, err := repo.GetRefreshRecordByHash(ctx, "nope")
		require.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("delete expired", func(mt *mtest.T) {
		mt.AddMockResponses(bson.D{{Key: "ok", Value: 1}, {Key: "n", Value: 2}})
		repo := NewMongoRefreshRepository(mt.Coll)
		n, err := repo.DeleteExpiredRefreshRecords(ctx, expires)
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, n)
	})
}
