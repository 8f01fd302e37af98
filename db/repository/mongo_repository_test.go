package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func keyDoc(hash string, used, limit int64, active bool) bson.D {
	return bson.D{
		{Key: "_id", Value: primitive.NewObjectID()},
		{Key: "name", Value: "ci"},
		{Key: "key_hash", Value: hash},
		{Key: "requests_limit", Value: limit},
		{Key: "requests_used", Value: used},
		{Key: "active", Value: active},
	}
}

func TestHashAndGenerate(t *testing.T) {
	plain, err := GenerateKey()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(plain, "sk_"))
	assert.Len(t, plain, 43)

	h := HashKey(plain)
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashKey(" "+plain+" "))
	assert.NotEqual(t, h, HashKey(plain+"x"))
}

func TestConsumeKey(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	hash := HashKey("sk_live")

	mt.Run("increments", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: keyDoc(hash, 4, 10, true)}))

		key, err := NewMongoRepo(mt.DB).ConsumeKey(context.Background(), "sk_live")
		require.NoError(t, err)
		assert.Equal(t, int64(6), key.Remaining())
	})

	mt.Run("quota exceeded", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "db.api_keys", mtest.FirstBatch, keyDoc(hash, 10, 10, true)),
		)

		key, err := NewMongoRepo(mt.DB).ConsumeKey(context.Background(), "sk_live")
		assert.ErrorIs(t, err, ErrQuotaExceeded)
		require.NotNil(t, key)
		assert.Equal(t, int64(0), key.Remaining())
	})

	mt.Run("revoked", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "db.api_keys", mtest.FirstBatch, keyDoc(hash, 1, 10, false)),
		)

		_, err := NewMongoRepo(mt.DB).ConsumeKey(context.Background(), "sk_live")
		assert.ErrorIs(t, err, ErrKeyRevoked)
	})

	mt.Run("unknown", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "db.api_keys", mtest.FirstBatch),
		)

		_, err := NewMongoRepo(mt.DB).ConsumeKey(context.Background(), "sk_nope")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})
}

func TestRevokeKey(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("bad id", func(mt *mtest.T) {
		assert.ErrorIs(t, NewMongoRepo(mt.DB).RevokeKey(context.Background(), "zzz"), ErrKeyNotFound)
	})

	mt.Run("no match", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		err := NewMongoRepo(mt.DB).RevokeKey(context.Background(), primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	mt.Run("revoked", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		assert.NoError(t, NewMongoRepo(mt.DB).RevokeKey(context.Background(), primitive.NewObjectID().Hex()))
	})
}

func TestProviderDomain(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("override", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.provider_domains", mtest.FirstBatch,
			bson.D{{Key: "provider", Value: "hdhub4u"}, {Key: "base_url", Value: "https://hdhub4u.new"}}))

		got, err := NewMongoRepo(mt.DB).ProviderDomain(context.Background(), "HDHub4u")
		require.NoError(t, err)
		assert.Equal(t, "https://hdhub4u.new", got)
	})

	mt.Run("none", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "db.provider_domains", mtest.FirstBatch))

		got, err := NewMongoRepo(mt.DB).ProviderDomain(context.Background(), "vegamovies")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
