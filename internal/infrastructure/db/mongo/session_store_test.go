package mongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/adminkit/admin-console/internal/core/domain"
)

func TestSessionStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("load missing profile is empty", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		store := newSessionStore(mt.Coll, "default")
		creds, err := store.Load(context.Background())
		require.NoError(mt, err)
		assert.True(mt, creds.IsZero())
	})

	mt.Run("load existing profile", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "default"},
			{Key: "access_token", Value: "a1"},
			{Key: "refresh_token", Value: "r1"},
			{Key: "preferences", Value: bson.D{{Key: "dark_mode", Value: true}}},
		}))

		store := newSessionStore(mt.Coll, "default")
		creds, err := store.Load(context.Background())
		require.NoError(mt, err)
		assert.Equal(mt, domain.Credentials{AccessToken: "a1", RefreshToken: "r1"}, creds)
	})

	mt.Run("save upserts both tokens", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		store := newSessionStore(mt.Coll, "default")
		err := store.Save(context.Background(), domain.Credentials{AccessToken: "a1", RefreshToken: "r1"})
		require.NoError(mt, err)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "update", evt.CommandName)
		update := firstUpdate(mt, evt.Command)
		assert.True(mt, update.Lookup("upsert").Boolean())
		set := update.Lookup("u", "$set")
		assert.Equal(mt, "a1", set.Document().Lookup("access_token").StringValue())
		assert.Equal(mt, "r1", set.Document().Lookup("refresh_token").StringValue())
	})

	mt.Run("set access token leaves refresh slot alone", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		store := newSessionStore(mt.Coll, "default")
		require.NoError(mt, store.SetAccessToken(context.Background(), "a2"))

		evt := mt.GetStartedEvent()
		set := firstUpdate(mt, evt.Command).Lookup("u", "$set").Document()
		_, err := set.LookupErr("refresh_token")
		assert.Error(mt, err)
		assert.Equal(mt, "a2", set.Lookup("access_token").StringValue())
	})

	mt.Run("write error is returned", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    11000,
			Message: "boom",
		}))

		store := newSessionStore(mt.Coll, "default")
		err := store.Clear(context.Background())
		assert.ErrorContains(mt, err, "clear credentials")
	})
}

func firstUpdate(mt *mtest.T, cmd bson.Raw) bson.Raw {
	mt.Helper()
	updates, err := cmd.Lookup("updates").Array().Values()
	require.NoError(mt, err)
	require.NotEmpty(mt, updates)
	return updates[0].Document()
}
