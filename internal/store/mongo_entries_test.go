package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(mt *mtest.T) *MongoEntries {
	return &MongoEntries{coll: mt.Coll, now: func() time.Time { return fixedNow }}
}

func entryBSON(id primitive.ObjectID, owner, date string, mood models.Mood) bson.D {
	return bson.D{
		{Key: "_id", Value: id},
		{Key: "userId", Value: owner},
		{Key: "date", Value: date},
		{Key: "time", Value: "09:00 AM"},
		{Key: "mood", Value: string(mood)},
		{Key: "description", Value: bson.A{"calm"}},
		{Key: "activities", Value: bson.A{}},
		{Key: "createdAt", Value: primitive.NewDateTimeFromTime(fixedNow)},
		{Key: "updatedAt", Value: primitive.NewDateTimeFromTime(fixedNow)},
	}
}

func TestMongoEntries_Mock(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		s := newMockStore(mt)

		e, err := s.Insert(context.Background(), &models.Entry{OwnerID: "user-a", Date: "2024-06-01", Time: "12:00 PM", Mood: models.MoodNeutral})
		require.NoError(mt, err)
		assert.Len(mt, e.ID, 24)
		assert.Equal(mt, "user-a", e.OwnerID)
		assert.Equal(mt, fixedNow, e.CreatedAt)
		assert.Equal(mt, []string{}, e.Feelings)
	})

	mt.Run("insert error", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Message: "duplicate key"}))
		s := newMockStore(mt)

		_, err := s.Insert(context.Background(), &models.Entry{OwnerID: "user-a"})
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, models.ErrNotFound)
	})

	mt.Run("list", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		id1, id2 := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch,
				entryBSON(id1, "user-a", "2024-06-02", models.MoodPleasant),
				entryBSON(id2, "user-a", "2024-06-01", models.MoodNeutral),
			),
		)
		s := newMockStore(mt)

		got, total, err := s.ListByOwner(context.Background(), "user-a", models.EntryQuery{From: "2024-06-01", Limit: 10})
		require.NoError(mt, err)
		assert.EqualValues(mt, 2, total)
		require.Len(mt, got, 2)
		assert.Equal(mt, id1.Hex(), got[0].ID)
		assert.Equal(mt, models.MoodPleasant, got[0].Mood)
		assert.Equal(mt, []string{"calm"}, got[0].Feelings)
		assert.Equal(mt, []string{}, got[1].Activities)
	})

	mt.Run("list empty", func(mt *mtest.T) {
		ns := mt.Coll.Database().Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)
		s := newMockStore(mt)

		got, total, err := s.ListByOwner(context.Background(), "user-a", models.EntryQuery{})
		require.NoError(mt, err)
		assert.Zero(mt, total)
		assert.NotNil(mt, got)
		assert.Empty(mt, got)
	})

	mt.Run("update returns document", func(mt *mtest.T) {
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "value", Value: entryBSON(id, "user-a", "2024-06-01", models.MoodVeryPleasant)},
		))
		s := newMockStore(mt)

		mood := models.MoodVeryPleasant
		e, err := s.UpdateOwned(context.Background(), id.Hex(), "user-a", models.EntryPatch{Mood: &mood})
		require.NoError(mt, err)
		assert.Equal(mt, id.Hex(), e.ID)
		assert.Equal(mt, models.MoodVeryPleasant, e.Mood)
	})

	mt.Run("update miss", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))
		s := newMockStore(mt)

		_, err := s.UpdateOwned(context.Background(), primitive.NewObjectID().Hex(), "user-b", models.EntryPatch{})
		assert.ErrorIs(mt, err, models.ErrNotFound)
	})

	mt.Run("delete", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}))
		s := newMockStore(mt)

		require.NoError(mt, s.DeleteOwned(context.Background(), primitive.NewObjectID().Hex(), "user-a"))
	})

	mt.Run("delete miss", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))
		s := newMockStore(mt)

		err := s.DeleteOwned(context.Background(), primitive.NewObjectID().Hex(), "user-b")
		assert.ErrorIs(mt, err, models.ErrNotFound)
	})

	mt.Run("malformed id skips the server", func(mt *mtest.T) {
		s := newMockStore(mt)

		_, err := s.UpdateOwned(context.Background(), "12345", "user-a", models.EntryPatch{})
		assert.ErrorIs(mt, err, models.ErrNotFound)
		assert.ErrorIs(mt, s.DeleteOwned(context.Background(), "zzz", "user-a"), models.ErrNotFound)
	})
}
