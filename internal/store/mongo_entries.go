package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AnshRaj112/moodlog-backend/internal/models"
)

// EntriesCollection is the MongoDB collection holding entries.
const EntriesCollection = "entries"

// entryDocument is the persisted shape of an entry.
type entryDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	UserID     string             `bson:"userId"`
	Date       string             `bson:"date"`
	Time       string             `bson:"time"`
	Mood       string             `bson:"mood"`
	Feelings   []string           `bson:"description"`
	Activities []string           `bson:"activities"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d entryDocument) toModel() models.Entry {
	return cloneEntry(models.Entry{
		ID:         d.ID.Hex(),
		OwnerID:    d.UserID,
		Date:       d.Date,
		Time:       d.Time,
		Mood:       models.Mood(d.Mood),
		Feelings:   d.Feelings,
		Activities: d.Activities,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	})
}

// MongoEntries stores entries in MongoDB. Every mutation filters on both _id and
// userId so a foreign entry is indistinguishable from a missing one.
type MongoEntries struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoEntries(db *mongo.Database) *MongoEntries {
	return &MongoEntries{coll: db.Collection(EntriesCollection), now: time.Now}
}

// EnsureIndexes creates the owner listing index.
func (s *MongoEntries) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("userId_date_createdAt"),
	})
	if err != nil {
		return fmt.Errorf("create entries index: %w", err)
	}
	return nil
}

func (s *MongoEntries) Insert(ctx context.Context, entry *models.Entry) (*models.Entry, error) {
	// Mongo keeps millisecond precision.
	now := s.now().UTC().Truncate(time.Millisecond)
	doc := entryDocument{
		ID:         primitive.NewObjectID(),
		UserID:     entry.OwnerID,
		Date:       entry.Date,
		Time:       entry.Time,
		Mood:       string(entry.Mood),
		Feelings:   nonNil(entry.Feelings),
		Activities: nonNil(entry.Activities),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	out := doc.toModel()
	return &out, nil
}

func (s *MongoEntries) ListByOwner(ctx context.Context, ownerID string, q models.EntryQuery) ([]models.Entry, int64, error) {
	filter := bson.M{"userId": ownerID}

	dateFilter := bson.M{}
	if q.Date != "" {
		dateFilter["$eq"] = q.Date
	}
	if q.From != "" {
		dateFilter["$gte"] = q.From
	}
	if q.To != "" {
		dateFilter["$lte"] = q.To
	}
	if len(dateFilter) > 0 {
		filter["date"] = dateFilter
	}
	if q.Mood != "" {
		filter["mood"] = string(q.Mood)
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count entries: %w", err)
	}

	findOptions := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}})
	if q.Skip > 0 {
		findOptions.SetSkip(q.Skip)
	}
	if q.Limit > 0 {
		findOptions.SetLimit(q.Limit)
	}

	cursor, err := s.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("find entries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []entryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode entries: %w", err)
	}

	entries := make([]models.Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.toModel())
	}
	return entries, total, nil
}

func (s *MongoEntries) UpdateOwned(ctx context.Context, id, ownerID string, patch models.EntryPatch) (*models.Entry, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	set := bson.M{"updatedAt": s.now().UTC().Truncate(time.Millisecond)}
	if patch.Mood != nil {
		set["mood"] = string(*patch.Mood)
	}
	if patch.Feelings != nil {
		set["description"] = nonNil(*patch.Feelings)
	}
	if patch.Activities != nil {
		set["activities"] = nonNil(*patch.Activities)
	}

	var doc entryDocument
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "userId": ownerID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	out := doc.toModel()
	return &out, nil
}

func (s *MongoEntries) DeleteOwned(ctx context.Context, id, ownerID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid, "userId": ownerID})
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Ping checks the primary is reachable.
func (s *MongoEntries) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}
