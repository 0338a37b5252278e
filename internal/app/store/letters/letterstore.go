// internal/app/store/letters/letterstore.go
package letterstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/crushnote/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when the letter does not exist.
var ErrNotFound = errors.New("letter not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("letters")}
}

// Insert stores l under a new ID.
func (s *Store) Insert(ctx context.Context, l models.Letter) (models.Letter, error) {
	l.ID = primitive.NewObjectID()
	l.Timestamp = l.Timestamp.UTC()
	if _, err := s.c.InsertOne(ctx, l); err != nil {
		return models.Letter{}, err
	}
	return l, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Letter, error) {
	var l models.Letter
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Letter{}, ErrNotFound
	}
	if err != nil {
		return models.Letter{}, err
	}
	return l, nil
}

// ListFor returns every letter email sent, plus the letters email received
// with a timestamp strictly before receivedBefore, newest first.
func (s *Store) ListFor(ctx context.Context, email string, receivedBefore time.Time) ([]models.Letter, error) {
	filter := bson.M{"$or": []bson.M{
		{"from_email": email},
		{"to_email": email, "timestamp": bson.M{"$lt": receivedBefore.UTC()}},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Letter{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetReply records the one-shot reply. The write only matches while the
// letter is addressed to to and has no reply yet, so two racing replies
// cannot both succeed. Reports false when nothing matched.
func (s *Store) SetReply(ctx context.Context, id primitive.ObjectID, to, content string, at time.Time) (bool, error) {
	filter := bson.M{
		"_id":      id,
		"to_email": to,
		"$or": []bson.M{
			{"reply_content": bson.M{"$exists": false}},
			{"reply_content": ""},
		},
	}
	update := bson.M{"$set": bson.M{
		"reply_content":   content,
		"reply_timestamp": at.UTC(),
	}}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}
