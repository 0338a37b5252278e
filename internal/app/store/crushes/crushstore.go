// internal/app/store/crushes/crushstore.go
package crushstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/crushnote/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when the requested slot does not exist.
var ErrNotFound = errors.New("crush not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("crushes")}
}

// Upsert writes the (from, month) slot in a single operation: it re-targets
// an existing slot or creates it. The unique (from_email, month) index keeps
// concurrent submissions from producing two slots.
func (s *Store) Upsert(ctx context.Context, from, month, to, message string) (models.Crush, error) {
	now := time.Now().UTC()
	filter := bson.M{"from_email": from, "month": month}
	update := bson.M{
		"$set": bson.M{
			"to_email":   to,
			"message":    message,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var c models.Crush
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	if err != nil && wafflemongo.IsDup(err) {
		// A concurrent upsert inserted the slot first; this one now updates it.
		err = s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	}
	if err != nil {
		return models.Crush{}, err
	}
	return c, nil
}

// Get returns the slot of from for month.
func (s *Store) Get(ctx context.Context, from, month string) (models.Crush, error) {
	return s.findOne(ctx, bson.M{"from_email": from, "month": month})
}

// GetReciprocal returns from's slot for month only if it targets to.
func (s *Store) GetReciprocal(ctx context.Context, from, to, month string) (models.Crush, error) {
	return s.findOne(ctx, bson.M{"from_email": from, "to_email": to, "month": month})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Crush, error) {
	var c models.Crush
	err := s.c.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Crush{}, ErrNotFound
	}
	if err != nil {
		return models.Crush{}, err
	}
	return c, nil
}

// Delete removes the slot. Returns the number of documents deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, from, month string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"from_email": from, "month": month})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListFrom returns every slot from has held before month, newest first.
func (s *Store) ListFrom(ctx context.Context, from, beforeMonth string) ([]models.Crush, error) {
	filter := bson.M{"from_email": from, "month": bson.M{"$lt": beforeMonth}}
	opts := options.Find().SetSort(bson.D{{Key: "month", Value: -1}})
	return s.find(ctx, filter, opts)
}

// ListTargeting returns the slots held by any of senders that name to.
func (s *Store) ListTargeting(ctx context.Context, to string, senders []string) ([]models.Crush, error) {
	if len(senders) == 0 {
		return []models.Crush{}, nil
	}
	filter := bson.M{"to_email": to, "from_email": bson.M{"$in": senders}}
	return s.find(ctx, filter, options.Find())
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Crush, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Crush{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
