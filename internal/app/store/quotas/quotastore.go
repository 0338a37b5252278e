// internal/app/store/quotas/quotastore.go
package quotastore

import (
	"context"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store keeps one counter document per (email, day) in letter_quotas.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("letter_quotas")}
}

// Take claims one unit of email's quota for day. It reports false, without
// error, when limit units are already taken.
//
// The filter only matches while count < limit. Once the limit is reached the
// upsert tries to insert a second (email, day) document, which the unique
// index rejects; that duplicate-key error is the "exhausted" signal.
func (s *Store) Take(ctx context.Context, email, day string, limit int, expiresAt time.Time) (bool, error) {
	filter := bson.M{"email": email, "day": day, "count": bson.M{"$lt": limit}}
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$setOnInsert": bson.M{"expires_at": expiresAt.UTC()},
	}
	_, err := s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release gives back one unit, used when the letter insert fails after Take.
func (s *Store) Release(ctx context.Context, email, day string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"email": email, "day": day, "count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"count": -1}})
	return err
}

// Used returns how many units email has taken on day.
func (s *Store) Used(ctx context.Context, email, day string) (int, error) {
	var row struct {
		Count int `bson:"count"`
	}
	err := s.c.FindOne(ctx, bson.M{"email": email, "day": day}).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Count, nil
}
