// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/crushnote/internal/app/system/normalize"
	"github.com/dalemusser/crushnote/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no user has the given email.
var ErrNotFound = errors.New("user not found")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// Ensure returns the user for email, creating an empty profile on first
// sight. Concurrent first logins for the same email converge on one document
// through the unique email index.
func (s *Store) Ensure(ctx context.Context, email string) (models.User, error) {
	email = normalize.Email(email)
	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": bson.M{
			"name":       "",
			"name_ci":    "",
			"lang":       "",
			"created_at": now,
			"updated_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&u)
	if err != nil && wafflemongo.IsDup(err) {
		// Lost the insert race; the winner's document is there now.
		err = s.c.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks up a user by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// UpdateProfile sets the provided fields and returns the updated user.
// Nil fields are left unchanged.
func (s *Store) UpdateProfile(ctx context.Context, email string, name, lang *string) (models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != nil {
		set["name"] = *name
		set["name_ci"] = text.Fold(*name)
	}
	if lang != nil {
		set["lang"] = *lang
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"email": normalize.Email(email)}, bson.M{"$set": set}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}

// NamesByEmail returns the display name of every known email that has one.
func (s *Store) NamesByEmail(ctx context.Context, emails []string) (map[string]string, error) {
	out := make(map[string]string, len(emails))
	if len(emails) == 0 {
		return out, nil
	}
	filter := bson.M{"email": bson.M{"$in": emails}, "name": bson.M{"$ne": ""}}
	opts := options.Find().SetProjection(bson.M{"email": 1, "name": 1})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			Email string `bson:"email"`
			Name  string `bson:"name"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Email] = row.Name
	}
	return out, cur.Err()
}
