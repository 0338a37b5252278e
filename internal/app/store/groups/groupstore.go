// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/crushnote/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when the group does not exist.
	ErrNotFound = errors.New("group not found")
	// ErrVersionConflict is returned when the group changed since it was read.
	ErrVersionConflict = errors.New("group was modified concurrently")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, ErrNotFound
	}
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// ListForEmail returns groups where email is a member or has an invitation,
// newest first.
func (s *Store) ListForEmail(ctx context.Context, email string) ([]models.Group, error) {
	filter := bson.M{"$or": []bson.M{
		{"member_emails": email},
		{"invited_emails": email},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Group{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountByCreator returns the number of groups email has created.
func (s *Store) CountByCreator(ctx context.Context, email string) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"creator_email": email})
}

// Create inserts g with a new ID and version 1.
func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	g.Version = 1
	g.CreatedAt = now
	g.UpdatedAt = now
	if g.MemberEmails == nil {
		g.MemberEmails = []string{}
	}
	if g.InvitedEmails == nil {
		g.InvitedEmails = []string{}
	}
	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// SaveIfVersion writes the editable fields of g only if the stored version
// still equals g.Version, then bumps the version. Returns the saved group.
func (s *Store) SaveIfVersion(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	filter := bson.M{"_id": g.ID, "version": g.Version}
	update := bson.M{
		"$set": bson.M{
			"name":           g.Name,
			"name_ci":        text.Fold(g.Name),
			"description":    g.Description,
			"member_emails":  g.MemberEmails,
			"invited_emails": g.InvitedEmails,
			"updated_at":     now,
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var out models.Group
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, ErrVersionConflict
	}
	if err != nil {
		return models.Group{}, err
	}
	return out, nil
}

// AcceptInvitation moves email from invited to members in one update.
// Reports false when email holds no invitation for the group.
func (s *Store) AcceptInvitation(ctx context.Context, id primitive.ObjectID, email string) (bool, error) {
	return s.updateOne(ctx,
		bson.M{"_id": id, "invited_emails": email},
		bson.M{
			"$pull":     bson.M{"invited_emails": email},
			"$addToSet": bson.M{"member_emails": email},
		})
}

// DeclineInvitation removes email from invited.
// Reports false when email holds no invitation for the group.
func (s *Store) DeclineInvitation(ctx context.Context, id primitive.ObjectID, email string) (bool, error) {
	return s.updateOne(ctx,
		bson.M{"_id": id, "invited_emails": email},
		bson.M{"$pull": bson.M{"invited_emails": email}})
}

// RemoveMember pulls a non-creator member. Reports false when email is not a
// member or is the creator.
func (s *Store) RemoveMember(ctx context.Context, id primitive.ObjectID, email string) (bool, error) {
	return s.updateOne(ctx,
		bson.M{"_id": id, "member_emails": email, "creator_email": bson.M{"$ne": email}},
		bson.M{"$pull": bson.M{"member_emails": email}})
}

// updateOne applies a membership change and bumps the version so a creator
// edit based on an older read fails instead of overwriting it.
func (s *Store) updateOne(ctx context.Context, filter, update bson.M) (bool, error) {
	update["$inc"] = bson.M{"version": 1}
	update["$set"] = bson.M{"updated_at": time.Now().UTC()}
	res, err := s.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// DeleteByCreator removes the group only if creator owns it.
// Returns the number of documents deleted (0 or 1).
func (s *Store) DeleteByCreator(ctx context.Context, id primitive.ObjectID, creator string) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "creator_email": creator})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// NamesByIDs maps each existing group ID to its name. Missing IDs are absent.
func (s *Store) NamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := make(map[primitive.ObjectID]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	opts := options.Find().SetProjection(bson.M{"name": 1})
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var row struct {
			ID   primitive.ObjectID `bson:"_id"`
			Name string             `bson:"name"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.Name
	}
	return out, cur.Err()
}
