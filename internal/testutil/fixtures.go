package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/crushnote/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures inserts documents directly, bypassing engine rules, so tests can
// arrange any starting state.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts a user with the given email and display name.
func (f *Fixtures) CreateUser(ctx context.Context, email, name string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateGroup inserts a group. The creator is added to members if missing.
func (f *Fixtures) CreateGroup(ctx context.Context, name, creator string, members, invited []string) models.Group {
	f.t.Helper()

	found := false
	for _, m := range members {
		if m == creator {
			found = true
		}
	}
	if !found {
		members = append([]string{creator}, members...)
	}
	if invited == nil {
		invited = []string{}
	}

	now := time.Now().UTC()
	g := models.Group{
		ID:            primitive.NewObjectID(),
		Name:          name,
		NameCI:        text.Fold(name),
		CreatorEmail:  creator,
		MemberEmails:  members,
		InvitedEmails: invited,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateLetter inserts a letter with the given timestamp.
func (f *Fixtures) CreateLetter(ctx context.Context, from, to string, groupID primitive.ObjectID, content string, ts time.Time) models.Letter {
	f.t.Helper()

	l := models.Letter{
		ID:          primitive.NewObjectID(),
		FromEmail:   from,
		FromGroupID: groupID,
		ToEmail:     to,
		Content:     content,
		Timestamp:   ts.UTC(),
	}
	if _, err := f.db.Collection("letters").InsertOne(ctx, l); err != nil {
		f.t.Fatalf("failed to create test letter: %v", err)
	}
	return l
}
