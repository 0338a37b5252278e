package groupsvc_test

import (
	"context"
	"sync"
	"time"

	groupstore "github.com/dalemusser/crushnote/internal/app/store/groups"
	"github.com/dalemusser/crushnote/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeStore is an in-memory groupsvc.Store with the same conditional-update
// semantics as the Mongo store.
type fakeStore struct {
	mu     sync.Mutex
	groups map[primitive.ObjectID]models.Group
	seq    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{groups: map[primitive.ObjectID]models.Group{}}
}

func clone(g models.Group) models.Group {
	g.MemberEmails = append([]string{}, g.MemberEmails...)
	g.InvitedEmails = append([]string{}, g.InvitedEmails...)
	return g
}

func (f *fakeStore) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return models.Group{}, groupstore.ErrNotFound
	}
	return clone(g), nil
}

func (f *fakeStore) ListForEmail(_ context.Context, email string) ([]models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Group{}
	for _, g := range f.groups {
		if g.HasMember(email) || g.IsInvited(email) {
			out = append(out, clone(g))
		}
	}
	return out, nil
}

func (f *fakeStore) CountByCreator(_ context.Context, email string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, g := range f.groups {
		if g.CreatorEmail == email {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Create(_ context.Context, g models.Group) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	g.ID = primitive.NewObjectID()
	g.Version = 1
	g.CreatedAt = time.Now().Add(time.Duration(f.seq) * time.Millisecond)
	if g.InvitedEmails == nil {
		g.InvitedEmails = []string{}
	}
	f.groups[g.ID] = clone(g)
	return clone(g), nil
}

func (f *fakeStore) SaveIfVersion(_ context.Context, g models.Group) (models.Group, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.groups[g.ID]
	if !ok || cur.Version != g.Version {
		return models.Group{}, groupstore.ErrVersionConflict
	}
	g.Version++
	f.groups[g.ID] = clone(g)
	return clone(g), nil
}

func (f *fakeStore) AcceptInvitation(_ context.Context, id primitive.ObjectID, email string) (bool, error) {
	return f.mutate(id, func(g *models.Group) bool {
		if !g.IsInvited(email) {
			return false
		}
		g.InvitedEmails = without(g.InvitedEmails, email)
		if !g.HasMember(email) {
			g.MemberEmails = append(g.MemberEmails, email)
		}
		return true
	})
}

func (f *fakeStore) DeclineInvitation(_ context.Context, id primitive.ObjectID, email string) (bool, error) {
	return f.mutate(id, func(g *models.Group) bool {
		if !g.IsInvited(email) {
			return false
		}
		g.InvitedEmails = without(g.InvitedEmails, email)
		return true
	})
}

func (f *fakeStore) RemoveMember(_ context.Context, id primitive.ObjectID, email string) (bool, error) {
	return f.mutate(id, func(g *models.Group) bool {
		if !g.HasMember(email) || g.CreatorEmail == email {
			return false
		}
		g.MemberEmails = without(g.MemberEmails, email)
		return true
	})
}

func (f *fakeStore) DeleteByCreator(_ context.Context, id primitive.ObjectID, creator string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok || g.CreatorEmail != creator {
		return 0, nil
	}
	delete(f.groups, id)
	return 1, nil
}

func (f *fakeStore) mutate(id primitive.ObjectID, fn func(*models.Group) bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.groups[id]
	if !ok {
		return false, nil
	}
	g = clone(g)
	if !fn(&g) {
		return false, nil
	}
	g.Version++
	f.groups[id] = g
	return true, nil
}

func without(list []string, drop string) []string {
	out := []string{}
	for _, v := range list {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
