package lettersvc_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	groupstore "github.com/dalemusser/crushnote/internal/app/store/groups"
	letterstore "github.com/dalemusser/crushnote/internal/app/store/letters"
	"github.com/dalemusser/crushnote/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeLetters struct {
	mu        sync.Mutex
	letters   map[primitive.ObjectID]models.Letter
	failWrite bool
}

func newFakeLetters() *fakeLetters {
	return &fakeLetters{letters: map[primitive.ObjectID]models.Letter{}}
}

func (f *fakeLetters) Insert(_ context.Context, l models.Letter) (models.Letter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return models.Letter{}, errors.New("insert failed")
	}
	l.ID = primitive.NewObjectID()
	f.letters[l.ID] = l
	return l, nil
}

func (f *fakeLetters) GetByID(_ context.Context, id primitive.ObjectID) (models.Letter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.letters[id]
	if !ok {
		return models.Letter{}, letterstore.ErrNotFound
	}
	return l, nil
}

func (f *fakeLetters) ListFor(_ context.Context, email string, receivedBefore time.Time) ([]models.Letter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Letter{}
	for _, l := range f.letters {
		if l.FromEmail == email || (l.ToEmail == email && l.Timestamp.Before(receivedBefore)) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (f *fakeLetters) SetReply(_ context.Context, id primitive.ObjectID, to, content string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.letters[id]
	if !ok || l.ToEmail != to || l.ReplyContent != "" {
		return false, nil
	}
	l.ReplyContent = content
	l.ReplyTimestamp = &at
	f.letters[id] = l
	return true, nil
}

// put stores a letter directly, bypassing Send.
func (f *fakeLetters) put(l models.Letter) models.Letter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l.ID = primitive.NewObjectID()
	f.letters[l.ID] = l
	return l
}

type fakeGroups struct {
	groups map[primitive.ObjectID]models.Group
}

func (f *fakeGroups) GetByID(_ context.Context, id primitive.ObjectID) (models.Group, error) {
	g, ok := f.groups[id]
	if !ok {
		return models.Group{}, groupstore.ErrNotFound
	}
	return g, nil
}

func (f *fakeGroups) NamesByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error) {
	out := map[primitive.ObjectID]string{}
	for _, id := range ids {
		if g, ok := f.groups[id]; ok {
			out[id] = g.Name
		}
	}
	return out, nil
}

type quotaKey struct{ email, day string }

type fakeQuotas struct {
	mu     sync.Mutex
	counts map[quotaKey]int
}

func newFakeQuotas() *fakeQuotas { return &fakeQuotas{counts: map[quotaKey]int{}} }

func (f *fakeQuotas) Take(_ context.Context, email, day string, limit int, _ time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := quotaKey{email, day}
	if f.counts[k] >= limit {
		return false, nil
	}
	f.counts[k]++
	return true, nil
}

func (f *fakeQuotas) Release(_ context.Context, email, day string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := quotaKey{email, day}
	if f.counts[k] > 0 {
		f.counts[k]--
	}
	return nil
}

func (f *fakeQuotas) used(email, day string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[quotaKey{email, day}]
}
