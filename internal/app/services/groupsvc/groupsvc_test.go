package groupsvc_test

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/dalemusser/crushnote/internal/app/services/groupsvc"
	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/dalemusser/crushnote/internal/app/system/limits"
	"github.com/dalemusser/crushnote/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newService(t *testing.T, lim limits.Limits) (*groupsvc.Service, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	return groupsvc.New(store, lim, zap.NewNop()), store
}

func strp(s string) *string { return &s }

func listp(l ...string) *[]string { return &l }

// checkInvariants asserts the structural rules every stored group must obey.
func checkInvariants(t *testing.T, g models.Group, maxTotal int) {
	t.Helper()
	if !g.HasMember(g.CreatorEmail) {
		t.Errorf("creator %q missing from members %v", g.CreatorEmail, g.MemberEmails)
	}
	for _, inv := range g.InvitedEmails {
		if g.HasMember(inv) {
			t.Errorf("%q is both member and invited", inv)
		}
	}
	if g.Size() > maxTotal {
		t.Errorf("group size %d exceeds %d", g.Size(), maxTotal)
	}
}

func TestScenarioA_CreateThenAccept(t *testing.T) {
	svc, store := newService(t, limits.Default())
	ctx := context.Background()

	g, err := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "G", InvitedEmails: []string{"b@x.com"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !reflect.DeepEqual(g.MemberEmails, []string{"a@x.com"}) {
		t.Errorf("members: got %v", g.MemberEmails)
	}
	if !reflect.DeepEqual(g.InvitedEmails, []string{"b@x.com"}) {
		t.Errorf("invited: got %v", g.InvitedEmails)
	}

	if err := svc.Respond(ctx, "b@x.com", g.ID.Hex(), true); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	got, _ := store.GetByID(ctx, g.ID)
	if !reflect.DeepEqual(got.MemberEmails, []string{"a@x.com", "b@x.com"}) {
		t.Errorf("members after accept: got %v", got.MemberEmails)
	}
	if len(got.InvitedEmails) != 0 {
		t.Errorf("invited after accept: got %v", got.InvitedEmails)
	}
	checkInvariants(t, got, limits.Default().MaxTotalMembers)
}

func TestCreate_Validation(t *testing.T) {
	lim := limits.Default()
	tests := []struct {
		name string
		in   groupsvc.CreateInput
		kind apperr.Kind
	}{
		{"empty name", groupsvc.CreateInput{Name: "  "}, apperr.KindValidation},
		{"long name", groupsvc.CreateInput{Name: strings.Repeat("n", lim.NameLength+1)}, apperr.KindValidation},
		{"long description", groupsvc.CreateInput{Name: "G", Description: strings.Repeat("d", lim.DescriptionLength+1)}, apperr.KindValidation},
		{"bad invitee", groupsvc.CreateInput{Name: "G", InvitedEmails: []string{"b@x.com", "nope"}}, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newService(t, lim)
			_, err := svc.Create(context.Background(), "a@x.com", tt.in)
			if !apperr.Is(err, tt.kind) {
				t.Errorf("got %v, want %v", err, tt.kind)
			}
		})
	}
}

func TestCreate_NormalizesInvitees(t *testing.T) {
	svc, _ := newService(t, limits.Default())

	g, err := svc.Create(context.Background(), "A@x.com", groupsvc.CreateInput{
		Name:          "<b>Club</b>",
		InvitedEmails: []string{" B@X.com", "b@x.com", "a@x.com", "c@x.com"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if g.Name != "Club" {
		t.Errorf("name not sanitized: %q", g.Name)
	}
	if g.CreatorEmail != "a@x.com" {
		t.Errorf("creator not lower-cased: %q", g.CreatorEmail)
	}
	if !reflect.DeepEqual(g.InvitedEmails, []string{"b@x.com", "c@x.com"}) {
		t.Errorf("invited: got %v", g.InvitedEmails)
	}
}

func TestCreate_Limits(t *testing.T) {
	lim := limits.Default()
	lim.MaxGroupsPerUser = 2
	lim.MaxTotalMembers = 3

	t.Run("groups per creator", func(t *testing.T) {
		svc, _ := newService(t, lim)
		ctx := context.Background()
		for i := 0; i < 2; i++ {
			if _, err := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: fmt.Sprintf("G%d", i)}); err != nil {
				t.Fatalf("Create #%d: %v", i, err)
			}
		}
		_, err := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "G3"})
		if !apperr.Is(err, apperr.KindLimitExceeded) {
			t.Errorf("got %v, want LimitExceeded", err)
		}
		if _, err := svc.Create(ctx, "b@x.com", groupsvc.CreateInput{Name: "G"}); err != nil {
			t.Errorf("another creator is unaffected: %v", err)
		}
	})

	t.Run("invitees", func(t *testing.T) {
		svc, _ := newService(t, lim)
		ctx := context.Background()
		if _, err := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "ok", InvitedEmails: []string{"b@x.com", "c@x.com"}}); err != nil {
			t.Errorf("MaxTotalMembers-1 invitees should fit: %v", err)
		}
		_, err := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "big", InvitedEmails: []string{"b@x.com", "c@x.com", "d@x.com"}})
		if !apperr.Is(err, apperr.KindLimitExceeded) {
			t.Errorf("got %v, want LimitExceeded", err)
		}
	})
}

func TestUpdate(t *testing.T) {
	lim := limits.Default()
	lim.MaxTotalMembers = 4
	ctx := context.Background()

	setup := func(t *testing.T) (*groupsvc.Service, *fakeStore, models.Group) {
		svc, store := newService(t, lim)
		g, err := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "G", InvitedEmails: []string{"b@x.com"}})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		return svc, store, g
	}

	t.Run("creator forced into members and invitees stripped", func(t *testing.T) {
		svc, _, g := setup(t)
		got, err := svc.Update(ctx, "a@x.com", g.ID.Hex(), groupsvc.Patch{
			Name:          strp("New"),
			MemberEmails:  listp("c@x.com"),
			InvitedEmails: listp("c@x.com", "D@x.com"),
		})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Name != "New" {
			t.Errorf("name: got %q", got.Name)
		}
		if !reflect.DeepEqual(got.MemberEmails, []string{"a@x.com", "c@x.com"}) {
			t.Errorf("members: got %v", got.MemberEmails)
		}
		if !reflect.DeepEqual(got.InvitedEmails, []string{"d@x.com"}) {
			t.Errorf("invited: got %v", got.InvitedEmails)
		}
		checkInvariants(t, got, lim.MaxTotalMembers)
	})

	t.Run("members only keeps invitations disjoint", func(t *testing.T) {
		svc, _, g := setup(t)
		got, err := svc.Update(ctx, "a@x.com", g.ID.Hex(), groupsvc.Patch{MemberEmails: listp("a@x.com", "b@x.com")})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if len(got.InvitedEmails) != 0 {
			t.Errorf("b@x.com should leave the invited list: %v", got.InvitedEmails)
		}
		checkInvariants(t, got, lim.MaxTotalMembers)
	})

	t.Run("not creator", func(t *testing.T) {
		svc, _, g := setup(t)
		_, err := svc.Update(ctx, "b@x.com", g.ID.Hex(), groupsvc.Patch{Name: strp("Mine")})
		if !apperr.Is(err, apperr.KindForbidden) {
			t.Errorf("got %v, want Forbidden", err)
		}
	})

	t.Run("missing group", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, err := svc.Update(ctx, "a@x.com", primitive.NewObjectID().Hex(), groupsvc.Patch{})
		if !apperr.Is(err, apperr.KindNotFound) {
			t.Errorf("got %v, want NotFound", err)
		}
	})

	t.Run("bad id", func(t *testing.T) {
		svc, _, _ := setup(t)
		_, err := svc.Update(ctx, "a@x.com", "zzz", groupsvc.Patch{})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("got %v, want Validation", err)
		}
	})

	t.Run("too big after merge writes nothing", func(t *testing.T) {
		svc, store, g := setup(t)
		_, err := svc.Update(ctx, "a@x.com", g.ID.Hex(), groupsvc.Patch{
			Name:          strp("Renamed"),
			InvitedEmails: listp("b@x.com", "c@x.com", "d@x.com", "e@x.com"),
		})
		if !apperr.Is(err, apperr.KindLimitExceeded) {
			t.Fatalf("got %v, want LimitExceeded", err)
		}
		stored, _ := store.GetByID(ctx, g.ID)
		if stored.Name != "G" {
			t.Errorf("partial write: name is %q", stored.Name)
		}
	})

	t.Run("invalid field writes nothing", func(t *testing.T) {
		svc, store, g := setup(t)
		_, err := svc.Update(ctx, "a@x.com", g.ID.Hex(), groupsvc.Patch{
			Name:         strp("Renamed"),
			MemberEmails: listp("not-an-email"),
		})
		if !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("got %v, want Validation", err)
		}
		stored, _ := store.GetByID(ctx, g.ID)
		if stored.Name != "G" {
			t.Errorf("partial write: name is %q", stored.Name)
		}
	})

	t.Run("stale version conflicts", func(t *testing.T) {
		svc, store, g := setup(t)
		// Simulate a membership change landing between read and write.
		store.mu.Lock()
		stale := store.groups[g.ID]
		stale.Version = 99
		store.groups[g.ID] = stale
		store.mu.Unlock()

		wrapped := &staleStore{fakeStore: store, version: 1}
		svc = groupsvc.New(wrapped, lim, zap.NewNop())
		_, err := svc.Update(ctx, "a@x.com", g.ID.Hex(), groupsvc.Patch{Name: strp("X")})
		if !apperr.Is(err, apperr.KindConflict) {
			t.Errorf("got %v, want Conflict", err)
		}
	})
}

// staleStore returns groups with an outdated version, as if another writer
// had committed after the read.
type staleStore struct {
	*fakeStore
	version int64
}

func (s *staleStore) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	g, err := s.fakeStore.GetByID(ctx, id)
	g.Version = s.version
	return g, err
}

func TestRespond(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, limits.Default())
	g, _ := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "G", InvitedEmails: []string{"b@x.com", "c@x.com"}})

	if err := svc.Respond(ctx, "c@x.com", g.ID.Hex(), false); err != nil {
		t.Fatalf("decline: %v", err)
	}
	got, _ := store.GetByID(ctx, g.ID)
	if got.IsInvited("c@x.com") || got.HasMember("c@x.com") {
		t.Errorf("decline should only drop the invitation: %+v", got)
	}

	if err := svc.Respond(ctx, "z@x.com", g.ID.Hex(), true); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("uninvited: got %v, want Forbidden", err)
	}
	if err := svc.Respond(ctx, "b@x.com", primitive.NewObjectID().Hex(), true); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("missing group: got %v, want NotFound", err)
	}
}

func TestLeave(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, limits.Default())
	g, _ := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "G", InvitedEmails: []string{"b@x.com"}})
	_ = svc.Respond(ctx, "b@x.com", g.ID.Hex(), true)

	if err := svc.Leave(ctx, "a@x.com", g.ID.Hex()); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("creator leave: got %v, want Forbidden", err)
	}
	if err := svc.Leave(ctx, "z@x.com", g.ID.Hex()); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("non-member leave: got %v, want Forbidden", err)
	}
	if err := svc.Leave(ctx, "b@x.com", g.ID.Hex()); err != nil {
		t.Fatalf("member leave: %v", err)
	}
	got, _ := store.GetByID(ctx, g.ID)
	if got.HasMember("b@x.com") {
		t.Error("b@x.com still a member after leaving")
	}
	checkInvariants(t, got, limits.Default().MaxTotalMembers)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t, limits.Default())
	g, _ := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "G", InvitedEmails: []string{"b@x.com"}})

	if err := svc.Delete(ctx, "b@x.com", g.ID.Hex()); !apperr.Is(err, apperr.KindForbidden) {
		t.Errorf("non-creator delete: got %v, want Forbidden", err)
	}
	if err := svc.Delete(ctx, "a@x.com", g.ID.Hex()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.GetByID(ctx, g.ID); err == nil {
		t.Error("group still stored")
	}
	if err := svc.Delete(ctx, "a@x.com", g.ID.Hex()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("second delete: got %v, want NotFound", err)
	}
}

func TestListFor(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, limits.Default())
	_, _ = svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "Mine"})
	_, _ = svc.Create(ctx, "c@x.com", groupsvc.CreateInput{Name: "Invited", InvitedEmails: []string{"a@x.com"}})
	_, _ = svc.Create(ctx, "c@x.com", groupsvc.CreateInput{Name: "Other"})

	groups, err := svc.ListFor(ctx, "A@x.com")
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if len(groups) != 2 {
		t.Errorf("got %d groups, want 2", len(groups))
	}
}

// TestInvariantsHoldAcrossOperations runs a mixed sequence and checks the
// structural rules after every step.
func TestInvariantsHoldAcrossOperations(t *testing.T) {
	lim := limits.Default()
	lim.MaxTotalMembers = 5
	ctx := context.Background()
	svc, store := newService(t, lim)

	g, err := svc.Create(ctx, "a@x.com", groupsvc.CreateInput{Name: "G", InvitedEmails: []string{"b@x.com", "c@x.com", "a@x.com"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	id := g.ID.Hex()

	steps := []func() error{
		func() error { return svc.Respond(ctx, "b@x.com", id, true) },
		func() error {
			_, err := svc.Update(ctx, "a@x.com", id, groupsvc.Patch{InvitedEmails: listp("b@x.com", "d@x.com", "e@x.com")})
			return err
		},
		func() error { return svc.Respond(ctx, "d@x.com", id, true) },
		func() error { return svc.Leave(ctx, "b@x.com", id) },
		func() error {
			_, err := svc.Update(ctx, "a@x.com", id, groupsvc.Patch{MemberEmails: listp("d@x.com", "f@x.com")})
			return err
		},
		func() error { return svc.Leave(ctx, "a@x.com", id) },
		func() error {
			_, err := svc.Update(ctx, "a@x.com", id, groupsvc.Patch{InvitedEmails: listp("g@x.com", "h@x.com", "i@x.com", "j@x.com")})
			return err
		},
	}
	for i, step := range steps {
		_ = step()
		got, err := store.GetByID(ctx, g.ID)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		checkInvariants(t, got, lim.MaxTotalMembers)
	}
}
