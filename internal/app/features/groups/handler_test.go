package groups_test

import (
	"net/http"
	"testing"

	uierrors "github.com/dalemusser/crushnote/internal/app/features/errors"
	"github.com/dalemusser/crushnote/internal/app/features/groups"
	"github.com/dalemusser/crushnote/internal/app/services/groupsvc"
	groupstore "github.com/dalemusser/crushnote/internal/app/store/groups"
	"github.com/dalemusser/crushnote/internal/app/system/indexes"
	"github.com/dalemusser/crushnote/internal/app/system/limits"
	"github.com/dalemusser/crushnote/internal/testutil"
	"go.uber.org/zap"
)

type groupJSON struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	CreatorEmail  string   `json:"creatorEmail"`
	MemberEmails  []string `json:"memberEmails"`
	InvitedEmails []string `json:"invitedEmails"`
}

func newTestHandler(t *testing.T) *groups.Handler {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	logger := zap.NewNop()
	svc := groupsvc.New(groupstore.New(db), limits.Default(), logger)
	return groups.NewHandler(svc, uierrors.NewErrorLogger(logger), logger)
}

func create(t *testing.T, h *groups.Handler, creator string, invited ...string) string {
	t.Helper()
	rec := testutil.NewRecorder()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/group", map[string]any{
		"name":          "Book Club",
		"description":   "novels",
		"invitedEmails": invited,
	})
	h.HandleCreate(rec, testutil.WithEmail(req, creator))
	rec.AssertStatus(t, http.StatusCreated)

	var got struct {
		ID string `json:"id"`
	}
	rec.Decode(t, &got)
	if got.ID == "" {
		t.Fatal("create returned no id")
	}
	return got.ID
}

func list(t *testing.T, h *groups.Handler, email string) []groupJSON {
	t.Helper()
	rec := testutil.NewRecorder()
	h.ServeList(rec, testutil.WithEmail(testutil.NewRequest(http.MethodGet, "/group"), email))
	rec.AssertStatus(t, http.StatusOK)
	var out []groupJSON
	rec.Decode(t, &out)
	return out
}

func TestCreateAndList(t *testing.T) {
	h := newTestHandler(t)
	id := create(t, h, "a@x.com", "B@x.com")

	for _, email := range []string{"a@x.com", "b@x.com"} {
		gs := list(t, h, email)
		if len(gs) != 1 || gs[0].ID != id {
			t.Fatalf("%s sees %+v", email, gs)
		}
	}
	if gs := list(t, h, "c@x.com"); len(gs) != 0 {
		t.Errorf("outsider sees %+v", gs)
	}
}

func TestCreate_Invalid(t *testing.T) {
	h := newTestHandler(t)
	rec := testutil.NewRecorder()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/group", map[string]any{"name": ""})
	h.HandleCreate(rec, testutil.WithEmail(req, "a@x.com"))
	rec.AssertStatus(t, http.StatusBadRequest)
	rec.AssertErrorCode(t, "validation_error")
}

func TestInvitationLeaveAndDelete(t *testing.T) {
	h := newTestHandler(t)
	id := create(t, h, "a@x.com", "b@x.com")

	rec := testutil.NewRecorder()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/group/invitation", map[string]any{"id": id, "isAccept": true})
	h.HandleInvitation(rec, testutil.WithEmail(req, "b@x.com"))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, "Invitation accepted")

	gs := list(t, h, "b@x.com")
	if len(gs) != 1 || len(gs[0].MemberEmails) != 2 || len(gs[0].InvitedEmails) != 0 {
		t.Fatalf("after accept: %+v", gs)
	}

	// The creator cannot leave.
	rec = testutil.NewRecorder()
	req = testutil.WithChiURLParam(testutil.NewRequest(http.MethodPost, "/group/"+id+"/leave"), "groupId", id)
	h.HandleLeave(rec, testutil.WithEmail(req, "a@x.com"))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	req = testutil.WithChiURLParam(testutil.NewRequest(http.MethodPost, "/group/"+id+"/leave"), "groupId", id)
	h.HandleLeave(rec, testutil.WithEmail(req, "b@x.com"))
	rec.AssertStatus(t, http.StatusOK)

	rec = testutil.NewRecorder()
	req = testutil.WithChiURLParam(testutil.NewRequest(http.MethodDelete, "/group/"+id), "groupId", id)
	h.HandleDelete(rec, testutil.WithEmail(req, "b@x.com"))
	rec.AssertStatus(t, http.StatusForbidden)

	rec = testutil.NewRecorder()
	req = testutil.WithChiURLParam(testutil.NewRequest(http.MethodDelete, "/group/"+id), "groupId", id)
	h.HandleDelete(rec, testutil.WithEmail(req, "a@x.com"))
	rec.AssertStatus(t, http.StatusOK)

	if gs := list(t, h, "a@x.com"); len(gs) != 0 {
		t.Errorf("after delete: %+v", gs)
	}
}

func TestInvitation_RequiresFields(t *testing.T) {
	h := newTestHandler(t)
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing id", map[string]any{"isAccept": true}},
		{"missing isAccept", map[string]any{"id": "65f000000000000000000000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			req := testutil.NewJSONRequest(t, http.MethodPost, "/group/invitation", tt.body)
			h.HandleInvitation(rec, testutil.WithEmail(req, "b@x.com"))
			rec.AssertStatus(t, http.StatusBadRequest)
		})
	}
}

func TestUpdate(t *testing.T) {
	h := newTestHandler(t)
	id := create(t, h, "a@x.com")

	rec := testutil.NewRecorder()
	req := testutil.NewJSONRequest(t, http.MethodPatch, "/group/"+id, map[string]any{
		"name":          "Poetry",
		"invitedEmails": []string{"c@x.com"},
	})
	req = testutil.WithChiURLParam(req, "groupId", id)
	h.HandleUpdate(rec, testutil.WithEmail(req, "a@x.com"))
	rec.AssertStatus(t, http.StatusOK)

	var got struct {
		Group groupJSON `json:"group"`
	}
	rec.Decode(t, &got)
	if got.Group.Name != "Poetry" || len(got.Group.InvitedEmails) != 1 || got.Group.InvitedEmails[0] != "c@x.com" {
		t.Errorf("after update: %+v", got.Group)
	}

	// Not the creator.
	rec = testutil.NewRecorder()
	req = testutil.NewJSONRequest(t, http.MethodPatch, "/group/"+id, map[string]any{"name": "Mine"})
	req = testutil.WithChiURLParam(req, "groupId", id)
	h.HandleUpdate(rec, testutil.WithEmail(req, "c@x.com"))
	rec.AssertStatus(t, http.StatusForbidden)

	// Unknown group.
	missing := "65f000000000000000000000"
	rec = testutil.NewRecorder()
	req = testutil.NewJSONRequest(t, http.MethodPatch, "/group/"+missing, map[string]any{"name": "Mine"})
	req = testutil.WithChiURLParam(req, "groupId", missing)
	h.HandleUpdate(rec, testutil.WithEmail(req, "a@x.com"))
	rec.AssertStatus(t, http.StatusNotFound)
	rec.AssertErrorCode(t, "not_found")
}
