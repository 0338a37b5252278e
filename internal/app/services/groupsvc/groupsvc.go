// internal/app/services/groupsvc/groupsvc.go
package groupsvc

import (
	"context"
	"errors"

	groupstore "github.com/dalemusser/crushnote/internal/app/store/groups"
	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/dalemusser/crushnote/internal/app/system/inputval"
	"github.com/dalemusser/crushnote/internal/app/system/limits"
	"github.com/dalemusser/crushnote/internal/app/system/metrics"
	"github.com/dalemusser/crushnote/internal/app/system/normalize"
	"github.com/dalemusser/crushnote/internal/app/system/sanitize"
	"github.com/dalemusser/crushnote/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Store is the slice of the group store the engine needs.
type Store interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	ListForEmail(ctx context.Context, email string) ([]models.Group, error)
	CountByCreator(ctx context.Context, email string) (int64, error)
	Create(ctx context.Context, g models.Group) (models.Group, error)
	SaveIfVersion(ctx context.Context, g models.Group) (models.Group, error)
	AcceptInvitation(ctx context.Context, id primitive.ObjectID, email string) (bool, error)
	DeclineInvitation(ctx context.Context, id primitive.ObjectID, email string) (bool, error)
	RemoveMember(ctx context.Context, id primitive.ObjectID, email string) (bool, error)
	DeleteByCreator(ctx context.Context, id primitive.ObjectID, creator string) (int64, error)
}

// Service is the group membership engine.
type Service struct {
	store  Store
	limits limits.Limits
	log    *zap.Logger
}

func New(store Store, lim limits.Limits, logger *zap.Logger) *Service {
	return &Service{store: store, limits: lim, log: logger}
}

// CreateInput is the caller-supplied part of a new group.
type CreateInput struct {
	Name          string
	Description   string
	InvitedEmails []string
}

// Patch carries the fields of an update. Nil fields are left unchanged.
type Patch struct {
	Name          *string
	Description   *string
	MemberEmails  *[]string
	InvitedEmails *[]string
}

// ListFor returns the groups email belongs to or is invited to.
func (s *Service) ListFor(ctx context.Context, email string) (_ []models.Group, err error) {
	defer metrics.Track("group_list", &err)

	groups, err := s.store.ListForEmail(ctx, normalize.Email(email))
	if err != nil {
		return nil, apperr.Internal("groups.list", err)
	}
	return groups, nil
}

// Create validates the input, enforces the per-creator and size limits and
// stores a group whose only member is the creator.
func (s *Service) Create(ctx context.Context, creator string, in CreateInput) (_ models.Group, err error) {
	defer metrics.Track("group_create", &err)
	creator = normalize.Email(creator)

	name, err := s.cleanName(in.Name)
	if err != nil {
		return models.Group{}, err
	}
	desc, err := s.cleanDescription(in.Description)
	if err != nil {
		return models.Group{}, err
	}
	invited, err := emailList(in.InvitedEmails)
	if err != nil {
		return models.Group{}, err
	}
	invited = normalize.Without(invited, creator)

	owned, err := s.store.CountByCreator(ctx, creator)
	if err != nil {
		return models.Group{}, apperr.Internal("groups.count", err)
	}
	if owned >= int64(s.limits.MaxGroupsPerUser) {
		return models.Group{}, apperr.LimitExceeded("You can create at most %d groups.", s.limits.MaxGroupsPerUser)
	}
	if len(invited) > s.limits.MaxTotalMembers-1 {
		return models.Group{}, apperr.LimitExceeded("A group can have at most %d members.", s.limits.MaxTotalMembers)
	}

	g, err := s.store.Create(ctx, models.Group{
		Name:          name,
		Description:   desc,
		CreatorEmail:  creator,
		MemberEmails:  []string{creator},
		InvitedEmails: invited,
	})
	if err != nil {
		return models.Group{}, apperr.Internal("groups.create", err)
	}

	s.log.Info("group created",
		zap.String("group_id", g.ID.Hex()),
		zap.String("creator", creator),
		zap.Int("invited", len(invited)))
	return g, nil
}

// Update applies patch on behalf of the creator. Every field is validated
// before anything is written, and the write fails with Conflict if the
// group changed after it was read.
func (s *Service) Update(ctx context.Context, actor, groupID string, patch Patch) (_ models.Group, err error) {
	defer metrics.Track("group_update", &err)
	actor = normalize.Email(actor)

	id, err := parseID(groupID)
	if err != nil {
		return models.Group{}, err
	}
	g, err := s.get(ctx, id)
	if err != nil {
		return models.Group{}, err
	}
	if g.CreatorEmail != actor {
		return models.Group{}, apperr.Forbidden("Only the group creator can edit the group.")
	}

	if patch.Name != nil {
		if g.Name, err = s.cleanName(*patch.Name); err != nil {
			return models.Group{}, err
		}
	}
	if patch.Description != nil {
		if g.Description, err = s.cleanDescription(*patch.Description); err != nil {
			return models.Group{}, err
		}
	}
	if patch.MemberEmails != nil {
		members, err := emailList(*patch.MemberEmails)
		if err != nil {
			return models.Group{}, err
		}
		if !contains(members, g.CreatorEmail) {
			members = append([]string{g.CreatorEmail}, members...)
		}
		g.MemberEmails = members
	}
	if patch.InvitedEmails != nil {
		invited, err := emailList(*patch.InvitedEmails)
		if err != nil {
			return models.Group{}, err
		}
		g.InvitedEmails = invited
	}
	g.InvitedEmails = normalize.Without(g.InvitedEmails, g.MemberEmails...)

	if g.Size() > s.limits.MaxTotalMembers {
		return models.Group{}, apperr.LimitExceeded("A group can have at most %d members.", s.limits.MaxTotalMembers)
	}

	saved, err := s.store.SaveIfVersion(ctx, g)
	if errors.Is(err, groupstore.ErrVersionConflict) {
		return models.Group{}, apperr.Conflict("The group was changed by someone else. Reload and try again.")
	}
	if err != nil {
		return models.Group{}, apperr.Internal("groups.save", err)
	}

	s.log.Info("group updated",
		zap.String("group_id", saved.ID.Hex()),
		zap.Int("members", len(saved.MemberEmails)),
		zap.Int("invited", len(saved.InvitedEmails)))
	return saved, nil
}

// Respond accepts or declines actor's invitation to the group.
func (s *Service) Respond(ctx context.Context, actor, groupID string, accept bool) (err error) {
	defer metrics.Track("group_respond", &err)
	actor = normalize.Email(actor)

	id, err := parseID(groupID)
	if err != nil {
		return err
	}

	var ok bool
	if accept {
		ok, err = s.store.AcceptInvitation(ctx, id, actor)
	} else {
		ok, err = s.store.DeclineInvitation(ctx, id, actor)
	}
	if err != nil {
		return apperr.Internal("groups.respond", err)
	}
	if !ok {
		// Nothing matched: tell a missing group apart from a missing invitation.
		if _, err := s.get(ctx, id); err != nil {
			return err
		}
		return apperr.Forbidden("You have no invitation to this group.")
	}

	s.log.Info("invitation answered",
		zap.String("group_id", id.Hex()),
		zap.String("email", actor),
		zap.Bool("accepted", accept))
	return nil
}

// Leave removes actor from the group's members. The creator cannot leave.
func (s *Service) Leave(ctx context.Context, actor, groupID string) (err error) {
	defer metrics.Track("group_leave", &err)
	actor = normalize.Email(actor)

	id, err := parseID(groupID)
	if err != nil {
		return err
	}
	g, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if g.CreatorEmail == actor {
		return apperr.Forbidden("The group creator cannot leave; delete the group instead.")
	}
	if !g.HasMember(actor) {
		return apperr.Forbidden("You are not a member of this group.")
	}

	ok, err := s.store.RemoveMember(ctx, id, actor)
	if err != nil {
		return apperr.Internal("groups.leave", err)
	}
	if !ok {
		return apperr.Forbidden("You are not a member of this group.")
	}

	s.log.Info("member left group", zap.String("group_id", id.Hex()), zap.String("email", actor))
	return nil
}

// Delete removes the group. Only its creator may do so.
func (s *Service) Delete(ctx context.Context, actor, groupID string) (err error) {
	defer metrics.Track("group_delete", &err)
	actor = normalize.Email(actor)

	id, err := parseID(groupID)
	if err != nil {
		return err
	}
	g, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if g.CreatorEmail != actor {
		return apperr.Forbidden("Only the group creator can delete the group.")
	}

	n, err := s.store.DeleteByCreator(ctx, id, actor)
	if err != nil {
		return apperr.Internal("groups.delete", err)
	}
	if n == 0 {
		return apperr.NotFound("Group not found.")
	}

	s.log.Info("group deleted", zap.String("group_id", id.Hex()), zap.String("creator", actor))
	return nil
}

func (s *Service) get(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	g, err := s.store.GetByID(ctx, id)
	if errors.Is(err, groupstore.ErrNotFound) {
		return models.Group{}, apperr.NotFound("Group not found.")
	}
	if err != nil {
		return models.Group{}, apperr.Internal("groups.get", err)
	}
	return g, nil
}

func (s *Service) cleanName(raw string) (string, error) {
	name := sanitize.PlainText(raw)
	if msg := inputval.CheckText("Group name", name, s.limits.NameLength, true); msg != "" {
		return "", apperr.Validation(msg)
	}
	return name, nil
}

func (s *Service) cleanDescription(raw string) (string, error) {
	desc := sanitize.PlainText(raw)
	if msg := inputval.CheckText("Description", desc, s.limits.DescriptionLength, false); msg != "" {
		return "", apperr.Validation(msg)
	}
	return desc, nil
}

// emailList normalizes list and fails on its first malformed entry.
func emailList(list []string) ([]string, error) {
	out := normalize.EmailList(list)
	for _, e := range out {
		if !inputval.IsValidEmail(e) {
			return nil, apperr.Validation("%q is not a valid email address.", e)
		}
	}
	return out, nil
}

func parseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("Group id is not a valid identifier.")
	}
	return id, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
