// internal/app/services/lettersvc/lettersvc.go
package lettersvc

import (
	"context"
	"errors"
	"strings"
	"time"

	groupstore "github.com/dalemusser/crushnote/internal/app/store/groups"
	letterstore "github.com/dalemusser/crushnote/internal/app/store/letters"
	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/dalemusser/crushnote/internal/app/system/calendar"
	"github.com/dalemusser/crushnote/internal/app/system/inputval"
	"github.com/dalemusser/crushnote/internal/app/system/limits"
	"github.com/dalemusser/crushnote/internal/app/system/metrics"
	"github.com/dalemusser/crushnote/internal/app/system/normalize"
	"github.com/dalemusser/crushnote/internal/app/system/sanitize"
	"github.com/dalemusser/crushnote/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// DeletedGroupName labels letters whose group no longer exists.
const DeletedGroupName = "deleted group"

const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

type LetterStore interface {
	Insert(ctx context.Context, l models.Letter) (models.Letter, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Letter, error)
	ListFor(ctx context.Context, email string, receivedBefore time.Time) ([]models.Letter, error)
	SetReply(ctx context.Context, id primitive.ObjectID, to, content string, at time.Time) (bool, error)
}

type GroupStore interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error)
	NamesByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]string, error)
}

type QuotaStore interface {
	Take(ctx context.Context, email, day string, limit int, expiresAt time.Time) (bool, error)
	Release(ctx context.Context, email, day string) error
}

// View is a letter as one of its two parties sees it. The sender's email is
// only present on the sender's own copy.
type View struct {
	ID             string     `json:"id"`
	Direction      string     `json:"direction"`
	FromEmail      string     `json:"fromEmail,omitempty"`
	ToEmail        string     `json:"toEmail"`
	FromGroupID    string     `json:"fromGroupId"`
	GroupName      string     `json:"groupName"`
	Alias          string     `json:"alias"`
	Content        string     `json:"content"`
	ReplyContent   string     `json:"replyContent,omitempty"`
	ReplyTimestamp *time.Time `json:"replyTimestamp,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// Service is the letter exchange engine.
type Service struct {
	letters LetterStore
	groups  GroupStore
	quotas  QuotaStore
	cal     calendar.Calendar
	limits  limits.Limits
	log     *zap.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func New(letters LetterStore, groups GroupStore, quotas QuotaStore, cal calendar.Calendar, lim limits.Limits, logger *zap.Logger) *Service {
	return &Service{
		letters: letters,
		groups:  groups,
		quotas:  quotas,
		cal:     cal,
		limits:  lim,
		log:     logger,
		Now:     time.Now,
	}
}

// SendInput is the caller-supplied part of a letter.
type SendInput struct {
	FromGroupID string `validate:"required,objectid" label:"Group"`
	ToEmail     string `validate:"required,emailshape" label:"Recipient"`
	Alias       string
	Content     string
}

// List returns every letter the caller sent plus the received letters that
// are past the visibility cutoff, newest first.
func (s *Service) List(ctx context.Context, email string) (_ []View, err error) {
	defer metrics.Track("letter_list", &err)
	email = normalize.Email(email)

	letters, err := s.letters.ListFor(ctx, email, s.cal.VisibilityCutoff(s.Now()))
	if err != nil {
		return nil, apperr.Internal("letters.list", err)
	}

	ids := make([]primitive.ObjectID, 0, len(letters))
	seen := make(map[primitive.ObjectID]struct{}, len(letters))
	for _, l := range letters {
		if _, ok := seen[l.FromGroupID]; !ok {
			seen[l.FromGroupID] = struct{}{}
			ids = append(ids, l.FromGroupID)
		}
	}
	names, err := s.groups.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Internal("letters.group_names", err)
	}

	out := make([]View, 0, len(letters))
	for _, l := range letters {
		out = append(out, view(l, email, names))
	}
	return out, nil
}

// Get returns one letter under the same visibility rules as List. A letter
// the caller may not see yet is reported as not found.
func (s *Service) Get(ctx context.Context, email, letterID string) (_ View, err error) {
	defer metrics.Track("letter_get", &err)
	email = normalize.Email(email)

	l, err := s.load(ctx, letterID)
	if err != nil {
		return View{}, err
	}
	switch {
	case l.FromEmail == email:
	case l.ToEmail == email && l.Timestamp.Before(s.cal.VisibilityCutoff(s.Now())):
	default:
		return View{}, apperr.NotFound("Letter not found.")
	}

	names, err := s.groups.NamesByIDs(ctx, []primitive.ObjectID{l.FromGroupID})
	if err != nil {
		return View{}, apperr.Internal("letters.group_names", err)
	}
	return view(l, email, names), nil
}

// Send delivers a letter through a group the sender belongs to, charging one
// unit of the sender's daily quota.
func (s *Service) Send(ctx context.Context, from string, in SendInput) (_ View, err error) {
	defer metrics.Track("letter_send", &err)
	now := s.Now().UTC()
	from = normalize.Email(from)

	if res := inputval.Validate(in); res.HasErrors() {
		return View{}, apperr.Validation(res.First())
	}
	to := normalize.Email(in.ToEmail)
	if to == from {
		return View{}, apperr.Validation("You cannot send a letter to yourself.")
	}
	content := sanitize.Text(in.Content)
	if m := inputval.CheckText("Letter", content, s.limits.LetterLength, true); m != "" {
		return View{}, apperr.Validation(m)
	}
	alias := sanitize.PlainText(in.Alias)
	if m := inputval.CheckText("Alias", alias, s.limits.NameLength, false); m != "" {
		return View{}, apperr.Validation(m)
	}
	groupID, _ := primitive.ObjectIDFromHex(strings.TrimSpace(in.FromGroupID))

	g, err := s.groups.GetByID(ctx, groupID)
	if errors.Is(err, groupstore.ErrNotFound) {
		return View{}, apperr.NotFound("Group not found.")
	}
	if err != nil {
		return View{}, apperr.Internal("letters.group", err)
	}
	if !g.HasMember(from) {
		return View{}, apperr.Forbidden("You must be a member of the group to send letters.")
	}

	day := calendar.DayKey(now)
	ok, err := s.quotas.Take(ctx, from, day, s.limits.LettersPerDay, calendar.NextUTCMidnight(now).Add(24*time.Hour))
	if err != nil {
		return View{}, apperr.Internal("letters.quota", err)
	}
	if !ok {
		return View{}, apperr.RateLimited("You can only send %d letters per day.", s.limits.LettersPerDay)
	}

	l, err := s.letters.Insert(ctx, models.Letter{
		FromEmail:   from,
		FromGroupID: groupID,
		ToEmail:     to,
		Alias:       alias,
		Content:     content,
		Timestamp:   now,
	})
	if err != nil {
		if rerr := s.quotas.Release(ctx, from, day); rerr != nil {
			s.log.Warn("release letter quota failed", zap.String("from", from), zap.Error(rerr))
		}
		return View{}, apperr.Internal("letters.insert", err)
	}

	s.log.Info("letter sent",
		zap.String("letter_id", l.ID.Hex()),
		zap.String("group_id", groupID.Hex()))
	return view(l, from, map[primitive.ObjectID]string{g.ID: g.Name}), nil
}

// Reply sets the recipient's one-shot reply.
func (s *Service) Reply(ctx context.Context, actor, letterID, content string) (_ View, err error) {
	defer metrics.Track("letter_reply", &err)
	now := s.Now().UTC()
	actor = normalize.Email(actor)

	l, err := s.load(ctx, letterID)
	if err != nil {
		return View{}, err
	}
	if !strings.EqualFold(l.ToEmail, actor) {
		return View{}, apperr.Forbidden("Only the recipient can reply to this letter.")
	}
	if l.Replied() {
		return View{}, apperr.Conflict("This letter already has a reply.")
	}
	content = sanitize.Text(content)
	if m := inputval.CheckText("Reply", content, s.limits.LetterLength, true); m != "" {
		return View{}, apperr.Validation(m)
	}

	ok, err := s.letters.SetReply(ctx, l.ID, l.ToEmail, content, now)
	if err != nil {
		return View{}, apperr.Internal("letters.reply", err)
	}
	if !ok {
		return View{}, apperr.Conflict("This letter already has a reply.")
	}

	l.ReplyContent = content
	l.ReplyTimestamp = &now
	names, err := s.groups.NamesByIDs(ctx, []primitive.ObjectID{l.FromGroupID})
	if err != nil {
		return View{}, apperr.Internal("letters.group_names", err)
	}

	s.log.Info("letter replied", zap.String("letter_id", l.ID.Hex()))
	return view(l, actor, names), nil
}

func (s *Service) load(ctx context.Context, letterID string) (models.Letter, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(letterID))
	if err != nil {
		return models.Letter{}, apperr.Validation("Letter id is not a valid identifier.")
	}
	l, err := s.letters.GetByID(ctx, id)
	if errors.Is(err, letterstore.ErrNotFound) {
		return models.Letter{}, apperr.NotFound("Letter not found.")
	}
	if err != nil {
		return models.Letter{}, apperr.Internal("letters.get", err)
	}
	return l, nil
}

func view(l models.Letter, viewer string, groupNames map[primitive.ObjectID]string) View {
	v := View{
		ID:             l.ID.Hex(),
		Direction:      DirectionReceived,
		ToEmail:        l.ToEmail,
		FromGroupID:    l.FromGroupID.Hex(),
		GroupName:      DeletedGroupName,
		Alias:          l.Alias,
		Content:        l.Content,
		ReplyContent:   l.ReplyContent,
		ReplyTimestamp: l.ReplyTimestamp,
		Timestamp:      l.Timestamp,
	}
	if l.FromEmail == viewer {
		v.Direction = DirectionSent
		v.FromEmail = l.FromEmail
	}
	if name, ok := groupNames[l.FromGroupID]; ok {
		v.GroupName = name
	}
	return v
}
