// internal/app/services/profilesvc/profilesvc.go
package profilesvc

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/crushnote/internal/app/store/users"
	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/dalemusser/crushnote/internal/app/system/auth"
	"github.com/dalemusser/crushnote/internal/app/system/inputval"
	"github.com/dalemusser/crushnote/internal/app/system/limits"
	"github.com/dalemusser/crushnote/internal/app/system/metrics"
	"github.com/dalemusser/crushnote/internal/app/system/normalize"
	"github.com/dalemusser/crushnote/internal/app/system/sanitize"
	"github.com/dalemusser/crushnote/internal/domain/models"
	"go.uber.org/zap"
)

type UserStore interface {
	Ensure(ctx context.Context, email string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	UpdateProfile(ctx context.Context, email string, name, lang *string) (models.User, error)
	NamesByEmail(ctx context.Context, emails []string) (map[string]string, error)
}

// Issuer mints session tokens.
type Issuer interface {
	Issue(email string) (string, error)
}

// Service resolves identities and manages user profiles.
type Service struct {
	users  UserStore
	google auth.GoogleVerifier
	tokens Issuer
	limits limits.Limits
	log    *zap.Logger
}

func New(users UserStore, google auth.GoogleVerifier, tokens Issuer, lim limits.Limits, logger *zap.Logger) *Service {
	return &Service{users: users, google: google, tokens: tokens, limits: lim, log: logger}
}

// Session is the result of a successful login.
type Session struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login verifies a Google ID-token credential and signs the caller in.
func (s *Service) Login(ctx context.Context, credential string) (_ Session, err error) {
	defer metrics.Track("login", &err)

	email, err := s.google.VerifyCredential(ctx, credential)
	if err != nil {
		return Session{}, err
	}
	return s.LoginEmail(ctx, email)
}

// LoginEmail signs in an email that was already verified by an identity
// provider, creating the user on first sight.
func (s *Service) LoginEmail(ctx context.Context, email string) (Session, error) {
	email = normalize.Email(email)
	if !inputval.IsValidEmail(email) {
		return Session{}, apperr.Validation("Invalid user detected.")
	}

	u, err := s.users.Ensure(ctx, email)
	if err != nil {
		return Session{}, apperr.Internal("profile.ensure", err)
	}
	token, err := s.tokens.Issue(u.Email)
	if err != nil {
		return Session{}, apperr.Internal("profile.issue_token", err)
	}

	s.log.Info("user logged in", zap.String("email", u.Email))
	return Session{Token: token, User: u}, nil
}

// Get returns the caller's profile.
func (s *Service) Get(ctx context.Context, email string) (_ models.User, err error) {
	defer metrics.Track("profile_get", &err)

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return models.User{}, apperr.NotFound("User not found.")
	}
	if err != nil {
		return models.User{}, apperr.Internal("profile.get", err)
	}
	return u, nil
}

// ProfilePatch carries the fields of a profile update. Nil fields are left
// unchanged.
type ProfilePatch struct {
	Name *string
	Lang *string
}

// Update applies patch to the caller's profile.
func (s *Service) Update(ctx context.Context, email string, patch ProfilePatch) (_ models.User, err error) {
	defer metrics.Track("profile_update", &err)

	var name, lang *string
	if patch.Name != nil {
		n := sanitize.PlainText(*patch.Name)
		if m := inputval.CheckText("Name", n, s.limits.NameLength, false); m != "" {
			return models.User{}, apperr.Validation(m)
		}
		name = &n
	}
	if patch.Lang != nil {
		if !models.IsSupportedLang(*patch.Lang) {
			return models.User{}, apperr.Validation("Language %q is not supported.", *patch.Lang)
		}
		lang = patch.Lang
	}

	u, err := s.users.UpdateProfile(ctx, email, name, lang)
	if errors.Is(err, userstore.ErrNotFound) {
		return models.User{}, apperr.NotFound("User not found.")
	}
	if err != nil {
		return models.User{}, apperr.Internal("profile.update", err)
	}
	s.log.Info("profile updated", zap.String("email", u.Email))
	return u, nil
}

// LookupNames maps each email to its owner's display name, or to the email
// itself when the owner has not set one.
func (s *Service) LookupNames(ctx context.Context, emails []string) (_ map[string]string, err error) {
	defer metrics.Track("profile_lookup_names", &err)

	list := normalize.EmailList(emails)
	if len(list) > s.limits.MaxTotalMembers {
		return nil, apperr.Validation("At most %d emails can be looked up at once.", s.limits.MaxTotalMembers)
	}
	for _, e := range list {
		if !inputval.IsValidEmail(e) {
			return nil, apperr.Validation("%q is not a valid email address.", e)
		}
	}

	names, err := s.users.NamesByEmail(ctx, list)
	if err != nil {
		return nil, apperr.Internal("profile.names", err)
	}
	out := make(map[string]string, len(list))
	for _, e := range list {
		if n, ok := names[e]; ok && n != "" {
			out[e] = n
		} else {
			out[e] = e
		}
	}
	return out, nil
}
