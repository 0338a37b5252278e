// internal/app/services/crushsvc/crushsvc.go
package crushsvc

import (
	"context"
	"errors"
	"time"

	crushstore "github.com/dalemusser/crushnote/internal/app/store/crushes"
	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/dalemusser/crushnote/internal/app/system/calendar"
	"github.com/dalemusser/crushnote/internal/app/system/inputval"
	"github.com/dalemusser/crushnote/internal/app/system/limits"
	"github.com/dalemusser/crushnote/internal/app/system/metrics"
	"github.com/dalemusser/crushnote/internal/app/system/normalize"
	"github.com/dalemusser/crushnote/internal/app/system/sanitize"
	"github.com/dalemusser/crushnote/internal/domain/models"
	"go.uber.org/zap"
)

// Store is the slice of the crush store the engine needs.
type Store interface {
	Upsert(ctx context.Context, from, month, to, message string) (models.Crush, error)
	Get(ctx context.Context, from, month string) (models.Crush, error)
	GetReciprocal(ctx context.Context, from, to, month string) (models.Crush, error)
	Delete(ctx context.Context, from, month string) (int64, error)
	ListFrom(ctx context.Context, from, beforeMonth string) ([]models.Crush, error)
	ListTargeting(ctx context.Context, to string, senders []string) ([]models.Crush, error)
}

// View is a slot as its owner sees it. ResponseMessage is the reciprocal
// slot's message and is only filled once the month's viewing window opens.
type View struct {
	ToEmail         string `json:"toEmail"`
	Month           string `json:"month"`
	Message         string `json:"message"`
	ResponseMessage string `json:"responseMessage"`
}

// Service is the crush matching engine. Every operation derives the window
// from Now through Calendar.
type Service struct {
	store  Store
	cal    calendar.Calendar
	limits limits.Limits
	log    *zap.Logger

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func New(store Store, cal calendar.Calendar, lim limits.Limits, logger *zap.Logger) *Service {
	return &Service{store: store, cal: cal, limits: lim, log: logger, Now: time.Now}
}

// SubmitInput is the caller-supplied part of a crush.
type SubmitInput struct {
	ToEmail string `validate:"required,emailshape" label:"Crush email"`
	Message string
}

// Submit writes the caller's slot for the current month, re-targeting it if
// one already exists.
func (s *Service) Submit(ctx context.Context, from string, in SubmitInput) (_ View, err error) {
	defer metrics.Track("crush_submit", &err)
	now := s.Now()
	from = normalize.Email(from)

	if s.cal.WindowFor(now) != calendar.Submission {
		return View{}, s.closed()
	}

	if res := inputval.Validate(in); res.HasErrors() {
		return View{}, apperr.Validation(res.First())
	}
	to := normalize.Email(in.ToEmail)
	if to == from {
		return View{}, apperr.Validation("You cannot choose yourself.")
	}
	msg := sanitize.Text(in.Message)
	if m := inputval.CheckText("Message", msg, s.limits.MessageLength, true); m != "" {
		return View{}, apperr.Validation(m)
	}

	month := s.cal.MonthKey(now)
	c, err := s.store.Upsert(ctx, from, month, to, msg)
	if err != nil {
		return View{}, apperr.Internal("crushes.upsert", err)
	}

	s.log.Info("crush saved", zap.String("from", from), zap.String("month", month))
	return View{ToEmail: c.ToEmail, Month: c.Month, Message: c.Message}, nil
}

// Delete removes the caller's slot for the current month.
func (s *Service) Delete(ctx context.Context, from string) (err error) {
	defer metrics.Track("crush_delete", &err)
	now := s.Now()
	from = normalize.Email(from)

	if s.cal.WindowFor(now) != calendar.Submission {
		return s.closed()
	}

	month := s.cal.MonthKey(now)
	n, err := s.store.Delete(ctx, from, month)
	if err != nil {
		return apperr.Internal("crushes.delete", err)
	}
	if n == 0 {
		return apperr.NotFound("You have no crush this month.")
	}

	s.log.Info("crush deleted", zap.String("from", from), zap.String("month", month))
	return nil
}

// Get returns the caller's slot for the current month, or nil when there is
// none. Mutuality is only revealed in the viewing window.
func (s *Service) Get(ctx context.Context, email string) (_ *View, err error) {
	defer metrics.Track("crush_get", &err)
	now := s.Now()
	email = normalize.Email(email)
	month := s.cal.MonthKey(now)

	c, err := s.store.Get(ctx, email, month)
	if errors.Is(err, crushstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal("crushes.get", err)
	}

	v := &View{ToEmail: c.ToEmail, Month: c.Month, Message: c.Message}
	if s.cal.WindowFor(now) != calendar.Viewing {
		return v, nil
	}

	back, err := s.store.GetReciprocal(ctx, c.ToEmail, email, month)
	switch {
	case err == nil:
		v.ResponseMessage = back.Message
	case !errors.Is(err, crushstore.ErrNotFound):
		return nil, apperr.Internal("crushes.reciprocal", err)
	}
	return v, nil
}

// History returns the caller's slots for months before the current one,
// newest first, with reciprocal messages revealed.
func (s *Service) History(ctx context.Context, email string) (_ []View, err error) {
	defer metrics.Track("crush_history", &err)
	email = normalize.Email(email)

	past, err := s.store.ListFrom(ctx, email, s.cal.MonthKey(s.Now()))
	if err != nil {
		return nil, apperr.Internal("crushes.history", err)
	}
	if len(past) == 0 {
		return []View{}, nil
	}

	targets := make([]string, 0, len(past))
	for _, c := range past {
		targets = append(targets, c.ToEmail)
	}
	back, err := s.store.ListTargeting(ctx, email, normalize.EmailList(targets))
	if err != nil {
		return nil, apperr.Internal("crushes.history_reciprocal", err)
	}
	type key struct{ from, month string }
	replies := make(map[key]string, len(back))
	for _, c := range back {
		replies[key{c.FromEmail, c.Month}] = c.Message
	}

	out := make([]View, 0, len(past))
	for _, c := range past {
		out = append(out, View{
			ToEmail:         c.ToEmail,
			Month:           c.Month,
			Message:         c.Message,
			ResponseMessage: replies[key{c.ToEmail, c.Month}],
		})
	}
	return out, nil
}

func (s *Service) closed() error {
	return apperr.WindowClosed("Crushes can only be changed on days 1 to %d of the month.", s.cal.SubmissionLastDay())
}
