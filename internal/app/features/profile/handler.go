// internal/app/features/profile/handler.go
package profile

import (
	uierrors "github.com/dalemusser/crushnote/internal/app/features/errors"
	"github.com/dalemusser/crushnote/internal/app/services/profilesvc"
	"go.uber.org/zap"
)

// Handler owns the /user endpoints: login, profile and name lookup.
type Handler struct {
	Svc    *profilesvc.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(svc *profilesvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:    svc,
		Log:    logger,
		ErrLog: errLog,
	}
}
