// internal/app/features/groups/handler.go
package groups

import (
	uierrors "github.com/dalemusser/crushnote/internal/app/features/errors"
	"github.com/dalemusser/crushnote/internal/app/services/groupsvc"
	"go.uber.org/zap"
)

// Handler owns the /group endpoints.
type Handler struct {
	Svc    *groupsvc.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(svc *groupsvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:    svc,
		Log:    logger,
		ErrLog: errLog,
	}
}
