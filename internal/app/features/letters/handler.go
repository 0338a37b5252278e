// internal/app/features/letters/handler.go
package letters

import (
	uierrors "github.com/dalemusser/crushnote/internal/app/features/errors"
	"github.com/dalemusser/crushnote/internal/app/services/lettersvc"
	"go.uber.org/zap"
)

// Handler owns the /letter endpoints.
type Handler struct {
	Svc    *lettersvc.Service
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

func NewHandler(svc *lettersvc.Service, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Svc:    svc,
		Log:    logger,
		ErrLog: errLog,
	}
}
