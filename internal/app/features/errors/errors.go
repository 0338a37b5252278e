// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/crushnote/internal/app/system/apperr"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// body is the JSON shape of every error response.
type body struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorLogger writes classified errors as JSON and logs them. Internal
// failures are logged with full detail and reach the client only as an
// opaque message.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger constructs an ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{Log: logger}
}

// Write responds with err's status and public message. op names the
// operation for the log line.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, op string, err error) {
	ae := apperr.As(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("kind", ae.Kind.String()),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	}

	switch ae.Kind {
	case apperr.KindInternal:
		e.Log.Error("request failed", append(fields, zap.Error(err))...)
	case apperr.KindUnauthorized, apperr.KindRateLimited:
		e.Log.Info("request rejected", append(fields, zap.String("reason", ae.Message))...)
	default:
		e.Log.Debug("request rejected", append(fields, zap.String("reason", ae.Message))...)
	}

	WriteJSON(w, ae.Kind.HTTPStatus(), body{Error: ae.Kind.String(), Message: ae.Public()})
}

// AuthFailed adapts Write to the auth middleware's error hook.
func (e *ErrorLogger) AuthFailed(w http.ResponseWriter, r *http.Request, err error) {
	e.Write(w, r, "auth", err)
}

// TooManyRequests is the rejection handler for the request limiter.
func (e *ErrorLogger) TooManyRequests(w http.ResponseWriter, r *http.Request) {
	e.Write(w, r, "ratelimit", apperr.RateLimited("Too many requests. Please try again later."))
}

// NotFound answers unknown routes.
func (e *ErrorLogger) NotFound(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, body{Error: apperr.KindNotFound.String(), Message: "Not found."})
}

// MethodNotAllowed answers known routes called with the wrong verb.
func (e *ErrorLogger) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusMethodNotAllowed, body{Error: "method_not_allowed", Message: "Method not allowed."})
}
