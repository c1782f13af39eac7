// internal/app/features/errors/logger.go
package errors

import (
	"net/http"

	"github.com/dalemusser/registryhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorLogger logs failures with request context and then writes the
// client-facing JSON error. Internal detail goes to the log only.
type ErrorLogger struct {
	log *zap.Logger
}

// NewErrorLogger creates an ErrorLogger. A nil logger is replaced by zap.L().
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.L()
	}
	return &ErrorLogger{log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if _, username, _, ok := authz.UserCtx(r); ok {
		fields = append(fields, zap.String("user", username))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	return fields
}

// LogServerError logs at error level and sends a 500 with userMsg.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.log.Error(logMsg, e.fields(r, err)...)
	Write(w, http.StatusInternalServerError, userMsg)
}

// LogBadRequest logs at info level and sends a 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, logMsg string, err error, userMsg string) {
	e.log.Info(logMsg, e.fields(r, err)...)
	Write(w, http.StatusBadRequest, userMsg)
}

// LogFieldError logs at info level and sends status with the offending field.
func (e *ErrorLogger) LogFieldError(w http.ResponseWriter, r *http.Request, status int, logMsg, userMsg, field string) {
	e.log.Info(logMsg, append(e.fields(r, nil), zap.String("field", field))...)
	WriteField(w, status, userMsg, field)
}
