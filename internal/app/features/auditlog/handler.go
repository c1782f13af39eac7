// internal/app/features/auditlog/handler.go
package auditlog

import (
	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	"github.com/dalemusser/registryhub/internal/app/store/audit"
	userstore "github.com/dalemusser/registryhub/internal/app/store/users"
	"go.uber.org/zap"
)

type Handler struct {
	Audit  *audit.Store
	Users  *userstore.Store
	Log    *zap.Logger
	ErrLog *uierrors.ErrorLogger
}

// NewHandler constructs an Audit Log feature handler bound to the audit
// event store and the user store used to resolve actor names.
func NewHandler(events *audit.Store, users *userstore.Store, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Audit:  events,
		Users:  users,
		Log:    logger,
		ErrLog: errLog,
	}
}
