// internal/app/features/login/handler.go
package login

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	userstore "github.com/dalemusser/registryhub/internal/app/store/users"
	"github.com/dalemusser/registryhub/internal/app/system/auditlog"
	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/registryhub/internal/app/system/authz"
	"github.com/dalemusser/registryhub/internal/app/system/limits"
	"github.com/dalemusser/registryhub/internal/app/system/metrics"
	"github.com/dalemusser/registryhub/internal/app/system/ratelimit"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler issues bearer tokens to staff users.
type Handler struct {
	Users    *userstore.Store
	Tokens   *auth.TokenManager
	Limiter  *ratelimit.LoginLimiter
	ErrLog   *uierrors.ErrorLogger
	AuditLog *auditlog.Logger
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, tokens *auth.TokenManager, limiter *ratelimit.LoginLimiter,
	errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Tokens:   tokens,
		Limiter:  limiter,
		ErrLog:   errLog,
		AuditLog: audit,
		Metrics:  m,
		Log:      logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

// HandleLogin handles POST /login with {"username","password"}.
//
// Unknown users and wrong passwords get the same 401 body; the audit log
// records which it was.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode login body failed", err, "Invalid JSON body.")
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		uierrors.BadRequest(w, "Username and password are required.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if h.Limiter != nil {
		if ok, reason := h.Limiter.Check(r, username); !ok {
			h.Metrics.IncLogin("rate_limited")
			h.AuditLog.LoginRateLimited(ctx, r, username)
			ratelimit.TooManyRequests(w, reason)
			return
		}
	}

	u, reason, err := h.Users.Authenticate(ctx, username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, userstore.ErrBadCredentials):
			h.Metrics.IncLogin("failure")
			h.AuditLog.LoginFailed(ctx, r, nil, username, reason)
			uierrors.Write(w, http.StatusUnauthorized, "Invalid username or password.")
		case errors.Is(err, userstore.ErrDisabled):
			h.Metrics.IncLogin("failure")
			h.AuditLog.LoginFailed(ctx, r, nil, username, reason)
			uierrors.Write(w, http.StatusForbidden, "Account disabled.")
		default:
			h.ErrLog.LogServerError(w, r, "authenticate failed", err, "A database error occurred.")
		}
		return
	}

	token, exp, err := h.Tokens.Issue(u.ID.Hex(), u.Role)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "issue token failed", err, "Failed to sign in.")
		return
	}

	if h.Limiter != nil {
		h.Limiter.ResetUser(username)
	}
	h.Metrics.IncLogin("success")
	h.AuditLog.LoginSuccess(ctx, r, u.ID, u.Username)

	uierrors.JSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: exp,
		User:      userView{ID: u.ID.Hex(), Username: u.Username, Role: u.Role},
	})
}

// permissions tells a client which guarded operations the user may call.
type permissions struct {
	Review         bool `json:"review"`
	Export         bool `json:"export"`
	ManageRegistry bool `json:"manage_registry"`
	Audit          bool `json:"audit"`
}

type meView struct {
	userView
	Permissions permissions `json:"permissions"`
}

// ServeMe handles GET /me, echoing the signed-in user and what it may do.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		uierrors.Write(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	uierrors.JSON(w, http.StatusOK, meView{
		userView: userView{ID: u.ID, Username: u.Username, Role: u.Role},
		Permissions: permissions{
			Review:         authz.CanReview(r),
			Export:         authz.CanExport(r),
			ManageRegistry: authz.CanManageRegistry(r),
			Audit:          authz.CanReadAudit(r),
		},
	})
}
