// internal/app/features/review/handler.go
package review

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	"github.com/dalemusser/registryhub/internal/app/system/auditlog"
	"github.com/dalemusser/registryhub/internal/app/system/authz"
	"github.com/dalemusser/registryhub/internal/app/system/limits"
	"github.com/dalemusser/registryhub/internal/app/system/metrics"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultRejectedRetention is how long a rejected record stays in the
// pending collection before the TTL index purges it.
const DefaultRejectedRetention = 7 * 24 * time.Hour

// Handler serves the staff review queue.
type Handler struct {
	Pending           *applicantstore.Store
	Registry          *applicantstore.Store
	RejectedRetention time.Duration
	ErrLog            *uierrors.ErrorLogger
	AuditLog          *auditlog.Logger
	Metrics           *metrics.Metrics
	Log               *zap.Logger
}

func NewHandler(pending, registry *applicantstore.Store, rejectedRetention time.Duration,
	errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	if rejectedRetention <= 0 {
		rejectedRetention = DefaultRejectedRetention
	}
	return &Handler{
		Pending:           pending,
		Registry:          registry,
		RejectedRetention: rejectedRetention,
		ErrLog:            errLog,
		AuditLog:          audit,
		Metrics:           m,
		Log:               logger,
	}
}

// ServeList handles GET /pending: undecided records, oldest first.
// Rejected records awaiting expiry are not listed.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	list, err := h.Pending.ListByStatus(ctx, models.StatusPending)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list pending applicants failed", err, "A database error occurred.")
		return
	}
	uierrors.JSON(w, http.StatusOK, list)
}

type statusRequest struct {
	Status string `json:"status"`
}

type statusResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	ID      string `json:"id"`
}

// parseDecision maps a requested status to a lifecycle state. The
// Portuguese spellings are accepted for older clients.
func parseDecision(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case models.StatusApproved, "aprovado":
		return models.StatusApproved, true
	case models.StatusRejected, "rejeitado":
		return models.StatusRejected, true
	}
	return "", false
}

// HandleStatus handles PUT /{id}/status with body {"status": "approved"|"rejected"}.
//
// Approval promotes the record into the registry and returns the new
// registry id. Rejection flips the status in place and schedules the record
// for purge after the retention window.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.BadRequest(w, "Invalid applicant id.")
		return
	}

	var req statusRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody)).Decode(&req); err != nil {
		h.ErrLog.LogBadRequest(w, r, "decode status body failed", err, "Invalid JSON body.")
		return
	}
	decision, ok := parseDecision(req.Status)
	if !ok {
		uierrors.WriteField(w, http.StatusBadRequest, "status must be approved or rejected", "status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	actor := authz.ActorID(r)
	resultID := id

	switch decision {
	case models.StatusApproved:
		created, err := applicantstore.Promote(ctx, h.Pending, h.Registry, id)
		if err != nil && created.ID.IsZero() {
			h.writeTransitionError(w, r, err)
			return
		}
		if err != nil {
			// Approved, but the pending copy could not be removed; it expires on its own.
			h.Log.Warn("pending applicant not removed after approval",
				zap.String("pending_id", id.Hex()), zap.Error(err))
		}
		resultID = created.ID
		h.AuditLog.ApplicantApproved(ctx, r, actor, id, created.ID)

	case models.StatusRejected:
		expires := time.Now().UTC().Add(h.RejectedRetention)
		if err := h.Pending.SetStatus(ctx, id, models.StatusRejected, &expires); err != nil {
			h.writeTransitionError(w, r, err)
			return
		}
		h.AuditLog.ApplicantRejected(ctx, r, actor, id)
	}

	h.Metrics.IncReview(decision)
	uierrors.JSON(w, http.StatusOK, statusResponse{
		Message: "Status updated",
		Status:  decision,
		ID:      resultID.Hex(),
	})
}

func (h *Handler) writeTransitionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		uierrors.NotFound(w, "Applicant not found.")
	case errors.Is(err, applicantstore.ErrNotPending):
		uierrors.Write(w, http.StatusConflict, "Applicant has already been reviewed.")
	default:
		if ce, ok := applicantstore.AsConflict(err); ok {
			h.ErrLog.LogFieldError(w, r, http.StatusConflict, "approval collides with registry", ce.Error(), ce.Field)
			return
		}
		h.ErrLog.LogServerError(w, r, "review transition failed", err, "A database error occurred.")
	}
}
