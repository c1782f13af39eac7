// internal/app/features/registry/handler.go
package registry

import (
	"context"
	"net/http"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	attachmentstore "github.com/dalemusser/registryhub/internal/app/store/attachments"
	"github.com/dalemusser/registryhub/internal/app/system/auditlog"
	"github.com/dalemusser/registryhub/internal/app/system/inputval"
	"github.com/dalemusser/registryhub/internal/app/system/metrics"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the permanent registry: administrative edits keyed by
// registration number and applicant self-service keyed by record id.
type Handler struct {
	Registry  *applicantstore.Store
	Blobs     *attachmentstore.Store
	MaxUpload int64
	ErrLog    *uierrors.ErrorLogger
	AuditLog  *auditlog.Logger
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

func NewHandler(registry *applicantstore.Store, blobs *attachmentstore.Store, maxUpload int64,
	errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Registry:  registry,
		Blobs:     blobs,
		MaxUpload: maxUpload,
		ErrLog:    errLog,
		AuditLog:  audit,
		Metrics:   m,
		Log:       logger,
	}
}

// merge overlays a validated edit onto the stored record. Identity,
// lifecycle and attachment references are kept; an empty registration
// number keeps the stored one.
func merge(existing models.Applicant, sub *inputval.Submission) models.Applicant {
	next := sub.Applicant()
	next.ID = existing.ID
	next.Status = models.StatusApproved
	next.CreatedAt = existing.CreatedAt
	next.PhotoID = existing.PhotoID
	next.CredentialID = existing.CredentialID
	if next.RegistrationNumber == "" {
		next.RegistrationNumber = existing.RegistrationNumber
	}
	return next
}

// checkUnique runs the duplicate pre-check for the fields that changed.
func (h *Handler) checkUnique(ctx context.Context, existing, next models.Applicant) error {
	nid, email := "", ""
	if next.NationalIDDigits != existing.NationalIDDigits {
		nid = next.NationalID
	}
	if next.Email != existing.Email {
		email = next.Email
	}
	if nid == "" && email == "" {
		return nil
	}
	return h.Registry.FindConflict(ctx, nid, email, existing.ID)
}

// writeInputError answers a validation or uniqueness failure, reporting
// false when err is neither.
func (h *Handler) writeInputError(w http.ResponseWriter, r *http.Request, err error) bool {
	if fe, ok := inputval.AsFieldError(err); ok {
		h.ErrLog.LogFieldError(w, r, http.StatusBadRequest, "registry edit rejected", fe.Message, fe.Field)
		return true
	}
	if ce, ok := applicantstore.AsConflict(err); ok {
		h.ErrLog.LogFieldError(w, r, http.StatusConflict, "registry edit collides", ce.Error(), ce.Field)
		return true
	}
	return false
}

func (h *Handler) deleteBlobs(ctx context.Context, ids []primitive.ObjectID, why string) {
	if len(ids) == 0 {
		return
	}
	if err := h.Blobs.DeleteAll(ctx, ids); err != nil {
		h.Log.Warn("failed to delete attachments", zap.String("reason", why), zap.Error(err))
	}
}
