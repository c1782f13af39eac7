// internal/app/features/register/handler.go
package register

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	attachmentstore "github.com/dalemusser/registryhub/internal/app/store/attachments"
	"github.com/dalemusser/registryhub/internal/app/system/auditlog"
	"github.com/dalemusser/registryhub/internal/app/system/inputval"
	"github.com/dalemusser/registryhub/internal/app/system/metrics"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"github.com/dalemusser/registryhub/internal/app/system/uploads"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SubmittedMessage is returned to the applicant on success.
const SubmittedMessage = "Registration submitted for approval"

// Handler accepts public applicant submissions into the pending queue.
type Handler struct {
	Pending   *applicantstore.Store
	Registry  *applicantstore.Store
	Blobs     *attachmentstore.Store
	MaxUpload int64
	ErrLog    *uierrors.ErrorLogger
	AuditLog  *auditlog.Logger
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

func NewHandler(pending, registry *applicantstore.Store, blobs *attachmentstore.Store, maxUpload int64,
	errLog *uierrors.ErrorLogger, audit *auditlog.Logger, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		Pending:   pending,
		Registry:  registry,
		Blobs:     blobs,
		MaxUpload: maxUpload,
		ErrLog:    errLog,
		AuditLog:  audit,
		Metrics:   m,
		Log:       logger,
	}
}

// HandleRegister handles POST /register.
//
// Steps run in a fixed order so a rejected submission never leaves blobs
// behind: validate, check duplicates in both collections, store attachments,
// insert the pending record. If the insert loses a race on a unique index
// the new blobs are deleted and the collision is reported like a pre-check
// hit.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	form, err := uploads.Parse(w, r, h.MaxUpload)
	if err != nil {
		h.Metrics.IncRegistration("invalid")
		if errors.Is(err, uploads.ErrTooLarge) {
			uierrors.TooLarge(w, err.Error())
			return
		}
		h.ErrLog.LogBadRequest(w, r, "parse registration form failed", err, "Invalid form data.")
		return
	}
	defer form.Close()

	sub, err := inputval.Check(form.Values)
	if err != nil {
		h.Metrics.IncRegistration("invalid")
		if fe, ok := inputval.AsFieldError(err); ok {
			h.ErrLog.LogFieldError(w, r, http.StatusBadRequest, "registration rejected", fe.Message, fe.Field)
			return
		}
		h.ErrLog.LogBadRequest(w, r, "registration rejected", err, "Invalid form data.")
		return
	}
	applicant := sub.Applicant()

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	for _, store := range []*applicantstore.Store{h.Pending, h.Registry} {
		if err := store.FindConflict(ctx, applicant.NationalID, applicant.Email, primitive.NilObjectID); err != nil {
			h.conflictOrFail(w, r, err, "duplicate check failed")
			return
		}
	}

	stored, err := uploads.Save(ctx, h.Blobs, form)
	if err != nil {
		h.Metrics.IncRegistration("error")
		h.ErrLog.LogServerError(w, r, "store attachments failed", err, "Failed to store attachments.")
		return
	}
	applicant.PhotoID = stored.Ref(uploads.FieldPhoto)
	applicant.CredentialID = stored.Ref(uploads.FieldCredential)

	created, err := h.Pending.Create(ctx, applicant)
	if err != nil {
		if delErr := h.Blobs.DeleteAll(ctx, stored.IDs()); delErr != nil {
			h.Log.Warn("failed to delete attachments of rejected registration", zap.Error(delErr))
		}
		h.conflictOrFail(w, r, err, "insert pending applicant failed")
		return
	}

	h.Metrics.IncRegistration("created")
	h.AuditLog.ApplicantRegistered(ctx, r, created.ID)
	uierrors.OK(w, http.StatusCreated, SubmittedMessage)
}

// conflictOrFail reports a duplicate as a 400 naming the field and anything
// else as a 500.
func (h *Handler) conflictOrFail(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	if ce, ok := applicantstore.AsConflict(err); ok {
		h.Metrics.IncRegistration("duplicate")
		h.ErrLog.LogFieldError(w, r, http.StatusBadRequest, "duplicate registration", ce.Error(), ce.Field)
		return
	}
	h.Metrics.IncRegistration("error")
	h.ErrLog.LogServerError(w, r, logMsg, err, "A database error occurred.")
}
