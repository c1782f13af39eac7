// internal/app/features/registry/admin.go
package registry

import (
	"context"
	"errors"
	"net/http"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	"github.com/dalemusser/registryhub/internal/app/system/authz"
	"github.com/dalemusser/registryhub/internal/app/system/inputval"
	"github.com/dalemusser/registryhub/internal/app/system/limits"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
)

// HandleAdminUpdate handles PUT /{registrationNumber} with the full record
// as JSON. The record is re-validated like a new submission.
func (h *Handler) HandleAdminUpdate(w http.ResponseWriter, r *http.Request) {
	key := applicantstore.ByRegistrationNumber(chi.URLParam(r, "registrationNumber"))

	values, err := inputval.ValuesFromJSON(http.MaxBytesReader(w, r.Body, limits.MaxJSONBody))
	if err != nil {
		if !h.writeInputError(w, r, err) {
			h.ErrLog.LogBadRequest(w, r, "decode registry edit failed", err, "Invalid JSON body.")
		}
		return
	}
	sub, err := inputval.Check(values)
	if err != nil {
		if !h.writeInputError(w, r, err) {
			h.ErrLog.LogBadRequest(w, r, "registry edit rejected", err, "Invalid record.")
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	existing, err := h.load(ctx, key)
	if err != nil {
		h.writeLookupError(w, r, err, key)
		return
	}

	next := merge(*existing, sub)
	if err := h.checkUnique(ctx, *existing, next); err != nil {
		if !h.writeInputError(w, r, err) {
			h.ErrLog.LogServerError(w, r, "duplicate check failed", err, "A database error occurred.")
		}
		return
	}

	updated, err := h.Registry.Replace(ctx, next)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.NotFound(w, "Record not found.")
			return
		}
		if !h.writeInputError(w, r, err) {
			h.ErrLog.LogServerError(w, r, "replace registry record failed", err, "A database error occurred.")
		}
		return
	}

	h.Metrics.IncRegistryChange("updated")
	h.AuditLog.ApplicantUpdated(ctx, r, authz.ActorID(r), updated.ID, updated.RegistrationNumber)
	uierrors.JSON(w, http.StatusOK, updated)
}

// HandleAdminDelete handles DELETE /{registrationNumber}. The record's
// attachments are deleted with it.
func (h *Handler) HandleAdminDelete(w http.ResponseWriter, r *http.Request) {
	key := applicantstore.ByRegistrationNumber(chi.URLParam(r, "registrationNumber"))

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	existing, err := h.load(ctx, key)
	if err != nil {
		h.writeLookupError(w, r, err, key)
		return
	}

	n, err := h.Registry.Delete(ctx, existing.ID)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "delete registry record failed", err, "A database error occurred.")
		return
	}
	if n == 0 {
		uierrors.NotFound(w, "Record not found.")
		return
	}
	h.deleteBlobs(ctx, existing.AttachmentIDs(), "record deleted")

	h.Metrics.IncRegistryChange("deleted")
	h.AuditLog.ApplicantDeleted(ctx, r, authz.ActorID(r), existing.ID, existing.RegistrationNumber)
	uierrors.OK(w, http.StatusOK, "Record deleted")
}

// load resolves key and fetches the record it addresses.
func (h *Handler) load(ctx context.Context, key applicantstore.Key) (*models.Applicant, error) {
	id, err := h.Registry.Resolve(ctx, key)
	if err != nil {
		return nil, err
	}
	return h.Registry.GetByID(ctx, id)
}

func (h *Handler) writeLookupError(w http.ResponseWriter, r *http.Request, err error, key applicantstore.Key) {
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.NotFound(w, "Record not found.")
		return
	}
	h.ErrLog.LogServerError(w, r, "resolve registry record failed ("+key.String()+")", err, "A database error occurred.")
}
