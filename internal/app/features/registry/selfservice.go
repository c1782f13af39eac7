// internal/app/features/registry/selfservice.go
package registry

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	uierrors "github.com/dalemusser/registryhub/internal/app/features/errors"
	applicantstore "github.com/dalemusser/registryhub/internal/app/store/applicants"
	"github.com/dalemusser/registryhub/internal/app/system/inputval"
	"github.com/dalemusser/registryhub/internal/app/system/nationalid"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"github.com/dalemusser/registryhub/internal/app/system/uploads"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// nationalIDParams are the accepted query names for the lookup key.
var nationalIDParams = []string{"national_id", "nationalId", "cpf"}

// ServeLookup handles GET /buscar?national_id=...[&birth_date=YYYY-MM-DD].
//
// The stored value is matched as typed first and then by digits, so
// formatted and raw IDs both resolve. When birth_date is given it must match
// the record; a mismatch is reported as not found.
func (h *Handler) ServeLookup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nid := ""
	for _, p := range nationalIDParams {
		if v := strings.TrimSpace(q.Get(p)); v != "" {
			nid = v
			break
		}
	}
	if nid == "" {
		uierrors.WriteField(w, http.StatusBadRequest, "national_id is required", "national_id")
		return
	}

	var birth *time.Time
	if raw := strings.TrimSpace(q.Get("birth_date")); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			uierrors.WriteField(w, http.StatusBadRequest, "birth_date must be YYYY-MM-DD", "birth_date")
			return
		}
		birth = &t
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rec, err := h.Registry.GetByNationalID(ctx, nid)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.NotFound(w, "Record not found.")
			return
		}
		h.ErrLog.LogServerError(w, r, "lookup by national id failed", err, "A database error occurred.")
		return
	}
	if birth != nil && !sameDay(*birth, rec.BirthDate) {
		h.Log.Info("lookup birth date mismatch", zap.String("national_id", nationalid.Digits(nid)))
		uierrors.NotFound(w, "Record not found.")
		return
	}
	uierrors.JSON(w, http.StatusOK, rec)
}

func sameDay(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// HandleSelfUpdate handles PUT /atualizar/{id}: a multipart edit of the
// caller's own record with optional photo and credential replacement.
// Replaced blobs are deleted only after the record write succeeds; new blobs
// are deleted if it fails.
func (h *Handler) HandleSelfUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.NotFound(w, "Record not found.")
		return
	}

	form, err := uploads.Parse(w, r, h.MaxUpload)
	if err != nil {
		if errors.Is(err, uploads.ErrTooLarge) {
			uierrors.TooLarge(w, err.Error())
			return
		}
		h.ErrLog.LogBadRequest(w, r, "parse self-update form failed", err, "Invalid form data.")
		return
	}
	defer form.Close()

	sub, err := inputval.Check(form.Values)
	if err != nil {
		if !h.writeInputError(w, r, err) {
			h.ErrLog.LogBadRequest(w, r, "self-update rejected", err, "Invalid form data.")
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	key := applicantstore.ByID(id)
	existing, err := h.load(ctx, key)
	if err != nil {
		h.writeLookupError(w, r, err, key)
		return
	}

	next := merge(*existing, sub)
	// Self-service never moves the external registration number.
	next.RegistrationNumber = existing.RegistrationNumber

	if err := h.checkUnique(ctx, *existing, next); err != nil {
		if !h.writeInputError(w, r, err) {
			h.ErrLog.LogServerError(w, r, "duplicate check failed", err, "A database error occurred.")
		}
		return
	}

	stored, err := uploads.Save(ctx, h.Blobs, form)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "store attachments failed", err, "Failed to store attachments.")
		return
	}
	var replaced []primitive.ObjectID
	if ref := stored.Ref(uploads.FieldPhoto); ref != nil {
		if existing.PhotoID != nil {
			replaced = append(replaced, *existing.PhotoID)
		}
		next.PhotoID = ref
	}
	if ref := stored.Ref(uploads.FieldCredential); ref != nil {
		if existing.CredentialID != nil {
			replaced = append(replaced, *existing.CredentialID)
		}
		next.CredentialID = ref
	}

	updated, err := h.Registry.Replace(ctx, next)
	if err != nil {
		h.deleteBlobs(ctx, stored.IDs(), "self-update failed")
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.NotFound(w, "Record not found.")
			return
		}
		if !h.writeInputError(w, r, err) {
			h.ErrLog.LogServerError(w, r, "replace registry record failed", err, "A database error occurred.")
		}
		return
	}
	h.deleteBlobs(ctx, replaced, "attachment replaced")

	h.Metrics.IncRegistryChange("self_updated")
	h.AuditLog.ApplicantSelfUpdated(ctx, r, updated.ID, len(stored))
	uierrors.JSON(w, http.StatusOK, updated)
}
