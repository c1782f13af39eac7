// internal/app/store/applicants/promote.go
package applicantstore

import (
	"context"
	"time"

	"github.com/dalemusser/registryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Promote copies a pending record into the registry as approved and then
// removes it from the pending queue.
//
// Errors:
//   - mongo.ErrNoDocuments: no pending record with that id
//   - ErrNotPending: the record was already decided
//   - *ConflictError: the registry already holds the national ID or email;
//     the pending record is left untouched
//
// If the pending delete fails after the registry insert succeeded, the
// approved record is kept and the error is returned; the leftover pending
// copy expires on its own.
func Promote(ctx context.Context, pending, registry *Store, id primitive.ObjectID) (models.Applicant, error) {
	p, err := pending.GetByID(ctx, id)
	if err != nil {
		return models.Applicant{}, err
	}
	if p.Status != models.StatusPending {
		return models.Applicant{}, ErrNotPending
	}

	rec := *p
	rec.ID = primitive.NewObjectID()
	rec.Status = models.StatusApproved
	rec.ExpiresAt = nil
	rec.UpdatedAt = time.Now().UTC()

	created, err := registry.Create(ctx, rec)
	if err != nil {
		return models.Applicant{}, err
	}
	if _, err := pending.Delete(ctx, id); err != nil {
		return created, err
	}
	return created, nil
}
