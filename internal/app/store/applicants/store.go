// internal/app/store/applicants/store.go
package applicantstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/registryhub/internal/app/system/nationalid"
	"github.com/dalemusser/registryhub/internal/app/system/normalize"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	PendingCollection  = "pending_applicants"
	RegistryCollection = "applicants"
)

// ErrNotPending is returned when a review is attempted on a record that has
// already been decided.
var ErrNotPending = errors.New("applicant is not pending")

// Store wraps one applicant collection. The pending queue and the permanent
// registry share the same record shape and operations.
type Store struct {
	c   *mongo.Collection
	ttl time.Duration
}

// NewPending returns the pending queue. Records expire ttl after creation
// (ttl <= 0 disables expiry).
func NewPending(db *mongo.Database, ttl time.Duration) *Store {
	return &Store{c: db.Collection(PendingCollection), ttl: ttl}
}

// NewRegistry returns the permanent registry. Registry records never expire.
func NewRegistry(db *mongo.Database) *Store {
	return &Store{c: db.Collection(RegistryCollection)}
}

// Name returns the underlying collection name.
func (s *Store) Name() string {
	return s.c.Name()
}

func prepare(a *models.Applicant) {
	a.NationalIDDigits = nationalid.Digits(a.NationalID)
	a.Email = normalize.Email(a.Email)
	a.Name = normalize.Name(a.Name)
}

// Create inserts a new record. A zero ID is assigned, timestamps are stamped
// and, for the pending queue, expires_at is set from the queue TTL.
// Uniqueness violations come back as *ConflictError.
func (s *Store) Create(ctx context.Context, a models.Applicant) (models.Applicant, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	prepare(&a)
	if a.Status == "" {
		a.Status = models.StatusPending
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	a.ExpiresAt = nil
	if s.ttl > 0 {
		exp := a.CreatedAt.Add(s.ttl)
		a.ExpiresAt = &exp
	}

	if _, err := s.c.InsertOne(ctx, a); err != nil {
		return models.Applicant{}, translateDup(err)
	}
	return a, nil
}

// GetByID loads a record. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Applicant, error) {
	var a models.Applicant
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByNationalID looks a record up by national ID: first by exact stored
// value, then by its digit-only form.
func (s *Store) GetByNationalID(ctx context.Context, nid string) (*models.Applicant, error) {
	var a models.Applicant
	err := s.c.FindOne(ctx, bson.M{"national_id": nid}).Decode(&a)
	if err == nil {
		return &a, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	digits := nationalid.Digits(nid)
	if digits == "" {
		return nil, mongo.ErrNoDocuments
	}
	if err := s.c.FindOne(ctx, bson.M{"national_id_digits": digits}).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByStatus returns records in the given status, oldest first.
func (s *Store) ListByStatus(ctx context.Context, status string) ([]models.Applicant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"status": status}, opts)
}

// ListApproved returns every approved record ordered by name.
func (s *Store) ListApproved(ctx context.Context) ([]models.Applicant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	return s.find(ctx, bson.M{"status": models.StatusApproved}, opts)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Applicant, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Applicant{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetStatus moves a pending record to status. Only pending records may
// change; a decided record yields ErrNotPending and a missing one
// mongo.ErrNoDocuments. A non-nil expiresAt replaces the record's expiry.
func (s *Store) SetStatus(ctx context.Context, id primitive.ObjectID, status string, expiresAt *time.Time) error {
	set := bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	}
	if expiresAt != nil {
		set["expires_at"] = expiresAt.UTC()
	}

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return s.missingOrDecided(ctx, id)
	}
	return nil
}

func (s *Store) missingOrDecided(ctx context.Context, id primitive.ObjectID) error {
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return mongo.ErrNoDocuments
	}
	return ErrNotPending
}

// Replace overwrites a record in full, keeping its creation time.
// Returns mongo.ErrNoDocuments if the record is gone and *ConflictError on
// uniqueness violations.
func (s *Store) Replace(ctx context.Context, a models.Applicant) (models.Applicant, error) {
	prepare(&a)
	a.UpdatedAt = time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = a.UpdatedAt
	}

	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return models.Applicant{}, translateDup(err)
	}
	if res.MatchedCount == 0 {
		return models.Applicant{}, mongo.ErrNoDocuments
	}
	return a, nil
}

// Delete removes a record by ID and returns the number deleted (0 or 1).
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ReferencedAttachmentIDs returns every attachment id referenced by a record
// in this collection.
func (s *Store) ReferencedAttachmentIDs(ctx context.Context) (map[primitive.ObjectID]struct{}, error) {
	filter := bson.M{"$or": []bson.M{
		{"photo_id": bson.M{"$exists": true}},
		{"credential_id": bson.M{"$exists": true}},
	}}
	proj := options.Find().SetProjection(bson.M{"photo_id": 1, "credential_id": 1})

	cur, err := s.c.Find(ctx, filter, proj)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	refs := make(map[primitive.ObjectID]struct{})
	for cur.Next(ctx) {
		var a models.Applicant
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		for _, id := range a.AttachmentIDs() {
			refs[id] = struct{}{}
		}
	}
	return refs, cur.Err()
}
