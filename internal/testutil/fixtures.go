package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/registryhub/internal/app/system/nationalid"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// SampleApplicant returns a complete, valid applicant with the given identity.
// It is not stored.
func SampleApplicant(name, nationalID, email string) models.Applicant {
	return models.Applicant{
		Name:               name,
		NationalID:         nationalID,
		Email:              email,
		Phone:              "(21) 99999-0000",
		BirthDate:          time.Date(1980, 5, 17, 0, 0, 0, 0, time.UTC),
		Sex:                "feminino",
		State:              "RJ",
		City:               "Rio de Janeiro",
		Address:            "Rua A, 10",
		PostalCode:         "20000-000",
		Affiliation:        "Marinha",
		ProfessionalStatus: "Ativa",
		Education:          "superior",
		Unit:               "Núcleo Centro",
		ReferrerName:       "João Souza",
		ReferrerNationalID: "111.444.777-35",
		Status:             models.StatusPending,
	}
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

func (f *Fixtures) insertApplicant(ctx context.Context, coll string, a models.Applicant) models.Applicant {
	f.t.Helper()

	now := time.Now().UTC()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.NationalIDDigits == "" {
		a.NationalIDDigits = nationalid.Digits(a.NationalID)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	if _, err := f.db.Collection(coll).InsertOne(ctx, a); err != nil {
		f.t.Fatalf("failed to create test applicant in %s: %v", coll, err)
	}
	return a
}

// CreatePending stores a pending applicant.
func (f *Fixtures) CreatePending(ctx context.Context, a models.Applicant) models.Applicant {
	f.t.Helper()
	if a.Status == "" {
		a.Status = models.StatusPending
	}
	return f.insertApplicant(ctx, "pending_applicants", a)
}

// CreateApproved stores an applicant directly in the registry.
func (f *Fixtures) CreateApproved(ctx context.Context, a models.Applicant) models.Applicant {
	f.t.Helper()
	a.Status = models.StatusApproved
	a.ExpiresAt = nil
	return f.insertApplicant(ctx, "applicants", a)
}

// CreateUser creates a staff user with the given password.
func (f *Fixtures) CreateUser(ctx context.Context, username, password, role string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		UsernameCI:   text.Fold(username),
		PasswordHash: string(hash),
		Role:         role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateAdmin creates an admin staff user.
func (f *Fixtures) CreateAdmin(ctx context.Context, username, password string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, username, password, models.RoleAdmin)
}

// CreateSecretary creates a secretario staff user.
func (f *Fixtures) CreateSecretary(ctx context.Context, username, password string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, username, password, models.RoleSecretary)
}

// CreateDisabledUser creates a staff user with disabled status.
func (f *Fixtures) CreateDisabledUser(ctx context.Context, username, password string) models.User {
	f.t.Helper()
	u := f.CreateUser(ctx, username, password, models.RoleAdmin)
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{"status": "disabled"}}); err != nil {
		f.t.Fatalf("failed to disable test user: %v", err)
	}
	u.Status = "disabled"
	return u
}
