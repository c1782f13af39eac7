package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/registryhub/internal/app/system/normalize"
	"github.com/dalemusser/registryhub/internal/app/system/status"
	"github.com/dalemusser/registryhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByIDs loads the users with the given ids. Unknown ids are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByUsername looks up a user by case-insensitive username. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"username_ci": text.Fold(normalize.Username(username))}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

var (
	// ErrDuplicateUsername is returned when attempting to create a user with a username that already exists.
	ErrDuplicateUsername = errors.New("a user with this username already exists")
	// ErrBadCredentials is returned by Authenticate for an unknown user or a wrong password.
	ErrBadCredentials = errors.New("invalid username or password")
	// ErrDisabled is returned by Authenticate for a disabled account.
	ErrDisabled = errors.New("user is disabled")

	errBadRole    = errors.New(`role must be "admin"|"secretario"`)
	errBadStatus  = errors.New(`status must be "active"|"disabled"`)
	errNoUsername = errors.New("username is required")
	errNoPassword = errors.New("password is required")
)

// Create inserts a new staff user after normalizing & validating fields.
// The password is stored as a bcrypt hash.
func (s *Store) Create(ctx context.Context, u models.User, password string) (models.User, error) {
	// Normalize core fields
	u.ID = primitive.NewObjectID()
	u.Username = normalize.Username(u.Username)
	u.UsernameCI = text.Fold(u.Username)
	u.Role = normalize.Role(u.Role)
	if u.Status == "" {
		u.Status = status.Active
	}

	if u.Username == "" {
		return models.User{}, errNoUsername
	}
	if password == "" {
		return models.User{}, errNoPassword
	}

	// Validate role
	switch u.Role {
	case models.RoleAdmin, models.RoleSecretary:
		// ok
	default:
		return models.User{}, errBadRole
	}

	// Validate status
	if !status.IsValid(u.Status) {
		return models.User{}, errBadStatus
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	u.PasswordHash = string(hash)

	// Timestamps
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	// Insert
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateUsername
		}
		return models.User{}, err
	}
	return u, nil
}

// Authenticate checks a username/password pair and returns the user.
// Unknown usernames and wrong passwords both yield ErrBadCredentials so
// callers cannot tell them apart; the distinction is returned in reason for
// audit logging.
func (s *Store) Authenticate(ctx context.Context, username, password string) (u *models.User, reason string, err error) {
	u, err = s.GetByUsername(ctx, username)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, "user_not_found", ErrBadCredentials
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "wrong_password", ErrBadCredentials
	}
	if normalize.Status(u.Status) == status.Disabled {
		return nil, "user_disabled", ErrDisabled
	}
	return u, "", nil
}

// EnsureUser creates the user if no user with that username exists.
// It reports whether a user was created. Existing users are left untouched,
// including their password.
func (s *Store) EnsureUser(ctx context.Context, username, password, role string) (bool, error) {
	_, err := s.GetByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if err != mongo.ErrNoDocuments {
		return false, err
	}
	if _, err := s.Create(ctx, models.User{Username: username, Role: role}, password); err != nil {
		if errors.Is(err, ErrDuplicateUsername) {
			// lost a race with another instance
			return false, nil
		}
		return false, err
	}
	return true, nil
}
