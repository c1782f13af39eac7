package userstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/registryhub/internal/app/system/auth"
	"github.com/dalemusser/registryhub/internal/app/system/normalize"
	"github.com/dalemusser/registryhub/internal/app/system/status"
	"github.com/dalemusser/registryhub/internal/app/system/timeouts"
	"github.com/dalemusser/registryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
type Fetcher struct {
	users *mongo.Collection
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{users: db.Collection("users")}
}

// FetchUser retrieves a user by ID. A malformed ID, a missing user and a
// disabled user all yield (nil, nil); database failures are returned.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) (*auth.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":      1,
		"username": 1,
		"role":     1,
		"status":   1,
	})
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch user %s: %w", userID, err)
	}

	if normalize.Status(u.Status) == status.Disabled {
		return nil, nil
	}

	return &auth.User{
		ID:       u.ID.Hex(),
		Username: u.Username,
		Role:     normalize.Role(u.Role),
	}, nil
}
