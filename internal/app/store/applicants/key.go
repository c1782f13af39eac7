// internal/app/store/applicants/key.go
package applicantstore

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Key addresses one record either by its ObjectID or by its external
// registration number. Handlers resolve a Key once and then work with the
// canonical ObjectID.
type Key struct {
	id     primitive.ObjectID
	regNum string
}

// ByID addresses a record by ObjectID.
func ByID(id primitive.ObjectID) Key {
	return Key{id: id}
}

// ByRegistrationNumber addresses a record by its registration number.
func ByRegistrationNumber(n string) Key {
	return Key{regNum: strings.TrimSpace(n)}
}

func (k Key) String() string {
	if !k.id.IsZero() {
		return "id:" + k.id.Hex()
	}
	return "registration_number:" + k.regNum
}

// Resolve returns the ObjectID of the record k addresses, or
// mongo.ErrNoDocuments.
func (s *Store) Resolve(ctx context.Context, k Key) (primitive.ObjectID, error) {
	var filter bson.M
	switch {
	case !k.id.IsZero():
		filter = bson.M{"_id": k.id}
	case k.regNum != "":
		filter = bson.M{"registration_number": k.regNum}
	default:
		return primitive.NilObjectID, mongo.ErrNoDocuments
	}

	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	proj := options.FindOne().SetProjection(bson.M{"_id": 1})
	if err := s.c.FindOne(ctx, filter, proj).Decode(&doc); err != nil {
		return primitive.NilObjectID, err
	}
	return doc.ID, nil
}
