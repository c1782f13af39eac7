// internal/app/store/applicants/conflict.go
package applicantstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/registryhub/internal/app/system/nationalid"
	"github.com/dalemusser/registryhub/internal/app/system/normalize"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ConflictError reports that a unique field is already taken.
// Field is the submission field name (national_id, email or
// registration_number).
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	switch e.Field {
	case "national_id":
		return "national ID already registered"
	case "email":
		return "email already registered"
	case "registration_number":
		return "registration number already in use"
	}
	return fmt.Sprintf("%s already registered", e.Field)
}

// AsConflict unwraps err into a *ConflictError.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// FindConflict checks whether nid or email is already used by a record other
// than excludeID (pass primitive.NilObjectID to check against every record).
// The national ID is compared by digits; the email case-insensitively.
//
// This is a friendly pre-check. The unique indexes remain authoritative, and
// concurrent writers still surface as *ConflictError from Create/Replace.
func (s *Store) FindConflict(ctx context.Context, nid, email string, excludeID primitive.ObjectID) error {
	checks := []struct {
		field string
		key   string
		value string
	}{
		{"national_id", "national_id_digits", nationalid.Digits(nid)},
		{"email", "email", normalize.Email(email)},
	}

	for _, c := range checks {
		if c.value == "" {
			continue
		}
		filter := bson.M{c.key: c.value}
		if !excludeID.IsZero() {
			filter["_id"] = bson.M{"$ne": excludeID}
		}
		err := s.c.FindOne(ctx, filter).Err()
		if err == nil {
			return &ConflictError{Field: c.field}
		}
		if err != mongo.ErrNoDocuments {
			return err
		}
	}
	return nil
}

// translateDup converts a duplicate-key write error into a *ConflictError
// naming the field whose unique index was violated.
func translateDup(err error) error {
	if err == nil || !wafflemongo.IsDup(err) {
		return err
	}
	return &ConflictError{Field: dupField(err.Error())}
}

// dupField reads the index name out of an E11000 message such as
// "... index: uniq_applicants_email dup key: { email: \"a@b.c\" }".
func dupField(msg string) string {
	index := msg
	if i := strings.Index(msg, "index: "); i >= 0 {
		index = msg[i+len("index: "):]
		if j := strings.IndexByte(index, ' '); j >= 0 {
			index = index[:j]
		}
	}
	switch {
	case strings.Contains(index, "national_id"):
		return "national_id"
	case strings.Contains(index, "registration_number"):
		return "registration_number"
	case strings.Contains(index, "email"):
		return "email"
	}
	return "record"
}
