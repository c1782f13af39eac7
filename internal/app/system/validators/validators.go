// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dalemusser/registryhub/internal/app/system/indexes"
	"github.com/dalemusser/registryhub/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// collectionSchema pairs a collection with the $jsonSchema it must carry.
// A nil schema only guarantees the collection exists.
type collectionSchema struct {
	name   string
	schema bson.M
}

func schemas() []collectionSchema {
	return []collectionSchema{
		{indexes.CollUsers, usersSchema()},
		{indexes.CollPending, applicantSchema(models.StatusPending, models.StatusRejected)},
		{indexes.CollRegistry, applicantSchema(models.StatusApproved)},
		{indexes.CollAudit, nil},
	}
}

// EnsureAll makes every collection exist and carry its validator. Missing
// collections are created with the validator attached; existing ones are
// updated with collMod. Deployments without validator support (some
// DocumentDB versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	present, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(present))
	for _, n := range present {
		have[n] = true
	}

	var problems []string
	for _, cs := range schemas() {
		log := zap.L().With(zap.String("collection", cs.name))
		var err error
		switch {
		case !have[cs.name]:
			err = create(ctx, db, cs)
			if err == nil {
				log.Info("created collection", zap.Bool("validated", cs.schema != nil))
			}
		case cs.schema != nil:
			err = db.RunCommand(ctx, bson.D{
				{Key: "collMod", Value: cs.name},
				{Key: "validator", Value: bson.M{"$jsonSchema": cs.schema}},
				{Key: "validationLevel", Value: validationLevel},
				{Key: "validationAction", Value: validationAction},
			}).Err()
			if err == nil {
				log.Info("validator updated")
			}
		}
		if err == nil {
			continue
		}
		if unsupported(err) {
			log.Info("validator skipped (unsupported)", zap.Error(err))
			continue
		}
		problems = append(problems, cs.name+": "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Existing documents that already violate a schema stay editable
// (moderate); new writes that violate it fail.
const (
	validationLevel  = "moderate"
	validationAction = "error"
)

func create(ctx context.Context, db *mongo.Database, cs collectionSchema) error {
	opts := options.CreateCollection()
	if cs.schema != nil {
		opts.SetValidator(bson.M{"$jsonSchema": cs.schema}).
			SetValidationLevel(validationLevel).
			SetValidationAction(validationAction)
	}
	err := db.CreateCollection(ctx, cs.name, opts)
	if commandCode(err) == codeNamespaceExists {
		// Created concurrently by another instance; attach the validator.
		if cs.schema == nil {
			return nil
		}
		return db.RunCommand(ctx, bson.D{
			{Key: "collMod", Value: cs.name},
			{Key: "validator", Value: bson.M{"$jsonSchema": cs.schema}},
		}).Err()
	}
	return err
}

const (
	codeNamespaceExists = 48
	codeCommandNotFound = 59
	codeNotImplemented  = 115
	codeNotSupported    = 303
)

func commandCode(err error) int32 {
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return 0
}

// unsupported reports errors from servers that lack collMod or validators.
func unsupported(err error) bool {
	switch commandCode(err) {
	case codeCommandNotFound, codeNotImplemented, codeNotSupported:
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such command") ||
		strings.Contains(s, "not implemented") ||
		strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

func enum(values []string) bson.M {
	a := make(bson.A, 0, len(values))
	for _, v := range values {
		a = append(a, v)
	}
	return bson.M{"enum": a}
}

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func usersSchema() bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{"username", "username_ci", "password_hash", "role", "status"},
		"properties": bson.M{
			"username":      nonBlank,
			"username_ci":   nonBlank,
			"password_hash": nonBlank,
			"role":          enum(models.Roles),
			"status":        bson.M{"enum": bson.A{"active", "disabled"}},
		},
	}
}

// applicantSchema guards the closed sets and the uniqueness keys. Detailed
// field validation happens before writes; this is the last line.
func applicantSchema(statuses ...string) bson.M {
	return bson.M{
		"bsonType": "object",
		"required": bson.A{
			"name", "national_id", "national_id_digits", "email", "birth_date",
			"sex", "affiliation", "professional_status", "education", "status", "created_at",
		},
		"properties": bson.M{
			"name":                nonBlank,
			"national_id":         nonBlank,
			"national_id_digits":  bson.M{"bsonType": "string", "pattern": "^[0-9]{11}$"},
			"email":               nonBlank,
			"birth_date":          bson.M{"bsonType": "date"},
			"sex":                 enum(models.Sexes),
			"affiliation":         enum(models.Affiliations),
			"professional_status": enum(models.ProfessionalStatuses),
			"education":           enum(models.EducationLevels),
			"wants_to_contribute": bson.M{"bsonType": "bool"},
			"contribution_amount": bson.M{"bsonType": bson.A{"double", "int", "long", "decimal"}, "minimum": 0},
			"photo_id":            bson.M{"bsonType": "objectId"},
			"credential_id":       bson.M{"bsonType": "objectId"},
			"status":              enum(statuses),
			"created_at":          bson.M{"bsonType": "date"},
			"expires_at":          bson.M{"bsonType": "date"},
		},
	}
}
