// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/hackreg/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. Servers without collMod/validator support (some DocumentDB
// versions) are logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if schema == nil {
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	ensure("team_registrations", teamRegistrationsSchema())
	ensure("colleges", collegesSchema())
	ensure("click_events", clickEventsSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// ensureCollection idempotently makes sure name exists, logging only when
// it was actually created.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		zap.L().Info("collection exists", zap.String("collection", name))
		return nil
	}
	// Listing failed or nothing found: create, tolerating a concurrent creator.
	if err := db.CreateCollection(ctx, name); err != nil {
		if hasCodeOrText(err, 48, "already exists", "namespace exists") {
			zap.L().Info("collection exists", zap.String("collection", name))
			return nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func hasCodeOrText(err error, code int32, texts ...string) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == code {
		return true
	}
	s := strings.ToLower(err.Error())
	for _, t := range texts {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// isUnsupported matches "no such command" (59) and "not implemented" (115).
func isUnsupported(err error) bool {
	return hasCodeOrText(err, 59, "no such command") ||
		hasCodeOrText(err, 115, "not implemented", "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var nonBlank = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}

func stringEnum(values []string) bson.A {
	out := bson.A{}
	for _, v := range values {
		out = append(out, v)
	}
	return out
}

func teamRegistrationsSchema() bson.M {
	participant := bson.M{
		"bsonType": "object",
		"required": bson.A{"name", "email", "age", "phone", "student_or_professional", "college_or_company_name"},
		"properties": bson.M{
			"name":                    nonBlank,
			"email":                   bson.M{"bsonType": "string", "pattern": "^[^\\s@A-Z]+@[^\\s@A-Z]+\\.[^\\s@A-Z]+$"},
			"age":                     bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 120},
			"phone":                   bson.M{"bsonType": "string", "pattern": "^\\+\\d{1,4}[6-9]\\d{9}$"},
			"student_or_professional": bson.M{"enum": stringEnum([]string{models.KindStudent, models.KindProfessional})},
			"college_or_company_name": nonBlank,
			"github_profile":          bson.M{"bsonType": "string"},
			"linkedin_profile":        bson.M{"bsonType": "string"},
			"devfolio_profile":        bson.M{"bsonType": "string"},
		},
	}

	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"team_name", "team_name_ci", "team_size", "idea_title", "idea_document_url", "participants", "status", "created_at"},
			"properties": bson.M{
				"team_name":         nonBlank,
				"team_name_ci":      nonBlank,
				"team_size":         bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 1, "maximum": 4},
				"selected":          bson.M{"bsonType": "bool"},
				"idea_title":        nonBlank,
				"idea_document_url": nonBlank,
				"idea_document_key": bson.M{"bsonType": "string"},
				"participants": bson.M{
					"bsonType": "array",
					"minItems": 1,
					"maxItems": 4,
					"items":    participant,
				},
				"status":     bson.M{"enum": stringEnum([]string{models.StatusRegistered, models.StatusApproved, models.StatusRejected})},
				"created_at": bson.M{"bsonType": "date"},
				"updated_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func collegesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "name_ci"},
			"properties": bson.M{
				"name":       nonBlank,
				"name_ci":    nonBlank,
				"created_at": bson.M{"bsonType": "date"},
			},
		},
	}
}

func clickEventsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"button_type", "created_at"},
			"properties": bson.M{
				"button_type": bson.M{"enum": stringEnum(models.ButtonTypes)},
				"user_agent":  bson.M{"bsonType": "string"},
				"ip_hash":     bson.M{"bsonType": "string"},
				"referrer":    bson.M{"bsonType": "string"},
				"created_at":  bson.M{"bsonType": "date"},
			},
		},
	}
}
