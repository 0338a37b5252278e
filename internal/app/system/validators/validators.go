// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates collections (if missing) and attaches JSON-Schema
// validators. On servers without collMod validator support (e.g. some
// DocumentDB versions) the validator step is logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var problems []string

	ensure := func(coll string, schema bson.M) {
		if err := ensureCollection(ctx, db, coll, logger); err != nil {
			problems = append(problems, coll+": "+err.Error())
			return
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isUnsupported(err) {
				logger.Info("validator skipped (unsupported)", zap.String("collection", coll))
				return
			}
			problems = append(problems, coll+": "+err.Error())
			return
		}
		logger.Info("validator ensured", zap.String("collection", coll))
	}

	ensure("users", usersSchema())
	ensure("groups", groupsSchema())
	ensure("crushes", crushesSchema())
	ensure("letters", lettersSchema())
	ensure("letter_quotas", quotasSchema())

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers ---------------------- */

func ensureCollection(ctx context.Context, db *mongo.Database, name string, logger *zap.Logger) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err == nil && len(names) > 0 {
		return nil
	}
	if err := db.CreateCollection(ctx, name); err != nil {
		if isNamespaceExists(err) {
			return nil
		}
		return err
	}
	logger.Info("created collection", zap.String("collection", name))
	return nil
}

func setValidator(ctx context.Context, db *mongo.Database, name string, schema bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: schema},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	return db.RunCommand(ctx, cmd).Err()
}

func commandErr(err error) (mongo.CommandError, bool) {
	var ce mongo.CommandError
	ok := errors.As(err, &ce)
	return ce, ok
}

func isNamespaceExists(err error) bool {
	if ce, ok := commandErr(err); ok && ce.Code == 48 {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "already exists")
}

// isUnsupported matches "no such command" (59) and "not implemented" (115).
func isUnsupported(err error) bool {
	if ce, ok := commandErr(err); ok && (ce.Code == 59 || ce.Code == 115) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "no such command") ||
		strings.Contains(s, "not implemented") ||
		strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var emailField = bson.M{"bsonType": "string", "minLength": 3, "pattern": "^[^\\s@]+@[^\\s@]+$"}

func usersSchema() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"email"},
		"properties": bson.M{
			"email": emailField,
			"name":  bson.M{"bsonType": "string"},
			"lang":  bson.M{"enum": bson.A{"", "en", "zh"}},
		},
	}}
}

func groupsSchema() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"name", "creator_email", "member_emails", "invited_emails", "version"},
		"properties": bson.M{
			"name":           bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"},
			"description":    bson.M{"bsonType": "string"},
			"creator_email":  emailField,
			"member_emails":  bson.M{"bsonType": "array", "minItems": 1, "uniqueItems": true, "items": emailField},
			"invited_emails": bson.M{"bsonType": "array", "uniqueItems": true, "items": emailField},
			"version":        bson.M{"bsonType": bson.A{"int", "long"}},
		},
	}}
}

func crushesSchema() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"from_email", "to_email", "month", "message"},
		"properties": bson.M{
			"from_email": emailField,
			"to_email":   emailField,
			"month":      bson.M{"bsonType": "string", "pattern": "^[0-9]{4}-[0-9]{2}$"},
			"message":    bson.M{"bsonType": "string", "minLength": 1},
		},
	}}
}

func lettersSchema() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"from_email", "from_group_id", "to_email", "content", "timestamp"},
		"properties": bson.M{
			"from_email":      emailField,
			"from_group_id":   bson.M{"bsonType": "objectId"},
			"to_email":        emailField,
			"alias":           bson.M{"bsonType": "string"},
			"content":         bson.M{"bsonType": "string", "minLength": 1},
			"reply_content":   bson.M{"bsonType": "string"},
			"reply_timestamp": bson.M{"bsonType": "date"},
			"timestamp":       bson.M{"bsonType": "date"},
		},
	}}
}

func quotasSchema() bson.M {
	return bson.M{"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": bson.A{"email", "day", "count"},
		"properties": bson.M{
			"email":      emailField,
			"day":        bson.M{"bsonType": "string", "pattern": "^[0-9]{4}-[0-9]{2}-[0-9]{2}$"},
			"count":      bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0},
			"expires_at": bson.M{"bsonType": "date"},
		},
	}}
}
