package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/crushnote/internal/app/system/validators"
	"github.com/dalemusser/crushnote/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_RejectsBadCrushMonth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("crushes").InsertOne(ctx, bson.M{
		"from_email": "a@x.com",
		"to_email":   "b@x.com",
		"month":      "March",
		"message":    "hi",
	})
	if err == nil {
		t.Error("expected schema validation to reject a malformed month")
	}
}

func TestEnsureAll_AcceptsValidLetter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	_, err := db.Collection("letters").InsertOne(ctx, bson.M{
		"from_email":    "a@x.com",
		"from_group_id": primitive.NewObjectID(),
		"to_email":      "b@x.com",
		"alias":         "",
		"content":       "hello",
		"timestamp":     time.Now().UTC(),
	})
	if err != nil {
		t.Errorf("valid letter rejected: %v", err)
	}
}
