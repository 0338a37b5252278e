package crushstore_test

import (
	"errors"
	"sync"
	"testing"

	crushstore "github.com/dalemusser/crushnote/internal/app/store/crushes"
	"github.com/dalemusser/crushnote/internal/app/system/indexes"
	"github.com/dalemusser/crushnote/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*crushstore.Store, *mongo.Database) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	return crushstore.New(db), db
}

func TestUpsert_RetargetsSameSlot(t *testing.T) {
	store, db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.Upsert(ctx, "a@x.com", "2026-03", "b@x.com", "hi")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	second, err := store.Upsert(ctx, "a@x.com", "2026-03", "c@x.com", "hello")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("re-submission created a new slot: %v vs %v", first.ID, second.ID)
	}
	if second.ToEmail != "c@x.com" || second.Message != "hello" {
		t.Errorf("slot not re-targeted: %+v", second)
	}

	n, _ := db.Collection("crushes").CountDocuments(ctx, bson.M{"from_email": "a@x.com"})
	if n != 1 {
		t.Errorf("slot count: got %d, want 1", n)
	}
}

func TestUpsert_ConcurrentSubmissionsKeepOneSlot(t *testing.T) {
	store, db := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Upsert(ctx, "a@x.com", "2026-03", "b@x.com", "hi"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Upsert: %v", err)
	}

	n, _ := db.Collection("crushes").CountDocuments(ctx, bson.M{"from_email": "a@x.com", "month": "2026-03"})
	if n != 1 {
		t.Errorf("slot count: got %d, want 1", n)
	}
}

func TestGetReciprocalAndDelete(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Upsert(ctx, "b@x.com", "2026-03", "a@x.com", "hey"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	c, err := store.GetReciprocal(ctx, "b@x.com", "a@x.com", "2026-03")
	if err != nil || c.Message != "hey" {
		t.Errorf("GetReciprocal: got %+v, %v", c, err)
	}
	if _, err := store.GetReciprocal(ctx, "b@x.com", "z@x.com", "2026-03"); !errors.Is(err, crushstore.ErrNotFound) {
		t.Errorf("non-matching reciprocal: got %v, want ErrNotFound", err)
	}

	if n, err := store.Delete(ctx, "b@x.com", "2026-03"); err != nil || n != 1 {
		t.Errorf("Delete: got %d, %v", n, err)
	}
	if n, _ := store.Delete(ctx, "b@x.com", "2026-03"); n != 0 {
		t.Errorf("second Delete: got %d, want 0", n)
	}
}

func TestListFromAndTargeting(t *testing.T) {
	store, _ := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, m := range []string{"2026-01", "2026-02", "2026-03"} {
		if _, err := store.Upsert(ctx, "a@x.com", m, "b@x.com", "msg "+m); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if _, err := store.Upsert(ctx, "b@x.com", "2026-02", "a@x.com", "back"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	past, err := store.ListFrom(ctx, "a@x.com", "2026-03")
	if err != nil {
		t.Fatalf("ListFrom: %v", err)
	}
	if len(past) != 2 || past[0].Month != "2026-02" || past[1].Month != "2026-01" {
		t.Errorf("ListFrom: got %+v", past)
	}

	back, err := store.ListTargeting(ctx, "a@x.com", []string{"b@x.com"})
	if err != nil {
		t.Fatalf("ListTargeting: %v", err)
	}
	if len(back) != 1 || back[0].Month != "2026-02" {
		t.Errorf("ListTargeting: got %+v", back)
	}
}
