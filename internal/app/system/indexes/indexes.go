// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each collection's index set is reconciled
idempotently; problems are aggregated so startup fails with the full list.
*/
func EnsureAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	var problems []string
	for _, set := range desired() {
		if err := ensureIndexSet(ctx, db.Collection(set.collection), set.models, logger); err != nil {
			problems = append(problems, set.collection+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type indexSet struct {
	collection string
	models     []mongo.IndexModel
}

func desired() []indexSet {
	return []indexSet{
		{"users", []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_users_email").SetUnique(true)},
		}},
		{"groups", []mongo.IndexModel{
			{Keys: bson.D{{Key: "creator_email", Value: 1}}, Options: options.Index().SetName("idx_groups_creator")},
			{Keys: bson.D{{Key: "member_emails", Value: 1}}, Options: options.Index().SetName("idx_groups_members")},
			{Keys: bson.D{{Key: "invited_emails", Value: 1}}, Options: options.Index().SetName("idx_groups_invited")},
		}},
		{"crushes", []mongo.IndexModel{
			// One slot per sender per month.
			{Keys: bson.D{{Key: "from_email", Value: 1}, {Key: "month", Value: 1}}, Options: options.Index().SetName("uniq_crushes_from_month").SetUnique(true)},
			{Keys: bson.D{{Key: "to_email", Value: 1}}, Options: options.Index().SetName("idx_crushes_to")},
		}},
		{"letters", []mongo.IndexModel{
			{Keys: bson.D{{Key: "from_email", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_letters_from_ts")},
			{Keys: bson.D{{Key: "to_email", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_letters_to_ts")},
		}},
		{"letter_quotas", []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}, {Key: "day", Value: 1}}, Options: options.Index().SetName("uniq_quotas_email_day").SetUnique(true)},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetName("ttl_quotas_expires").SetExpireAfterSeconds(0)},
		}},
		{"oauth_states", []mongo.IndexModel{
			{Keys: bson.D{{Key: "state", Value: 1}}, Options: options.Index().SetName("uniq_oauth_state").SetUnique(true)},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetName("ttl_oauth_expires").SetExpireAfterSeconds(0)},
		}},
	}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name               string `bson:"name"`
	Key                bson.D `bson:"key"`
	Unique             *bool  `bson:"unique,omitempty"`
	ExpireAfterSeconds *int32 `bson:"expireAfterSeconds,omitempty"`
}

type spec struct {
	name   string
	sig    string
	unique bool
	ttl    *int32
}

func specOf(m mongo.IndexModel) spec {
	s := spec{sig: keySig(m.Keys.(bson.D))}
	if o := m.Options; o != nil {
		if o.Name != nil {
			s.name = *o.Name
		}
		s.unique = o.Unique != nil && *o.Unique
		s.ttl = o.ExpireAfterSeconds
	}
	return s
}

func (s spec) matches(ex existingIndex) bool {
	exUnique := ex.Unique != nil && *ex.Unique
	if s.unique != exUnique {
		return false
	}
	switch {
	case s.ttl == nil && ex.ExpireAfterSeconds == nil:
		return true
	case s.ttl != nil && ex.ExpireAfterSeconds != nil:
		return *s.ttl == *ex.ExpireAfterSeconds
	}
	return false
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func listExisting(ctx context.Context, coll *mongo.Collection, logger *zap.Logger) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			logger.Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates missing indexes and replaces ones whose key pattern
// matches but whose name or options differ.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel, logger *zap.Logger) error {
	existing, err := listExisting(ctx, coll, logger)
	if err != nil {
		// A collection that does not exist yet has no indexes to reconcile.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		want := specOf(m)
		start := time.Now()
		log := logger.With(
			zap.String("collection", coll.Name()),
			zap.String("name", want.name),
			zap.String("keys", want.sig),
			zap.Bool("unique", want.unique))

		if ex, ok := existing[want.sig]; ok {
			if want.matches(ex) && (want.name == "" || ex.Name == want.name) {
				log.Debug("reusing existing index")
				continue
			}
			log.Info("replacing index", zap.String("existing", ex.Name))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s failed: %v", want.name, ex.Name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if want.unique && wafflemongo.IsDup(err) {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index on (%s), duplicates present", want.name, want.sig))
			} else {
				errs = append(errs, fmt.Sprintf("%s: %v", want.name, err))
			}
			log.Warn("index ensure failed", zap.Error(err))
			continue
		}
		log.Info("index ensured", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
