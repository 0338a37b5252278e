package metricsstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of collection totals exported on /metrics.
type Counts struct {
	Users   int64
	Groups  int64
	Crushes int64
	Letters int64
	Replied int64
}

// FetchCounts returns the collection totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	if n, err := db.Collection("users").EstimatedDocumentCount(ctx); err == nil {
		out.Users = n
	}
	if n, err := db.Collection("groups").EstimatedDocumentCount(ctx); err == nil {
		out.Groups = n
	}
	if n, err := db.Collection("crushes").EstimatedDocumentCount(ctx); err == nil {
		out.Crushes = n
	}
	if n, err := db.Collection("letters").EstimatedDocumentCount(ctx); err == nil {
		out.Letters = n
	}

	// replied letters need a filter, so this one is an exact count
	replied := bson.M{"reply_content": bson.M{"$exists": true, "$ne": ""}}
	if n, err := db.Collection("letters").CountDocuments(ctx, replied); err == nil {
		out.Replied = n
	}

	return out
}
