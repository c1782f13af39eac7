package metricsstore

import (
	"context"

	"github.com/dalemusser/registryhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Counts is the set of applicant totals exported as gauges.
type Counts struct {
	Pending  int64
	Rejected int64
	Approved int64
}

// FetchCounts returns the current applicant totals.
// Intentionally tolerant: on error it returns 0 for that counter.
func FetchCounts(ctx context.Context, db *mongo.Database) Counts {
	var out Counts

	pending := db.Collection("pending_applicants")
	if n, err := pending.CountDocuments(ctx, bson.M{"status": models.StatusPending}); err == nil {
		out.Pending = n
	}
	if n, err := pending.CountDocuments(ctx, bson.M{"status": models.StatusRejected}); err == nil {
		out.Rejected = n
	}

	if n, err := db.Collection("applicants").CountDocuments(ctx, bson.M{"status": models.StatusApproved}); err == nil {
		out.Approved = n
	}

	return out
}
