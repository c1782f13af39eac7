// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection and index names. Applicant unique index names embed the field
// they protect; the applicant store reads them back out of duplicate-key
// errors to report which field collided.
const (
	CollUsers    = "users"
	CollPending  = "pending_applicants"
	CollRegistry = "applicants"
	CollAudit    = "audit_events"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
We aggregate errors so any problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, CollUsers+": "+err.Error())
	}
	if err := ensurePending(ctx, db); err != nil {
		problems = append(problems, CollPending+": "+err.Error())
	}
	if err := ensureRegistry(ctx, db); err != nil {
		problems = append(problems, CollRegistry+": "+err.Error())
	}
	if err := ensureAudit(ctx, db); err != nil {
		problems = append(problems, CollAudit+": "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// indexSpec is the part of an index definition the reconciler compares.
// Two specs with the same keys but different options are different indexes
// as far as startup is concerned: the old one is dropped and rebuilt.
type indexSpec struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique bool   `bson:"unique,omitempty"`
	Sparse bool   `bson:"sparse,omitempty"`
	// Servers report expireAfterSeconds as int32, int64 or double.
	TTL *float64 `bson:"expireAfterSeconds,omitempty"`
}

func specOf(m mongo.IndexModel) indexSpec {
	sp := indexSpec{Key: m.Keys.(bson.D)}
	if o := m.Options; o != nil {
		if o.Name != nil {
			sp.Name = *o.Name
		}
		sp.Unique = o.Unique != nil && *o.Unique
		sp.Sparse = o.Sparse != nil && *o.Sparse
		if o.ExpireAfterSeconds != nil {
			ttl := float64(*o.ExpireAfterSeconds)
			sp.TTL = &ttl
		}
	}
	return sp
}

func (sp indexSpec) keys() string {
	parts := make([]string, 0, len(sp.Key))
	for _, kv := range sp.Key {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

// drift lists the options on which have differs from sp. An empty result
// means the existing index can be kept as is.
func (sp indexSpec) drift(have indexSpec) []string {
	var d []string
	if sp.Name != "" && have.Name != sp.Name {
		d = append(d, "name")
	}
	if have.Unique != sp.Unique {
		d = append(d, "unique")
	}
	if have.Sparse != sp.Sparse {
		d = append(d, "sparse")
	}
	switch {
	case (sp.TTL == nil) != (have.TTL == nil):
		d = append(d, "ttl")
	case sp.TTL != nil && *sp.TTL != *have.TTL:
		d = append(d, "ttl")
	}
	return d
}

func listIndexes(ctx context.Context, coll *mongo.Collection) ([]indexSpec, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	var out []indexSpec
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Best-effort duplicate-detector (works cross-vendors)
func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// ensureIndexSet makes coll carry exactly the desired definitions. An
// existing index is kept only when its keys, name, uniqueness, sparseness
// and TTL all match; otherwise it is dropped and created again. An index
// occupying a desired name with other keys is dropped first.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	log := zap.L().With(zap.String("collection", coll.Name()))

	have, err := listIndexes(ctx, coll)
	if err != nil && !isNamespaceNotFound(err) {
		return fmt.Errorf("list indexes: %w", err)
	}
	byKeys := make(map[string]indexSpec, len(have))
	byName := make(map[string]indexSpec, len(have))
	for _, ix := range have {
		byKeys[ix.keys()] = ix
		byName[ix.Name] = ix
	}

	var errs []string
	for _, m := range models {
		want := specOf(m)
		start := time.Now()
		fields := []zap.Field{zap.String("name", want.Name), zap.String("keys", want.keys())}

		var stale []string
		if ex, ok := byKeys[want.keys()]; ok {
			d := want.drift(ex)
			if len(d) == 0 {
				log.Debug("index up to date", fields...)
				continue
			}
			log.Info("index definition changed", append(fields, zap.Strings("drift", d))...)
			stale = append(stale, ex.Name)
		}
		if ex, ok := byName[want.Name]; ok && want.Name != "" && ex.keys() != want.keys() {
			log.Info("index name taken by other keys", append(fields, zap.String("other_keys", ex.keys()))...)
			stale = append(stale, ex.Name)
		}

		dropped := true
		for _, name := range stale {
			if _, err := coll.Indexes().DropOne(ctx, name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop %s: %v", coll.Name(), want.Name, name, err))
				dropped = false
				break
			}
		}
		if !dropped {
			continue
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			log.Warn("index ensure failed", append(fields, zap.Error(err))...)
			if want.Unique && isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)%s",
					coll.Name(), want.Name, duplicateFinder(coll.Name(), want.Key)))
			} else {
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), want.Name, err))
			}
			continue
		}
		log.Info("index ensured", append(fields,
			zap.Bool("unique", want.Unique),
			zap.Bool("rebuilt", len(stale) > 0),
			zap.Duration("took", time.Since(start)))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// isNamespaceNotFound reports a listIndexes call on a collection that does
// not exist yet; CreateOne will create it.
func isNamespaceNotFound(err error) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && (ce.Code == 26 || ce.Name == "NamespaceNotFound")
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

// duplicateFinder returns a hint with an aggregation that lists the
// duplicate values blocking a unique index.
func duplicateFinder(coll string, keys bson.D) string {
	if len(keys) != 1 {
		return ""
	}
	field := keys[0].Key
	return fmt.Sprintf(" (duplicates exist on %s.%s; find them with "+
		`db.%s.aggregate([{ $group: { _id: "$%s", n: { $sum: 1 } } }, { $match: { n: { $gt: 1 } } }])`+")",
		coll, field, coll, field)
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(CollUsers)
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Login names are unique case-insensitively.
		{
			Keys:    bson.D{{Key: "username_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_username_ci"),
		},
		{
			Keys:    bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_users_role_status"),
		},
	})
}

// applicantIndexes is shared by the pending queue and the registry. The
// national ID and email are unique within each collection; the intake
// duplicate guard checks across both.
func applicantIndexes(coll string) []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "national_id_digits", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_" + coll + "_national_id_digits"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_" + coll + "_email"),
		},
		// Exact-match lookup before falling back to digits.
		{
			Keys:    bson.D{{Key: "national_id", Value: 1}},
			Options: options.Index().SetName("idx_" + coll + "_national_id"),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_" + coll + "_status_created_id"),
		},
	}
}

func ensurePending(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(CollPending)
	idx := applicantIndexes(CollPending)
	idx = append(idx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "registration_number", Value: 1}},
			Options: options.Index().SetSparse(true).SetName("idx_pending_registration_number"),
		},
		// TTL: documents are removed once expires_at passes.
		mongo.IndexModel{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("ttl_pending_expires_at"),
		},
	)
	return ensureIndexSet(ctx, c, idx)
}

func ensureRegistry(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(CollRegistry)
	idx := applicantIndexes(CollRegistry)
	idx = append(idx,
		// Registration numbers address registry records, so they must be
		// unique when present.
		mongo.IndexModel{
			Keys:    bson.D{{Key: "registration_number", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true).SetName("uniq_applicants_registration_number"),
		},
		// Export order.
		mongo.IndexModel{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "name", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_applicants_status_name_id"),
		},
	)
	return ensureIndexSet(ctx, c, idx)
}

func ensureAudit(ctx context.Context, db *mongo.Database) error {
	c := db.Collection(CollAudit)
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "actor_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_actor_timestamp"),
		},
		{
			Keys:    bson.D{{Key: "applicant_id", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("idx_audit_applicant_timestamp"),
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "event_type", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("idx_audit_category_type_timestamp"),
		},
	})
}
