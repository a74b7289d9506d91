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

// Unique index names. Stores match on these to tell which constraint a
// duplicate-key error came from.
const (
	TeamNameUnique         = "uniq_team_registrations_team_name_ci"
	ParticipantEmailUnique = "uniq_team_registrations_participants_email"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent.
Errors are aggregated so every problem is visible and startup can fail fast.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureTeamRegistrations(ctx, db); err != nil {
		problems = append(problems, "team_registrations: "+err.Error())
	}
	if err := ensureColleges(ctx, db); err != nil {
		problems = append(problems, "colleges: "+err.Error())
	}
	if err := ensureClickEvents(ctx, db); err != nil {
		problems = append(problems, "click_events: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Core helper: reconcile a set of desired indexes for one collection         */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolOf(p *bool) bool { return p != nil && *p }

// IsDuplicateKey reports whether err is an E11000 duplicate key error.
// Works across Mongo-compatible vendors.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

// DuplicateKeyIndex returns the name of the unique index a duplicate-key
// error violated, or "" if it cannot be determined.
func DuplicateKeyIndex(err error, candidates ...string) string {
	if !IsDuplicateKey(err) {
		return ""
	}
	msg := err.Error()
	for _, name := range candidates {
		if strings.Contains(msg, name) {
			return name
		}
	}
	return ""
}

// Mongo/DocDB returns IndexOptionsConflict when an index with the same keys
// exists under a different name or with different options.
func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func listIndexes(ctx context.Context, coll *mongo.Collection) map[string]existingIndex {
	existing := map[string]existingIndex{} // sig -> index
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return existing
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		existing[keySig(idx.Key)] = idx
	}
	return existing
}

// recreate drops old and creates m in its place.
func recreate(ctx context.Context, coll *mongo.Collection, old string, m mongo.IndexModel) error {
	if _, err := coll.Indexes().DropOne(ctx, old); err != nil {
		return fmt.Errorf("drop %s: %w", old, err)
	}
	if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
		if IsDuplicateKey(err) {
			return errors.New("cannot create unique index (duplicates present)")
		}
		return err
	}
	return nil
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		var unique *bool
		if m.Options != nil {
			if m.Options.Name != nil {
				name = *m.Options.Name
			}
			unique = m.Options.Unique
		}
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		fields := []zap.Field{
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", boolOf(unique)),
		}

		ex, found := listIndexes(ctx, coll)[sig]
		switch {
		case found && boolOf(unique) == boolOf(ex.Unique) && (name == "" || ex.Name == name):
			zap.L().Info("reusing existing index", fields...)
			continue

		case found:
			// Same keys, but the name or uniqueness differs: align it.
			if err := recreate(ctx, coll, ex.Name, m); err != nil {
				zap.L().Warn("index realign failed", append(fields, zap.Error(err))...)
				errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
				continue
			}
			zap.L().Info("index realigned", append(fields,
				zap.String("from", ex.Name),
				zap.String("took", time.Since(start).String()))...)
			continue
		}

		_, err := coll.Indexes().CreateOne(ctx, m)
		if err != nil && isOptionsConflictErr(err) {
			// Lost a race with another creator, or a differently named twin
			// appeared; look again and realign.
			if ex, ok := listIndexes(ctx, coll)[sig]; ok {
				if boolOf(unique) == boolOf(ex.Unique) {
					err = nil
				} else {
					err = recreate(ctx, coll, ex.Name, m)
				}
			}
		}
		if err != nil {
			zap.L().Warn("index ensure failed", append(fields,
				zap.String("took", time.Since(start).String()),
				zap.Error(err))...)
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			continue
		}
		zap.L().Info("index ensured", append(fields,
			zap.String("took", time.Since(start).String()))...)
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

/* -------------------------------------------------------------------------- */
/* Collection-specific index sets                                              */
/* -------------------------------------------------------------------------- */

func ensureTeamRegistrations(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("team_registrations")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Team names are unique once folded. This is what actually stops two
		// concurrent submissions of the same name; the pre-check only gives a
		// friendlier error.
		{
			Keys:    bson.D{{Key: "team_name_ci", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(TeamNameUnique),
		},
		// Multikey: no email may appear in two registrations. Does not
		// constrain duplicates inside one document; those are checked in code.
		{
			Keys:    bson.D{{Key: "participants.email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(ParticipantEmailUnique),
		},
		// Moderation lists: newest first within a status.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_team_registrations_status_created"),
		},
	})
}

func ensureColleges(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("colleges")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Not unique: concurrent custom-college creation may insert twins.
		{
			Keys:    bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_colleges_nameci__id"),
		},
	})
}

func ensureClickEvents(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("click_events")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_click_events_created"),
		},
		{
			Keys:    bson.D{{Key: "button_type", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_click_events_button_created"),
		},
	})
}
