// internal/app/store/colleges/collegestore.go
package collegestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/hackreg/internal/app/system/uniqueness"
	"github.com/dalemusser/hackreg/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrEmptyName = errors.New("college name is required")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("colleges")}
}

// Create inserts a college. It does not check for an existing entry; the
// directory tolerates twins (see ExistsByNameCI for callers that care).
func (s *Store) Create(ctx context.Context, name string) (models.College, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.College{}, ErrEmptyName
	}
	now := time.Now().UTC()
	c := models.College{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		return models.College{}, err
	}
	return c, nil
}

// ExistsByNameCI checks if a college with the given folded name exists.
func (s *Store) ExistsByNameCI(ctx context.Context, nameCI string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"name_ci": nameCI}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Search returns colleges whose name contains search, case-insensitively,
// sorted by name. The search text is escaped before it becomes a regex.
// An empty search lists the whole directory. limit <= 0 means no limit.
func (s *Store) Search(ctx context.Context, search string, limit int64) ([]models.College, error) {
	filter := bson.M{}
	if q := strings.TrimSpace(search); q != "" {
		filter["name"] = primitive.Regex{Pattern: uniqueness.EscapePattern(q), Options: "i"}
	}
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.College
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ImportResult counts what Import did.
type ImportResult struct {
	Inserted int
	Skipped  int
}

// Import adds every name not already present (by folded name), skipping
// blanks and repeats within names.
func (s *Store) Import(ctx context.Context, names []string) (ImportResult, error) {
	var res ImportResult
	seen := map[string]bool{}
	for _, n := range names {
		n = strings.TrimSpace(n)
		ci := text.Fold(n)
		if n == "" || seen[ci] {
			res.Skipped++
			continue
		}
		seen[ci] = true

		exists, err := s.ExistsByNameCI(ctx, ci)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			continue
		}
		if _, err := s.Create(ctx, n); err != nil {
			return res, err
		}
		res.Inserted++
	}
	return res, nil
}
