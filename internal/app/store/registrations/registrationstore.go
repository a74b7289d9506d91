// internal/app/store/registrations/registrationstore.go
package registrationstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/hackreg/internal/app/system/indexes"
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

var (
	ErrDuplicateTeamName = errors.New("a team with this name is already registered")
	ErrDuplicateEmail    = errors.New("a participant email is already registered with another team")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("team_registrations")}
}

// Create inserts a registration. The folded team name and lower-cased
// emails are derived here so callers cannot get them wrong. Unique-index
// violations surface as ErrDuplicateTeamName or ErrDuplicateEmail.
func (s *Store) Create(ctx context.Context, reg models.TeamRegistration) (models.TeamRegistration, error) {
	now := time.Now().UTC()
	reg.ID = primitive.NewObjectID()
	reg.TeamNameCI = text.Fold(reg.TeamName)
	for i := range reg.Participants {
		reg.Participants[i].Email = strings.ToLower(strings.TrimSpace(reg.Participants[i].Email))
	}
	if reg.Status == "" {
		reg.Status = models.StatusRegistered
	}
	reg.CreatedAt = now
	reg.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, reg); err != nil {
		switch indexes.DuplicateKeyIndex(err, indexes.TeamNameUnique, indexes.ParticipantEmailUnique) {
		case indexes.TeamNameUnique:
			return models.TeamRegistration{}, ErrDuplicateTeamName
		case indexes.ParticipantEmailUnique:
			return models.TeamRegistration{}, ErrDuplicateEmail
		}
		return models.TeamRegistration{}, err
	}
	return reg, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.TeamRegistration, error) {
	var reg models.TeamRegistration
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&reg); err != nil {
		return models.TeamRegistration{}, err
	}
	return reg, nil
}

// ExistsByTeamNameCI checks for a registration with the given folded name.
func (s *Store) ExistsByTeamNameCI(ctx context.Context, nameCI string) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"team_name_ci": nameCI},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RegisteredEmails returns which of emails (already lower-cased) appear as a
// participant email in any registration. Order is unspecified.
func (s *Store) RegisteredEmails(ctx context.Context, emails []string) ([]string, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx,
		bson.M{"participants.email": bson.M{"$in": emails}},
		options.Find().SetProjection(bson.M{"participants.email": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	wanted := make(map[string]bool, len(emails))
	for _, e := range emails {
		wanted[e] = true
	}
	var found []string
	for cur.Next(ctx) {
		var doc struct {
			Participants []struct {
				Email string `bson:"email"`
			} `bson:"participants"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		for _, p := range doc.Participants {
			if wanted[p.Email] {
				found = append(found, p.Email)
				delete(wanted, p.Email)
			}
		}
	}
	return found, cur.Err()
}
