package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/hackreg/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// Participant returns a valid participant whose email and phone are
// derived from n, so distinct n never collide.
func Participant(n int) models.Participant {
	return models.Participant{
		Name:                  fmt.Sprintf("Participant %d", n),
		Email:                 fmt.Sprintf("p%d@example.com", n),
		Age:                   21,
		Phone:                 fmt.Sprintf("+91%010d", 9000000000+n),
		StudentOrProfessional: models.KindStudent,
		CollegeOrCompanyName:  "Test College",
	}
}

// ParticipantInput is the form-side counterpart of Participant(n).
func ParticipantInput(n int) models.ParticipantInput {
	return models.ParticipantInput{
		Name:                  fmt.Sprintf("Participant %d", n),
		Email:                 fmt.Sprintf("p%d@example.com", n),
		Age:                   "21",
		Phone:                 fmt.Sprintf("%010d", 9000000000+n),
		StdCode:               models.DefaultStdCode,
		StudentOrProfessional: models.KindStudent,
		CollegeOrCompanyName:  "Test College",
	}
}

// CreateRegistration inserts a registered team with the given participants.
func (f *Fixtures) CreateRegistration(ctx context.Context, teamName string, participants ...models.Participant) models.TeamRegistration {
	f.t.Helper()

	for i := range participants {
		participants[i].Email = strings.ToLower(participants[i].Email)
	}
	now := time.Now().UTC()
	reg := models.TeamRegistration{
		ID:              primitive.NewObjectID(),
		TeamName:        teamName,
		TeamNameCI:      text.Fold(teamName),
		TeamSize:        len(participants),
		IdeaTitle:       "Fixture Idea",
		IdeaDocumentURL: "https://blob.example/fixture.pdf",
		IdeaDocumentKey: "idea_documents/fixture.pdf",
		Participants:    participants,
		Status:          models.StatusRegistered,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := f.db.Collection("team_registrations").InsertOne(ctx, reg); err != nil {
		f.t.Fatalf("failed to create test registration: %v", err)
	}
	return reg
}

// CreateCollege inserts a college directory entry.
func (f *Fixtures) CreateCollege(ctx context.Context, name string) models.College {
	f.t.Helper()

	now := time.Now().UTC()
	c := models.College{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("colleges").InsertOne(ctx, c); err != nil {
		f.t.Fatalf("failed to create test college: %v", err)
	}
	return c
}

// CreateClick inserts a click event at the given time.
func (f *Fixtures) CreateClick(ctx context.Context, buttonType string, at time.Time) models.ClickEvent {
	f.t.Helper()

	ev := models.ClickEvent{
		ID:         primitive.NewObjectID(),
		ButtonType: buttonType,
		UserAgent:  "fixture-agent",
		CreatedAt:  at.UTC(),
	}
	if _, err := f.db.Collection("click_events").InsertOne(ctx, ev); err != nil {
		f.t.Fatalf("failed to create test click: %v", err)
	}
	return ev
}
