// internal/domain/models/registration.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registration statuses. Only StatusRegistered is ever written by the
// registration workflow; the others exist for moderation tooling.
const (
	StatusRegistered = "registered"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
)

// Participant kinds.
const (
	KindStudent      = "student"
	KindProfessional = "professional"
)

// TeamRegistration is the persisted root entity of a hackathon team.
// TeamNameCI is backed by a unique index; it is the storage-level guarantee
// that two teams cannot share a case-insensitive name.
type TeamRegistration struct {
	ID                primitive.ObjectID `bson:"_id"`
	TeamName          string             `bson:"team_name"`
	TeamNameCI        string             `bson:"team_name_ci"` // ← always stored
	TeamSize          int                `bson:"team_size"`
	Selected          bool               `bson:"selected"`
	IdeaTitle         string             `bson:"idea_title"`
	IdeaDocumentURL   string             `bson:"idea_document_url"`
	IdeaDocumentKey   string             `bson:"idea_document_key"`
	IdeaDocumentPages *int               `bson:"idea_document_pages,omitempty"`
	Participants      []Participant      `bson:"participants"`
	Status            string             `bson:"status"`
	CreatedAt         time.Time          `bson:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at"`
}

// Participant is embedded in TeamRegistration. Email is stored lower-cased
// and carries a multikey unique index across registrations. Profile fields
// hold full URLs, never bare handles.
type Participant struct {
	Name                  string `bson:"name"`
	Email                 string `bson:"email"`
	Age                   int    `bson:"age"`
	Phone                 string `bson:"phone"`
	StudentOrProfessional string `bson:"student_or_professional"`
	CollegeOrCompanyName  string `bson:"college_or_company_name"`
	GithubProfile         string `bson:"github_profile,omitempty"`
	LinkedinProfile       string `bson:"linkedin_profile,omitempty"`
	DevfolioProfile       string `bson:"devfolio_profile,omitempty"`
}
