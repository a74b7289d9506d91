package stepval

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/dalemusser/hackreg/internal/domain/models"
)

// Step identifies one page of the registration wizard.
type Step int

const (
	StepTeamInfo Step = iota
	StepParticipantDetails
	StepProfessionalProfiles
	StepIdeaVerification
)

// Request is one step's validation input. The concrete type decides which
// checks run; see Service.Validate.
type Request interface {
	isRequest()
}

// TeamInfo is step 0.
type TeamInfo struct {
	TeamName string
	TeamSize models.FormValue
}

// ParticipantDetails is step 1. Malformed is set when the participants
// field could not be decoded.
type ParticipantDetails struct {
	Participants []models.ParticipantInput
	Malformed    bool
}

// ProfessionalProfiles is step 2.
type ProfessionalProfiles struct {
	Participants []models.ParticipantInput
	Malformed    bool
}

// IdeaVerification is step 3.
type IdeaVerification struct {
	IdeaTitle string
}

// UnknownStep is any step identifier outside 0..3, or a missing one.
type UnknownStep struct {
	Raw string
}

func (TeamInfo) isRequest()             {}
func (ParticipantDetails) isRequest()   {}
func (ProfessionalProfiles) isRequest() {}
func (IdeaVerification) isRequest()     {}
func (UnknownStep) isRequest()          {}

// ErrBadBody is returned by Decode when the body is not a JSON object.
var ErrBadBody = errors.New("request body must be a JSON object")

type envelope struct {
	Step         models.FormValue `json:"step"`
	TeamName     string           `json:"teamName"`
	TeamSize     models.FormValue `json:"teamSize"`
	Participants json.RawMessage  `json:"participants"`
	IdeaTitle    string           `json:"ideaTitle"`
}

// Decode picks the Request variant for body's "step".
func Decode(body []byte) (Request, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrBadBody
	}

	n, ok := env.Step.Int()
	if !ok {
		return UnknownStep{Raw: string(env.Step)}, nil
	}
	switch Step(n) {
	case StepTeamInfo:
		return TeamInfo{TeamName: env.TeamName, TeamSize: env.TeamSize}, nil
	case StepParticipantDetails:
		ps, err := DecodeParticipants(env.Participants)
		return ParticipantDetails{Participants: ps, Malformed: err != nil}, nil
	case StepProfessionalProfiles:
		ps, err := DecodeParticipants(env.Participants)
		return ProfessionalProfiles{Participants: ps, Malformed: err != nil}, nil
	case StepIdeaVerification:
		return IdeaVerification{IdeaTitle: env.IdeaTitle}, nil
	}
	return UnknownStep{Raw: string(env.Step)}, nil
}

// DecodeParticipants accepts the participants field either as a JSON
// array or as a string holding a JSON array (how multipart forms carry
// it). Absent, null and "" decode to an empty list.
func DecodeParticipants(raw []byte) ([]models.ParticipantInput, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		raw = bytes.TrimSpace([]byte(s))
		if len(raw) == 0 {
			return nil, nil
		}
	}
	var ps []models.ParticipantInput
	if err := json.Unmarshal(raw, &ps); err != nil {
		return nil, err
	}
	return ps, nil
}
