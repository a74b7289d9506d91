// Package wizard is the registration wizard as a value plus pure
// transitions. Nothing here does I/O; callers persist State wherever they
// like (the HTTP driver keeps it in a session cookie).
package wizard

import (
	"errors"
	"strconv"
	"strings"

	"github.com/dalemusser/hackreg/internal/app/system/inputval"
	"github.com/dalemusser/hackreg/internal/domain/models"
)

// Steps. StepCompleted is the terminal confirmation screen.
const (
	StepTeamInfo = iota
	StepParticipantDetails
	StepProfessionalProfiles
	StepIdeaVerification
	StepCompleted
)

// Team-level field names.
const (
	FieldTeamName     = "teamName"
	FieldTeamSize     = "teamSize"
	FieldIdeaTitle    = "ideaTitle"
	FieldIdeaDocument = "ideaDocument"
)

const (
	MinTeamSize = 1
	MaxTeamSize = 4
)

var (
	ErrInvalidTeamSize = errors.New("team size must be between 1 and 4")
	ErrUnknownField    = errors.New("unknown field")
	ErrNotFinalStep    = errors.New("registration can only be submitted from the idea step")
	ErrBusy            = errors.New("a step validation is already in flight")
)

// State is one browser session's registration attempt.
type State struct {
	Step         int                       `json:"step"`
	TeamName     string                    `json:"teamName"`
	TeamSize     int                       `json:"teamSize"`
	Participants []models.ParticipantInput `json:"participants"`
	IdeaTitle    string                    `json:"ideaTitle"`
	DocumentName string                    `json:"ideaDocument,omitempty"`

	// FieldErrors flags fields that failed a client or server check.
	FieldErrors map[string]bool `json:"fieldErrors,omitempty"`
	// ServerErrors holds the messages from the last server round-trip.
	ServerErrors map[string]string `json:"serverErrors,omitempty"`
	// Banner is a request-level failure (rate limit, upstream error).
	Banner string `json:"banner,omitempty"`

	Seq     uint64  `json:"seq"`
	Pending *Ticket `json:"pending,omitempty"`

	TeamID string `json:"teamId,omitempty"`
}

// Ticket identifies one in-flight step validation. An outcome is applied
// only if its ticket still matches the state.
type Ticket struct {
	Step int    `json:"step"`
	Seq  uint64 `json:"seq"`
}

// Outcome is the server's answer to a step validation or submission.
// Err is set when the round-trip itself failed.
type Outcome struct {
	Valid  bool
	Errors map[string]string
	Err    error
}

// New returns the initial state: step 0 with one blank participant.
func New() State {
	return State{
		Step:         StepTeamInfo,
		TeamSize:     MinTeamSize,
		Participants: []models.ParticipantInput{blankParticipant()},
	}
}

// ResetAll discards everything and returns to step 0.
func ResetAll(State) State { return New() }

func blankParticipant() models.ParticipantInput {
	return models.ParticipantInput{StdCode: models.DefaultStdCode, StudentOrProfessional: models.KindStudent}
}

// ApplyFieldChange sets one field. Team fields use their own names;
// participant fields use participant_<index>_<field>. The field's error
// flag and server message are cleared.
func ApplyFieldChange(s State, field, value string) (State, error) {
	s = s.clone()
	switch field {
	case FieldTeamName:
		s.TeamName = value
	case FieldIdeaTitle:
		s.IdeaTitle = value
	case FieldIdeaDocument:
		s.DocumentName = value
	case FieldTeamSize:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return s, ErrInvalidTeamSize
		}
		return SetTeamSize(s, n)
	default:
		i, name, ok := parseParticipantKey(field)
		if !ok || i >= len(s.Participants) {
			return s, ErrUnknownField
		}
		if !setParticipantField(&s.Participants[i], name, value) {
			return s, ErrUnknownField
		}
	}
	delete(s.FieldErrors, field)
	delete(s.ServerErrors, field)
	return s, nil
}

// SetTeamSize resizes the participant list to n, keeping existing
// participants by index and appending blank ones.
func SetTeamSize(s State, n int) (State, error) {
	if n < MinTeamSize || n > MaxTeamSize {
		return s, ErrInvalidTeamSize
	}
	s = s.clone()
	s.TeamSize = n
	switch {
	case len(s.Participants) > n:
		s.Participants = s.Participants[:n]
	case len(s.Participants) < n:
		for len(s.Participants) < n {
			s.Participants = append(s.Participants, blankParticipant())
		}
	}
	delete(s.FieldErrors, FieldTeamSize)
	delete(s.ServerErrors, FieldTeamSize)
	return s, nil
}

// ClientErrors runs the checks the browser runs before asking the server.
func ClientErrors(s State) map[string]string {
	errs := map[string]string{}
	switch s.Step {
	case StepTeamInfo:
		if inputval.Blank(s.TeamName) {
			errs[FieldTeamName] = "Team name is required"
		}
		if s.TeamSize < MinTeamSize || s.TeamSize > MaxTeamSize {
			errs[FieldTeamSize] = "Team size must be between 1 and 4"
		}
	case StepParticipantDetails:
		for i, p := range s.Participants {
			for _, fe := range inputval.CheckDetails(p) {
				errs[inputval.ParticipantKey(i, fe.Field)] = fe.Message
			}
		}
	case StepProfessionalProfiles:
		for i, p := range s.Participants {
			for _, fe := range inputval.CheckProfiles(p) {
				errs[inputval.ParticipantKey(i, fe.Field)] = fe.Message
			}
		}
	case StepIdeaVerification:
		if inputval.Blank(s.IdeaTitle) {
			errs[FieldIdeaTitle] = "Idea title is required"
		}
		if inputval.Blank(s.DocumentName) {
			errs[FieldIdeaDocument] = "Idea document is required"
		}
	}
	return errs
}

// BeginAdvance starts a "next" action. If client checks fail, their
// flags are recorded and ok is false. Otherwise the returned ticket must
// accompany the server outcome passed to AdvanceStep.
func BeginAdvance(s State) (State, Ticket, bool) {
	s = s.clone()
	if s.Step >= StepCompleted {
		return s, Ticket{}, false
	}
	s.Banner = ""
	if errs := ClientErrors(s); len(errs) > 0 {
		s.ServerErrors = nil
		s.FieldErrors = flags(errs)
		return s, Ticket{}, false
	}
	s.Seq++
	t := Ticket{Step: s.Step, Seq: s.Seq}
	s.Pending = &t
	return s, t, true
}

// AdvanceStep applies the server outcome for ticket t. Outcomes whose
// ticket no longer matches (the user navigated, reset or started another
// advance) are dropped. A valid outcome moves forward one step, but never
// past the idea step; only Complete reaches StepCompleted.
func AdvanceStep(s State, t Ticket, o Outcome) State {
	if !s.matches(t) {
		return s
	}
	s = s.clone()
	s.Pending = nil
	switch {
	case o.Err != nil:
		s.Banner = o.Err.Error()
	case !o.Valid:
		s.ServerErrors = copyMessages(o.Errors)
		s.FieldErrors = flags(o.Errors)
	default:
		s.ServerErrors = nil
		s.FieldErrors = nil
		if s.Step < StepIdeaVerification {
			s.Step++
		}
	}
	return s
}

// RegressStep goes back one step without validation and invalidates any
// in-flight advance.
func RegressStep(s State) State {
	s = s.clone()
	if s.Step > StepTeamInfo && s.Step < StepCompleted {
		s.Step--
	}
	s.Seq++
	s.Pending = nil
	s.Banner = ""
	s.ServerErrors = nil
	s.FieldErrors = nil
	return s
}

// Complete records a successful submission. It is only valid from the
// idea step with a matching ticket.
func Complete(s State, t Ticket, teamID string) (State, error) {
	if s.Step != StepIdeaVerification {
		return s, ErrNotFinalStep
	}
	if !s.matches(t) {
		return s, ErrBusy
	}
	s = s.clone()
	s.Pending = nil
	s.Step = StepCompleted
	s.TeamID = teamID
	s.Banner = ""
	s.ServerErrors = nil
	s.FieldErrors = nil
	return s, nil
}

func (s State) matches(t Ticket) bool {
	return s.Pending != nil && *s.Pending == t && s.Step == t.Step
}

func (s State) clone() State {
	c := s
	c.Participants = append([]models.ParticipantInput(nil), s.Participants...)
	if s.FieldErrors != nil {
		c.FieldErrors = make(map[string]bool, len(s.FieldErrors))
		for k, v := range s.FieldErrors {
			c.FieldErrors[k] = v
		}
	}
	c.ServerErrors = copyMessages(s.ServerErrors)
	if s.Pending != nil {
		p := *s.Pending
		c.Pending = &p
	}
	return c
}

func copyMessages(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func flags(errs map[string]string) map[string]bool {
	if len(errs) == 0 {
		return nil
	}
	f := make(map[string]bool, len(errs))
	for k := range errs {
		f[k] = true
	}
	return f
}

// parseParticipantKey splits participant_<i>_<field>.
func parseParticipantKey(key string) (int, string, bool) {
	rest, ok := strings.CutPrefix(key, "participant_")
	if !ok {
		return 0, "", false
	}
	idx, field, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, "", false
	}
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return 0, "", false
	}
	return i, field, true
}

func setParticipantField(p *models.ParticipantInput, field, value string) bool {
	switch field {
	case inputval.FieldName:
		p.Name = value
	case inputval.FieldEmail:
		p.Email = value
	case inputval.FieldAge:
		p.Age = models.FormValue(value)
	case inputval.FieldPhone:
		p.Phone = value
	case "stdCode":
		p.StdCode = value
	case inputval.FieldType:
		p.StudentOrProfessional = value
	case inputval.FieldInstitution:
		p.CollegeOrCompanyName = value
	case inputval.FieldGithub:
		p.GithubLink = value
	case inputval.FieldLinkedin:
		p.LinkedinLink = value
	case inputval.FieldDevfolio:
		p.DevfolioLink = value
	default:
		return false
	}
	return true
}
