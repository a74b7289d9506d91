// Package stepval validates one wizard step at a time.
//
// Validation never checks team-name or email uniqueness; that happens at
// submission. The one side effect is in the participant-details step:
// colleges named by students that are not in the directory are added to it,
// best-effort.
package stepval

import (
	"context"

	"github.com/dalemusser/hackreg/internal/app/system/htmlsanitize"
	"github.com/dalemusser/hackreg/internal/app/system/inputval"
	"github.com/dalemusser/hackreg/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.uber.org/zap"
)

// Result is the response to one step validation.
type Result struct {
	Valid   bool              `json:"valid"`
	Errors  map[string]string `json:"errors"`
	Message string            `json:"message"`
}

// Colleges is the directory surface used for custom-college creation.
type Colleges interface {
	ExistsByNameCI(ctx context.Context, nameCI string) (bool, error)
	Create(ctx context.Context, name string) (models.College, error)
}

type Service struct {
	colleges Colleges
	log      *zap.Logger
}

func New(colleges Colleges, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{colleges: colleges, log: log}
}

// ValidateBody decodes body and validates it. Only a body that is not a
// JSON object returns an error.
func (s *Service) ValidateBody(ctx context.Context, body []byte) (Result, error) {
	req, err := Decode(body)
	if err != nil {
		return Result{}, err
	}
	return s.Validate(ctx, req), nil
}

// Validate runs the checks for req's step.
func (s *Service) Validate(ctx context.Context, req Request) Result {
	errs := map[string]string{}

	switch r := req.(type) {
	case TeamInfo:
		if inputval.Blank(r.TeamName) {
			errs["teamName"] = "Team name is required"
		}
		if n, ok := r.TeamSize.Int(); !ok || n < 1 || n > 4 {
			errs["teamSize"] = "Team size must be between 1 and 4"
		}

	case ParticipantDetails:
		switch {
		case r.Malformed:
			errs["participants"] = "Invalid participants data format"
		case len(r.Participants) == 0:
			errs["participants"] = "At least one participant is required"
		default:
			for i, p := range r.Participants {
				for _, fe := range inputval.CheckDetails(p) {
					errs[inputval.ParticipantKey(i, fe.Field)] = fe.Message
				}
			}
			s.addCustomColleges(ctx, r.Participants)
		}

	case ProfessionalProfiles:
		if r.Malformed {
			errs["participants"] = "Invalid participants data format"
			break
		}
		for i, p := range r.Participants {
			for _, fe := range inputval.CheckProfiles(p) {
				errs[inputval.ParticipantKey(i, fe.Field)] = fe.Message
			}
		}

	case IdeaVerification:
		if inputval.Blank(r.IdeaTitle) {
			errs["ideaTitle"] = "Idea title is required"
		}

	case UnknownStep:
		errs["step"] = "Invalid step"

	default:
		errs["step"] = "Invalid step"
	}

	res := Result{Valid: len(errs) == 0, Errors: errs, Message: "Validation successful"}
	if !res.Valid {
		res.Message = "Validation failed"
	}
	return res
}

// addCustomColleges creates a directory entry for every distinct college
// named by a student that is not already present. Each failure is logged
// and skipped.
func (s *Service) addCustomColleges(ctx context.Context, ps []models.ParticipantInput) {
	if s.colleges == nil {
		return
	}
	seen := map[string]bool{}
	for _, p := range ps {
		if p.StudentOrProfessional != models.KindStudent {
			continue
		}
		name := htmlsanitize.PlainText(p.CollegeOrCompanyName)
		ci := text.Fold(name)
		if name == "" || seen[ci] {
			continue
		}
		seen[ci] = true

		exists, err := s.colleges.ExistsByNameCI(ctx, ci)
		if err != nil {
			s.log.Warn("college lookup failed", zap.String("college", name), zap.Error(err))
			continue
		}
		if exists {
			continue
		}
		if _, err := s.colleges.Create(ctx, name); err != nil {
			s.log.Warn("custom college creation failed", zap.String("college", name), zap.Error(err))
			continue
		}
		s.log.Info("created custom college", zap.String("college", name))
	}
}
