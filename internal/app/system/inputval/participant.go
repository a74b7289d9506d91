package inputval

import (
	"fmt"
	"strings"

	"github.com/dalemusser/hackreg/internal/domain/models"
)

// Participant field names, as used in error keys and by the wizard.
const (
	FieldName        = "name"
	FieldEmail       = "email"
	FieldAge         = "age"
	FieldPhone       = "phone"
	FieldType        = "type"
	FieldInstitution = "institution"
	FieldGithub      = "github"
	FieldLinkedin    = "linkedin"
	FieldDevfolio    = "devfolio"
)

// FieldError is one failed check on one participant field.
type FieldError struct {
	Field   string
	Message string
}

// ParticipantKey is the flat error key for a participant field:
// participant_<index>_<field>.
func ParticipantKey(index int, field string) string {
	return fmt.Sprintf("participant_%d_%s", index, field)
}

// CheckDetails validates the personal and institution fields of p, in
// form order. It returns nothing for a valid participant.
func CheckDetails(p models.ParticipantInput) []FieldError {
	var errs []FieldError
	add := func(field, msg string) { errs = append(errs, FieldError{field, msg}) }

	if Blank(p.Name) {
		add(FieldName, "Name is required")
	}

	switch email := strings.TrimSpace(p.Email); {
	case email == "":
		add(FieldEmail, "Email is required")
	case !IsValidEmail(email):
		add(FieldEmail, "Invalid email format")
	}

	switch age := strings.TrimSpace(string(p.Age)); {
	case age == "":
		add(FieldAge, "Age is required")
	case !IsValidAge(age):
		add(FieldAge, fmt.Sprintf("Age must be between %d and %d", MinAge, MaxAge-1))
	}

	switch phone := strings.TrimSpace(p.Phone); {
	case phone == "":
		add(FieldPhone, "Phone number is required")
	case !IsValidPhone(phone):
		add(FieldPhone, "Phone number must be 10 digits starting with 6-9")
	case p.StdCode != "" && !IsValidCountryCode(p.StdCode):
		add(FieldPhone, "Invalid country code")
	}

	if !IsValidKind(p.StudentOrProfessional) {
		add(FieldType, "Please select student or professional")
	}

	if Blank(p.CollegeOrCompanyName) {
		if p.StudentOrProfessional == models.KindProfessional {
			add(FieldInstitution, "Company name is required")
		} else {
			add(FieldInstitution, "College/University is required")
		}
	}
	return errs
}

// CheckProfiles validates the optional profile handles of p. Empty handles
// are skipped.
func CheckProfiles(p models.ParticipantInput) []FieldError {
	var errs []FieldError
	check := func(field, handle, label string) {
		if h := strings.TrimSpace(handle); h != "" && !IsValidHandle(h) {
			errs = append(errs, FieldError{field, "Invalid " + label + " username format"})
		}
	}
	check(FieldGithub, p.GithubLink, "GitHub")
	check(FieldLinkedin, p.LinkedinLink, "LinkedIn")
	check(FieldDevfolio, p.DevfolioLink, "Devfolio")
	return errs
}
