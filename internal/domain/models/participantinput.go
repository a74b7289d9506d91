// internal/domain/models/participantinput.go
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// ParticipantInput is a participant as the registration form sends it:
// raw strings, bare profile handles, and the phone split from its country
// code. It is converted to Participant only at submission time.
type ParticipantInput struct {
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	Age                   FormValue `json:"age"`
	Phone                 string    `json:"phone"`
	StdCode               string    `json:"stdCode,omitempty"`
	StudentOrProfessional string    `json:"studentOrProfessional"`
	CollegeOrCompanyName  string    `json:"collegeOrCompanyName"`
	GithubLink            string    `json:"githubLink,omitempty"`
	LinkedinLink          string    `json:"linkedinLink,omitempty"`
	DevfolioLink          string    `json:"devfolioLink,omitempty"`
}

// DefaultStdCode is the country calling code assumed when none is given.
const DefaultStdCode = "+91"

// FullPhone returns country code + digits, the form compared for
// within-team duplicates and persisted.
func (p ParticipantInput) FullPhone() string {
	code := p.StdCode
	if code == "" {
		code = DefaultStdCode
	}
	return code + p.Phone
}

// FormValue is a form field that the browser may send either as a JSON
// string or as a bare number. It always holds the string form.
type FormValue string

// UnmarshalJSON accepts "42", 42 and null.
func (v *FormValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FormValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = FormValue(n.String())
	return nil
}

// Int parses the value as a base-10 integer.
func (v FormValue) Int() (int, bool) {
	n, err := strconv.Atoi(string(bytes.TrimSpace([]byte(v))))
	if err != nil {
		return 0, false
	}
	return n, true
}
