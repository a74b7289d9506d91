// Package inputval holds the pure field validators shared by step
// validation, the submission orchestrator and the wizard state machine.
//
// All functions are deterministic and do no I/O.
package inputval

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	emailRe       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe       = regexp.MustCompile(`^[6-9]\d{9}$`)
	handleRe      = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	countryCodeRe = regexp.MustCompile(`^\+\d{1,4}$`)
)

// Accepted age bounds. MaxAge is exclusive.
const (
	MinAge = 1
	MaxAge = 120
)

// IsValidEmail reports whether s looks like local@domain.tld.
func IsValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// IsValidPhone reports whether s is a 10-digit mobile number whose first
// digit is 6-9. The country code is validated separately.
func IsValidPhone(s string) bool {
	return phoneRe.MatchString(s)
}

// IsValidAge reports whether s parses as an integer in [MinAge, MaxAge).
func IsValidAge(s string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return n >= MinAge && n < MaxAge
}

// IsValidHandle reports whether s is a bare profile username
// (GitHub, LinkedIn or Devfolio), not a URL.
func IsValidHandle(s string) bool {
	return handleRe.MatchString(s)
}

// IsValidCountryCode reports whether s is a calling code such as "+91".
func IsValidCountryCode(s string) bool {
	return countryCodeRe.MatchString(s)
}

// IsValidKind reports whether s is "student" or "professional".
func IsValidKind(s string) bool {
	return s == "student" || s == "professional"
}

// Blank reports whether s is empty after trimming whitespace.
func Blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Profile kinds accepted by ProfileURL.
const (
	ProfileGithub   = "github"
	ProfileLinkedin = "linkedin"
	ProfileDevfolio = "devfolio"
)

// ProfileURL expands a bare handle into the full profile URL. An empty
// handle yields an empty URL. Expansion happens only when a registration
// is persisted.
func ProfileURL(kind, handle string) string {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return ""
	}
	switch kind {
	case ProfileGithub:
		return "https://github.com/" + handle
	case ProfileLinkedin:
		return "https://linkedin.com/in/" + handle
	case ProfileDevfolio:
		return "https://devfolio.co/@" + handle
	}
	return ""
}
