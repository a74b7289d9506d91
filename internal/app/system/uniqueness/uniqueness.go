// Package uniqueness answers "is this already registered?" for team names
// and participant emails.
//
// Team names compare by their folded form (case and diacritics removed),
// exactly as stored in team_name_ci. Emails compare lower-cased. Neither
// lookup builds a pattern from user input; EscapePattern exists for the
// places that must (directory search).
package uniqueness

import (
	"context"
	"regexp"
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Lookup is the persistence side of the checker.
type Lookup interface {
	ExistsByTeamNameCI(ctx context.Context, nameCI string) (bool, error)
	RegisteredEmails(ctx context.Context, emails []string) ([]string, error)
}

// Checker runs uniqueness queries against persisted registrations.
type Checker struct {
	lookup Lookup
}

func New(l Lookup) *Checker {
	return &Checker{lookup: l}
}

// TeamNameTaken reports whether a registration already uses name, ignoring
// case. A blank name is never taken.
func (c *Checker) TeamNameTaken(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, nil
	}
	return c.lookup.ExistsByTeamNameCI(ctx, text.Fold(name))
}

// EmailConflicts returns every email from emails that already belongs to a
// persisted registration, lower-cased, de-duplicated, in the order first
// seen in emails.
func (c *Checker) EmailConflicts(ctx context.Context, emails []string) ([]string, error) {
	normalized := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		e = NormalizeEmail(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		normalized = append(normalized, e)
	}
	if len(normalized) == 0 {
		return nil, nil
	}

	found, err := c.lookup.RegisteredEmails(ctx, normalized)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(found))
	for _, e := range found {
		taken[e] = true
	}

	var out []string
	for _, e := range normalized {
		if taken[e] {
			out = append(out, e)
		}
	}
	return out, nil
}

// NormalizeEmail is the comparison form of an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// EscapePattern escapes every regular-expression metacharacter in s so the
// result matches s literally and cannot change the shape or cost of the
// surrounding expression.
func EscapePattern(s string) string {
	return regexp.QuoteMeta(s)
}
