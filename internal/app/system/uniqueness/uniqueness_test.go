package uniqueness_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/dalemusser/hackreg/internal/app/system/uniqueness"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeLookup struct {
	names  map[string]bool
	emails map[string]bool
	err    error
	gotCI  string
	gotIn  []string
}

func (f *fakeLookup) ExistsByTeamNameCI(_ context.Context, nameCI string) (bool, error) {
	f.gotCI = nameCI
	return f.names[nameCI], f.err
}

func (f *fakeLookup) RegisteredEmails(_ context.Context, emails []string) ([]string, error) {
	f.gotIn = emails
	if f.err != nil {
		return nil, f.err
	}
	var out []string
	// reverse order to prove the checker restores request order
	for i := len(emails) - 1; i >= 0; i-- {
		if f.emails[emails[i]] {
			out = append(out, emails[i])
		}
	}
	return out, nil
}

func TestTeamNameTaken_FoldsCase(t *testing.T) {
	l := &fakeLookup{names: map[string]bool{text.Fold("Alpha"): true}}
	c := uniqueness.New(l)

	taken, err := c.TeamNameTaken(context.Background(), "  aLPHA ")
	require.NoError(t, err)
	require.True(t, taken)
	require.Equal(t, text.Fold("aLPHA"), l.gotCI)
}

func TestTeamNameTaken_Blank(t *testing.T) {
	l := &fakeLookup{}
	taken, err := uniqueness.New(l).TeamNameTaken(context.Background(), "   ")
	require.NoError(t, err)
	require.False(t, taken)
	require.Empty(t, l.gotCI, "blank names must not hit the store")
}

func TestEmailConflicts_ReportsEveryOverlapInRequestOrder(t *testing.T) {
	l := &fakeLookup{emails: map[string]bool{"a@x.io": true, "c@x.io": true}}
	c := uniqueness.New(l)

	got, err := c.EmailConflicts(context.Background(), []string{"A@x.io", "b@x.io", "c@X.io", "a@x.io"})
	require.NoError(t, err)
	require.Equal(t, []string{"a@x.io", "c@x.io"}, got)
	require.Equal(t, []string{"a@x.io", "b@x.io", "c@x.io"}, l.gotIn)
}

func TestEmailConflicts_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := uniqueness.New(&fakeLookup{err: boom}).EmailConflicts(context.Background(), []string{"a@x.io"})
	require.ErrorIs(t, err, boom)
}

func TestEscapePattern_MatchesLiterally(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := rapid.String().Draw(rt, "s")
		re, err := regexp.Compile("^" + uniqueness.EscapePattern(s) + "$")
		if err != nil {
			rt.Fatalf("escaped pattern does not compile: %v", err)
		}
		if !re.MatchString(s) {
			rt.Fatalf("escaped pattern does not match its own input %q", s)
		}
	})
}

func TestEscapePattern_NeutralizesMetacharacters(t *testing.T) {
	re := regexp.MustCompile("(?i)^" + uniqueness.EscapePattern("(a+)+$") + "$")
	require.True(t, re.MatchString("(A+)+$"))
	require.False(t, re.MatchString("aaaa"))
}
