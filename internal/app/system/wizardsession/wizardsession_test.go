package wizardsession_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/hackreg/internal/app/system/wizardsession"
	"github.com/dalemusser/hackreg/internal/domain/wizard"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_RequiresKey(t *testing.T) {
	_, err := wizardsession.New("", false, zap.NewNop())
	require.ErrorIs(t, err, wizardsession.ErrEmptyKey)
}

func TestSaveAndLoad(t *testing.T) {
	store, err := wizardsession.New(wizardsession.DevKey(), false, zap.NewNop())
	require.NoError(t, err)

	st, err := wizard.ApplyFieldChange(wizard.New(), wizard.FieldTeamName, "ByteForce")
	require.NoError(t, err)
	st, err = wizard.SetTeamSize(st, 3)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, store.Save(rec, httptest.NewRequest("POST", "/wizard", nil), st))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, wizardsession.SessionName, cookies[0].Name)
	require.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest("GET", "/wizard", nil)
	req.AddCookie(cookies[0])
	got := store.Load(req)
	require.Equal(t, "ByteForce", got.TeamName)
	require.Len(t, got.Participants, 3)
}

func TestLoad_NoOrForeignCookie(t *testing.T) {
	store, err := wizardsession.New(wizardsession.DevKey(), false, zap.NewNop())
	require.NoError(t, err)
	other, err := wizardsession.New(wizardsession.DevKey(), false, zap.NewNop())
	require.NoError(t, err)

	require.Equal(t, wizard.New(), store.Load(httptest.NewRequest("GET", "/", nil)))

	st, _ := wizard.ApplyFieldChange(wizard.New(), wizard.FieldTeamName, "X")
	rec := httptest.NewRecorder()
	require.NoError(t, other.Save(rec, httptest.NewRequest("POST", "/", nil), st))
	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	require.Equal(t, wizard.New(), store.Load(req), "cookie signed with another key is ignored")
}
