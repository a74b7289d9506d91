// Package wizardsession keeps a browser's wizard.State in a signed cookie.
package wizardsession

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/hackreg/internal/domain/wizard"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	SessionName = "hackreg-wizard"
	stateKey    = "state"
	maxAge      = 7 * 24 * 60 * 60
)

// ErrEmptyKey is returned by New when no signing key is configured.
var ErrEmptyKey = errors.New("session key is empty; provide 32+ random chars")

type Store struct {
	cs  *sessions.CookieStore
	log *zap.Logger
}

// New builds a cookie store signed with key. Secure cookies use
// SameSite=None so a separately hosted front end can call the API; plain
// HTTP development uses Lax.
func New(key string, secure bool, logger *zap.Logger) (*Store, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	if len(key) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(key)))
	}

	cs := sessions.NewCookieStore([]byte(key))
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		cs.Options.SameSite = http.SameSiteNoneMode
	}
	return &Store{cs: cs, log: logger}, nil
}

// DevKey returns a random key for development runs without a configured
// key. Sessions do not survive a restart with it.
func DevKey() string {
	return hex.EncodeToString(securecookie.GenerateRandomKey(32))
}

// Load returns the caller's state, or a fresh one when there is no valid
// session.
func (s *Store) Load(r *http.Request) wizard.State {
	sess, err := s.cs.Get(r, SessionName)
	if err != nil {
		s.log.Debug("wizard session unreadable; starting over", zap.Error(err))
		return wizard.New()
	}
	raw, ok := sess.Values[stateKey].(string)
	if !ok {
		return wizard.New()
	}
	var st wizard.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return wizard.New()
	}
	return st
}

// Save writes st to the session cookie.
func (s *Store) Save(w http.ResponseWriter, r *http.Request, st wizard.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	sess, _ := s.cs.Get(r, SessionName)
	sess.Values[stateKey] = string(b)
	return sess.Save(r, w)
}
