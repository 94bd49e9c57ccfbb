package session

import (
	"encoding/gob"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/sessions"
	"github.com/samrat-shrestha/toptracks/internal/models"
)

const (
	tokenKey = "token_info"
	stateKey = "oauth_state"
)

func init() {
	gob.Register(models.Token{})
}

// Session is the per-request key/value view of the user's session.
type Session interface {
	Token(r *http.Request) (*models.Token, bool)
	SetToken(w http.ResponseWriter, r *http.Request, token *models.Token) error
	State(r *http.Request) string
	SetState(w http.ResponseWriter, r *http.Request, state string) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

// Manager implements [Session] on a gorilla [sessions.Store].
//
// Sessions are looked up through the request's [sessions.Registry], so every call within one request sees the
// same values.
type Manager struct {
	store  sessions.Store
	name   string
	logger *log.Logger
}

// NewManager creates a [Manager] for the cookie called name.
func NewManager(store sessions.Store, name string, logger *log.Logger) *Manager {
	return &Manager{store: store, name: name, logger: logger}
}

// Token returns the stored token, if any.
func (m *Manager) Token(r *http.Request) (*models.Token, bool) {
	v, ok := m.load(r).Values[tokenKey].(models.Token)
	if !ok {
		return nil, false
	}
	return &v, true
}

// SetToken replaces the stored token and saves the session.
func (m *Manager) SetToken(w http.ResponseWriter, r *http.Request, token *models.Token) error {
	s := m.load(r)
	if token == nil {
		delete(s.Values, tokenKey)
	} else {
		s.Values[tokenKey] = *token
	}
	return s.Save(r, w)
}

// State returns the pending OAuth state, or "" when none was issued.
func (m *Manager) State(r *http.Request) string {
	state, _ := m.load(r).Values[stateKey].(string)
	return state
}

// SetState stores the OAuth state issued with the authorize redirect.
func (m *Manager) SetState(w http.ResponseWriter, r *http.Request, state string) error {
	s := m.load(r)
	s.Values[stateKey] = state
	return s.Save(r, w)
}

// Clear removes every value from the session and saves it.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	s := m.load(r)
	for k := range s.Values {
		delete(s.Values, k)
	}
	return s.Save(r, w)
}

// load returns the request's session. Unreadable or expired sessions come back empty.
func (m *Manager) load(r *http.Request) *sessions.Session {
	s, err := sessions.GetRegistry(r).Get(m.store, m.name)
	if err != nil {
		m.logger.Debug("starting new session", "reason", err)
	}
	if s == nil {
		s = sessions.NewSession(m.store, m.name)
		s.Options = &sessions.Options{Path: "/"}
		s.IsNew = true
	}
	return s
}
