package session

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/samrat-shrestha/toptracks/internal/shared"
)

// Backend persists encoded session values by session id.
//
// Implemented by the SQLite and Redis session repositories.
type Backend interface {
	Get(ctx context.Context, id string) (string, error)
	Set(ctx context.Context, id, data string, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// ServerStore is a [sessions.Store] that keeps values in a [Backend] and only the signed session id in the cookie.
type ServerStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options
	backend Backend
}

// NewServerStore returns a [ServerStore]. keyPairs are passed to [securecookie.CodecsFromPairs].
func NewServerStore(backend Backend, keyPairs ...[]byte) *ServerStore {
	s := &ServerStore{
		Codecs: securecookie.CodecsFromPairs(keyPairs...),
		Options: &sessions.Options{
			Path:   "/",
			MaxAge: 86400 * 30,
		},
		backend: backend,
	}
	s.MaxAge(s.Options.MaxAge)
	return s
}

// Get returns a session for the given name after adding it to the registry.
func (s *ServerStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New returns a session for the given name without adding it to the registry.
//
// The returned session is always usable. The error reports why an existing cookie could not be restored.
func (s *ServerStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true

	c, errCookie := r.Cookie(name)
	if errCookie != nil {
		return session, nil
	}

	if err := securecookie.DecodeMulti(name, c.Value, &session.ID, s.Codecs...); err != nil {
		session.ID = ""
		return session, err
	}

	// an expired or pruned row gets a fresh id on the next Save
	if err := s.load(r.Context(), session); err != nil {
		session.ID = ""
		session.Values = map[any]any{}
		return session, err
	}

	session.IsNew = false
	return session, nil
}

// Save writes the session values to the backend and the id cookie to the response.
//
// A negative MaxAge deletes the session from the backend and expires the cookie.
func (s *ServerStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.Delete(r.Context(), session.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = shared.GenerateID()
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if err := s.backend.Set(r.Context(), session.ID, encoded, ttl); err != nil {
		return err
	}

	id, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session id: %w", err)
	}

	http.SetCookie(w, sessions.NewCookie(session.Name(), id, session.Options))
	return nil
}

// MaxAge sets the maximum age for the store and the underlying cookie implementation.
func (s *ServerStore) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
		}
	}
}

func (s *ServerStore) load(ctx context.Context, session *sessions.Session) error {
	data, err := s.backend.Get(ctx, session.ID)
	if err != nil {
		return err
	}
	return securecookie.DecodeMulti(session.Name(), data, &session.Values, s.Codecs...)
}

// NewStore builds the session store selected by conf.Backend. backend is required for the sqlite and redis
// backends and ignored for cookie sessions.
func NewStore(conf shared.SessionConfig, backend Backend) (sessions.Store, error) {
	if conf.Secret == "" {
		return nil, fmt.Errorf("%w: session secret is required", shared.ErrInvalidConfig)
	}

	keys := keyPairs(conf.Secret)
	opts := &sessions.Options{
		Path:     "/",
		MaxAge:   conf.MaxAge,
		HttpOnly: true,
		Secure:   conf.Secure,
		SameSite: http.SameSiteLaxMode,
	}

	switch conf.Backend {
	case "", shared.SessionBackendCookie:
		store := sessions.NewCookieStore(keys...)
		store.Options = opts
		store.MaxAge(conf.MaxAge)
		return store, nil
	case shared.SessionBackendSQLite, shared.SessionBackendRedis:
		if backend == nil {
			return nil, fmt.Errorf("%w: %s session backend not configured", shared.ErrInvalidConfig, conf.Backend)
		}
		store := NewServerStore(backend, keys...)
		store.Options = opts
		store.MaxAge(conf.MaxAge)
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown session backend %q", shared.ErrInvalidConfig, conf.Backend)
	}
}

// keyPairs derives the hash key and a 32 byte AES block key from the configured secret.
func keyPairs(secret string) [][]byte {
	block := sha256.Sum256([]byte("toptracks session encryption:" + secret))
	return [][]byte{[]byte(secret), block[:]}
}
