package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/samrat-shrestha/toptracks/internal/models"
	"github.com/samrat-shrestha/toptracks/internal/shared"
)

// RefreshWindow is how close to expiry a token may get before it is refreshed.
const RefreshWindow = 60 * time.Second

// Refresher exchanges a refresh token for a new token.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.Token, error)
}

// TokenStore hands out the session token, refreshing it when it is about to expire.
type TokenStore struct {
	session   Session
	refresher Refresher
	logger    *log.Logger
	now       func() time.Time
}

// NewTokenStore creates a [TokenStore] over session.
func NewTokenStore(session Session, refresher Refresher, logger *log.Logger) *TokenStore {
	return &TokenStore{
		session:   session,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock replaces the store's time source.
func (ts *TokenStore) WithClock(now func() time.Time) *TokenStore {
	ts.now = now
	return ts
}

// ValidToken returns a token with at least [RefreshWindow] of validity left.
//
// A missing token or a failed refresh is reported as [shared.ErrNotAuthenticated]. A failed refresh leaves the
// stale token in the session.
func (ts *TokenStore) ValidToken(w http.ResponseWriter, r *http.Request) (*models.Token, error) {
	token, ok := ts.session.Token(r)
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}

	if !token.NeedsRefresh(ts.now(), RefreshWindow) {
		return token, nil
	}

	refreshed, err := ts.refresher.Refresh(r.Context(), token.RefreshToken)
	if err != nil {
		ts.logger.Warn("token refresh failed", "err", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
	}

	if err := ts.session.SetToken(w, r, refreshed); err != nil {
		ts.logger.Error("failed to save refreshed token", "err", err)
	} else {
		ts.logger.Debug("token refreshed", "expires_at", refreshed.ExpiresAt)
	}

	return refreshed, nil
}

// Store overwrites the session token.
func (ts *TokenStore) Store(w http.ResponseWriter, r *http.Request, token *models.Token) error {
	return ts.session.SetToken(w, r, token)
}

// Clear removes everything from the session.
func (ts *TokenStore) Clear(w http.ResponseWriter, r *http.Request) error {
	return ts.session.Clear(w, r)
}
