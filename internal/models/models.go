// package models defines the data model for the top tracks playlist service
package models

import (
	"time"

	"golang.org/x/oauth2"
)

// Managed playlist names and descriptions.
const (
	TopTracksPlaylist          = "Saved Top Tracks Weekly"
	TopTracksDescription       = "Weekly updated playlist of my top tracks"
	RecommendationsPlaylist    = "Similar Songs Weekly"
	RecommendationsDescription = "AI-generated recommendations based on your top tracks"
	TopTracksLimit             = 20
	RecommendationCount        = 10
)

// Token is the OAuth token tuple stored in the user's session.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}

// NewToken converts an [oauth2.Token] into a [Token].
//
// A token without an expiry is stored with ExpiresAt 0, which always reads as stale.
func NewToken(t *oauth2.Token) *Token {
	if t == nil {
		return nil
	}

	token := &Token{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}
	if !t.Expiry.IsZero() {
		token.ExpiresAt = t.Expiry.Unix()
	}
	return token
}

// OAuth2 converts the token back into an [oauth2.Token].
func (t *Token) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
	}
	if t.ExpiresAt > 0 {
		tok.Expiry = time.Unix(t.ExpiresAt, 0)
	}
	return tok
}

// NeedsRefresh reports whether fewer than window remain before the token expires at now.
func (t *Token) NeedsRefresh(now time.Time, window time.Duration) bool {
	return t.ExpiresAt-now.Unix() < int64(window/time.Second)
}

// Track is a catalog track reference.
type Track struct {
	URI     string   `json:"uri"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
}

// Recommendation is a single song suggested by the completion model.
type Recommendation struct {
	Song   string `json:"song"`
	Artist string `json:"artist"`
}

// Playlist identifies a user playlist.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// GenerateResult is the response body of the recommendation flow.
type GenerateResult struct {
	Recommendations string `json:"recommendations"`
	PlaylistID      string `json:"playlist_id"`
	PlaylistURL     string `json:"playlist_url"`
}
