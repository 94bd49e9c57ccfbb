package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/samrat-shrestha/toptracks/internal/models"
	"github.com/samrat-shrestha/toptracks/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Scopes requested during authorization.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopeUserTopRead,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// SpotifyAuth implements [Authenticator] using [oauth2.Config].
type SpotifyAuth struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// NewSpotifyAuth creates a [SpotifyAuth] from the Spotify credentials config.
//
// Empty endpoint URLs fall back to the public Spotify accounts service. A nil client uses [http.DefaultClient].
func NewSpotifyAuth(conf shared.SpotifyConfig, client *http.Client) (*SpotifyAuth, error) {
	if conf.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if conf.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}
	if conf.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing redirect_uri", shared.ErrInvalidConfig)
	}

	authURL, tokenURL := conf.AuthURL, conf.TokenURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &SpotifyAuth{
		config: &oauth2.Config{
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			RedirectURL:  conf.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: client,
	}, nil
}

// AuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyAuth) AuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades the authorization code from the redirect for a token.
func (s *SpotifyAuth) Exchange(ctx context.Context, code string) (*models.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)
	}

	token, err := s.config.Exchange(s.withClient(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange: %v", shared.ErrAuthFailed, err)
	}

	return models.NewToken(token), nil
}

// Refresh runs the refresh token grant.
//
// Spotify may omit a new refresh token, in which case the old one is kept.
func (s *SpotifyAuth) Refresh(ctx context.Context, refreshToken string) (*models.Token, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	// An empty access token is never valid, so the source goes straight to the token endpoint.
	source := s.config.TokenSource(s.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	refreshed := models.NewToken(token)
	if refreshed.RefreshToken == "" {
		refreshed.RefreshToken = refreshToken
	}
	return refreshed, nil
}

func (s *SpotifyAuth) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}
