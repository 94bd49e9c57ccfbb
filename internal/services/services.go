// package services defines the upstream clients the web service talks to
//
// Spotify (OAuth + Web API), chat completion API
package services

import (
	"context"

	"github.com/samrat-shrestha/toptracks/internal/models"
)

// Catalog is the subset of the Spotify Web API used by the playlist flows.
//
// Each method is a single authenticated REST call, except [Catalog.CurrentUserPlaylists] which follows pagination.
type Catalog interface {
	// CurrentUserID returns the Spotify id of the token owner.
	CurrentUserID(ctx context.Context) (string, error)

	// CurrentUserPlaylists lists the user's playlists in provider order.
	CurrentUserPlaylists(ctx context.Context) ([]models.Playlist, error)

	// TopTracks returns up to limit of the user's top tracks.
	TopTracks(ctx context.Context, limit int) ([]models.Track, error)

	// SearchTrack runs a track search with a structured query string.
	SearchTrack(ctx context.Context, query string, limit int) ([]models.Track, error)

	// CreatePlaylist creates a playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name string, public bool, description string) (*models.Playlist, error)

	// ReplaceItems overwrites a playlist's items. An empty list clears it.
	ReplaceItems(ctx context.Context, playlistID string, uris []string) error

	// AddItems appends items to a playlist.
	AddItems(ctx context.Context, playlistID string, uris []string) error
}

// Authenticator wraps the three-legged OAuth2 flow against Spotify.
type Authenticator interface {
	// AuthURL builds the authorize redirect URL carrying state.
	AuthURL(state string) string

	// Exchange trades an authorization code for a token.
	Exchange(ctx context.Context, code string) (*models.Token, error)

	// Refresh obtains a new access token from a refresh token.
	Refresh(ctx context.Context, refreshToken string) (*models.Token, error)
}

// Recommender sends one prompt to a completion model and returns the raw reply text.
type Recommender interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}
