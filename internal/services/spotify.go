// Spotify Web API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/samrat-shrestha/toptracks/internal/models"
	"github.com/samrat-shrestha/toptracks/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// playlistPageSize is the largest page /me/playlists accepts.
const playlistPageSize = 50

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists and as the create response).
type SpotifySimplePlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Public       bool         `json:"public"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifySimplePlaylist `json:"items"`
	Total  int                     `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
	Next   *string                 `json:"next"`
}

// SpotifyPaginatedTracks represents a paginated response of tracks (top items, search results).
type SpotifyPaginatedTracks struct {
	Items  []SpotifyTrack `json:"items"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
	Next   *string        `json:"next"`
}

// SpotifySearchResult is the response of /search with type=track.
type SpotifySearchResult struct {
	Tracks SpotifyPaginatedTracks `json:"tracks"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Public      bool   `json:"public"`
	Description string `json:"description"`
}

type playlistItemsRequest struct {
	URIs []string `json:"uris"`
}

// SpotifyService implements the [Catalog] interface against the Spotify Web API.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	token      *models.Token
}

// NewSpotifyService creates an unauthenticated Spotify client. Use [SpotifyService.WithToken] to bind a user.
//
// An empty baseURL uses the public API, a nil client uses [http.DefaultClient].
func NewSpotifyService(baseURL string, client *http.Client) *SpotifyService {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &SpotifyService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// WithToken returns a copy of the service that authenticates with token.
func (s *SpotifyService) WithToken(token *models.Token) *SpotifyService {
	c := *s
	c.token = token
	return &c
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// body is encoded as JSON when non-nil; result is decoded from the response when non-nil.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil || s.token.AccessToken == "" {
		return shared.ErrNotAuthenticated
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s %s", shared.ErrTokenExpired, method, endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: status %d: %s", shared.ErrAPIRequest, method, endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentUserID returns the id of the current user.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	user, err := s.UserProfile(ctx)
	if err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: profile without id", shared.ErrAPIRequest)
	}
	return user.ID, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", clampLimit(limit), offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// CurrentUserPlaylists retrieves all of the current user's playlists, following pagination.
func (s *SpotifyService) CurrentUserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var all []models.Playlist
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, playlistPageSize, offset)
		if err != nil {
			return nil, err
		}

		for _, p := range response.Items {
			all = append(all, toPlaylist(p))
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += len(response.Items)
	}

	return all, nil
}

// TopTracks retrieves the user's top tracks (limit clamped to 1..50).
func (s *SpotifyService) TopTracks(ctx context.Context, limit int) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/me/top/tracks?limit=%d", clampLimit(limit))

	var response SpotifyPaginatedTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return toTracks(response.Items), nil
}

// SearchTrack searches the catalog for tracks matching query.
func (s *SpotifyService) SearchTrack(ctx context.Context, query string, limit int) ([]models.Track, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", fmt.Sprint(clampLimit(limit)))

	var response SpotifySearchResult
	if err := s.doRequest(ctx, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	return toTracks(response.Tracks.Items), nil
}

// CreatePlaylist creates a playlist for userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name string, public bool, description string) (*models.Playlist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	body := createPlaylistRequest{Name: name, Public: public, Description: description}

	var created SpotifySimplePlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: create playlist returned no id", shared.ErrAPIRequest)
	}

	playlist := toPlaylist(created)
	return &playlist, nil
}

// ReplaceItems overwrites the playlist's items with uris. An empty slice clears the playlist.
func (s *SpotifyService) ReplaceItems(ctx context.Context, playlistID string, uris []string) error {
	if uris == nil {
		uris = []string{}
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPut, endpoint, playlistItemsRequest{URIs: uris}, nil)
}

// AddItems appends uris to the playlist.
func (s *SpotifyService) AddItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return fmt.Errorf("%w: no items to add", shared.ErrInvalidInput)
	}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, playlistItemsRequest{URIs: uris}, nil)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > 50 {
		return 50
	}
	return limit
}

func toPlaylist(p SpotifySimplePlaylist) models.Playlist {
	return models.Playlist{ID: p.ID, Name: p.Name, URL: p.ExternalURLs.Spotify}
}

func toTracks(items []SpotifyTrack) []models.Track {
	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		if item.URI == "" {
			continue
		}
		artists := make([]string, 0, len(item.Artists))
		for _, a := range item.Artists {
			artists = append(artists, a.Name)
		}
		tracks = append(tracks, models.Track{URI: item.URI, Name: item.Name, Artists: artists})
	}
	return tracks
}
