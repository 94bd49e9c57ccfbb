// package testing contains shared testing utilities
//
// [FakeSpotify] and [FakeCompletion] are in-process stand-ins for the upstream APIs, served by [httptest].
package testing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/samrat-shrestha/toptracks/internal/models"
)

// FakePlaylist is a playlist held by [FakeSpotify].
type FakePlaylist struct {
	ID   string
	Name string
	URIs []string
}

// FakeSpotify emulates the Spotify accounts token endpoint and the Web API endpoints used by the service.
type FakeSpotify struct {
	Server *httptest.Server

	mu sync.Mutex

	UserID    string
	Playlists []*FakePlaylist
	TopTracks []models.Track
	Search    map[string][]models.Track
	PageSize  int // playlists per page, 0 means 50

	FailCreate       bool
	FailAdd          bool
	FailReplace      bool
	TokenStatus      int  // non-zero makes the token endpoint answer with this status
	OmitRefreshToken bool // refresh grants answer without a refresh_token

	Queries     []string
	LastBearer  string
	LastGrant   string
	calls       map[string]int
	nextID      int
	tokenSerial int
}

// NewFakeSpotify starts a [FakeSpotify] that is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{
		UserID: "user-1",
		Search: map[string][]models.Track{},
		calls:  map[string]int{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.token)
	mux.HandleFunc("GET /v1/me", f.authorized(f.me))
	mux.HandleFunc("GET /v1/me/playlists", f.authorized(f.playlists))
	mux.HandleFunc("GET /v1/me/top/tracks", f.authorized(f.topTracks))
	mux.HandleFunc("GET /v1/search", f.authorized(f.search))
	mux.HandleFunc("POST /v1/users/{user}/playlists", f.authorized(f.createPlaylist))
	mux.HandleFunc("PUT /v1/playlists/{id}/tracks", f.authorized(f.replaceItems))
	mux.HandleFunc("POST /v1/playlists/{id}/tracks", f.authorized(f.addItems))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)

	return f
}

// APIBaseURL is the Web API root to hand to the catalog client.
func (f *FakeSpotify) APIBaseURL() string { return f.Server.URL + "/v1" }

// TokenURL is the token endpoint to hand to the OAuth client.
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }

// AuthURL is the authorize endpoint. It is never served; browsers are only redirected to it.
func (f *FakeSpotify) AuthURL() string { return f.Server.URL + "/authorize" }

// AddPlaylist seeds a playlist and returns it.
func (f *FakeSpotify) AddPlaylist(name string, uris ...string) *FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := &FakePlaylist{ID: f.newID(), Name: name, URIs: uris}
	f.Playlists = append(f.Playlists, p)
	return p
}

// Named returns every playlist called name.
func (f *FakeSpotify) Named(name string) []*FakePlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()

	var found []*FakePlaylist
	for _, p := range f.Playlists {
		if p.Name == name {
			found = append(found, p)
		}
	}
	return found
}

// Calls returns how many times the named endpoint was hit: token, me, playlists, top, search, create, replace, add.
func (f *FakeSpotify) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// SearchQueries returns the q parameter of every search request, in order.
func (f *FakeSpotify) SearchQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Queries...)
}

// Bearer returns the access token presented on the last Web API request.
func (f *FakeSpotify) Bearer() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LastBearer
}

// Items returns a copy of the playlist's items, or nil when id is unknown.
func (f *FakeSpotify) Items(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.Playlists {
		if p.ID == id {
			return append([]string{}, p.URIs...)
		}
	}
	return nil
}

func (f *FakeSpotify) newID() string {
	f.nextID++
	return fmt.Sprintf("pl-%d", f.nextID)
}

func (f *FakeSpotify) authorized(next func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if len(auth) <= len("Bearer ") {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"status": 401, "message": "No token provided"}})
			return
		}

		f.mu.Lock()
		f.LastBearer = auth[len("Bearer "):]
		f.mu.Unlock()

		next(w, r)
	}
}

func (f *FakeSpotify) token(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["token"]++
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	f.LastGrant = r.PostForm.Get("grant_type")

	if f.TokenStatus != 0 {
		writeJSON(w, f.TokenStatus, map[string]string{"error": "invalid_grant", "error_description": "Invalid refresh token"})
		return
	}

	f.tokenSerial++
	body := map[string]any{
		"access_token": fmt.Sprintf("access-%d", f.tokenSerial),
		"token_type":   "Bearer",
		"expires_in":   3600,
		"scope":        "user-library-read user-top-read",
	}
	if f.LastGrant != "refresh_token" || !f.OmitRefreshToken {
		body["refresh_token"] = fmt.Sprintf("refresh-%d", f.tokenSerial)
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *FakeSpotify) me(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["me"]++
	writeJSON(w, http.StatusOK, map[string]string{"id": f.UserID, "display_name": "Test User"})
}

func (f *FakeSpotify) playlists(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["playlists"]++

	limit := atoiDefault(r.URL.Query().Get("limit"), 20)
	if f.PageSize > 0 && f.PageSize < limit {
		limit = f.PageSize
	}
	offset := atoiDefault(r.URL.Query().Get("offset"), 0)

	items := []map[string]any{}
	for i := offset; i < len(f.Playlists) && i < offset+limit; i++ {
		items = append(items, playlistJSON(f.Playlists[i]))
	}

	var next any
	if offset+len(items) < len(f.Playlists) {
		next = fmt.Sprintf("%s/v1/me/playlists?offset=%d&limit=%d", f.Server.URL, offset+len(items), limit)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items":  items,
		"total":  len(f.Playlists),
		"limit":  limit,
		"offset": offset,
		"next":   next,
	})
}

func (f *FakeSpotify) topTracks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["top"]++

	limit := atoiDefault(r.URL.Query().Get("limit"), 20)
	tracks := f.TopTracks
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": tracksJSON(tracks), "total": len(f.TopTracks)})
}

func (f *FakeSpotify) search(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["search"]++

	q := r.URL.Query().Get("q")
	f.Queries = append(f.Queries, q)

	tracks := f.Search[q]
	writeJSON(w, http.StatusOK, map[string]any{"tracks": map[string]any{"items": tracksJSON(tracks), "total": len(tracks)}})
}

func (f *FakeSpotify) createPlaylist(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["create"]++
	if f.FailCreate {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "create failed"})
		return
	}

	var body struct {
		Name        string `json:"name"`
		Public      bool   `json:"public"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing name"})
		return
	}

	p := &FakePlaylist{ID: f.newID(), Name: body.Name}
	f.Playlists = append(f.Playlists, p)
	writeJSON(w, http.StatusCreated, playlistJSON(p))
}

func (f *FakeSpotify) replaceItems(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["replace"]++
	if f.FailReplace {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "replace failed"})
		return
	}

	p, uris, ok := f.itemsRequest(w, r)
	if !ok {
		return
	}
	p.URIs = uris
	writeJSON(w, http.StatusOK, map[string]string{"snapshot_id": "snap"})
}

func (f *FakeSpotify) addItems(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls["add"]++
	if f.FailAdd {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "add failed"})
		return
	}

	p, uris, ok := f.itemsRequest(w, r)
	if !ok {
		return
	}
	p.URIs = append(p.URIs, uris...)
	writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snap"})
}

// itemsRequest resolves the playlist from the path and decodes {"uris": [...]}. Caller holds f.mu.
func (f *FakeSpotify) itemsRequest(w http.ResponseWriter, r *http.Request) (*FakePlaylist, []string, bool) {
	id := r.PathValue("id")

	var playlist *FakePlaylist
	for _, p := range f.Playlists {
		if p.ID == id {
			playlist = p
			break
		}
	}
	if playlist == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "playlist not found"})
		return nil, nil, false
	}

	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return nil, nil, false
	}

	return playlist, body.URIs, true
}

// FakeCompletion emulates an OpenAI-compatible /chat/completions endpoint.
type FakeCompletion struct {
	Server *httptest.Server

	mu          sync.Mutex
	Reply       string
	Status      int
	LastRequest CompletionRequest
	LastAPIKey  string
	calls       int
}

// CompletionRequest is the decoded body of the last completion call.
type CompletionRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// NewFakeCompletion starts a [FakeCompletion] replying with reply.
func NewFakeCompletion(t *testing.T, reply string) *FakeCompletion {
	t.Helper()

	f := &FakeCompletion{Reply: reply}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/completions", f.complete)
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Calls returns how many completion requests were served.
func (f *FakeCompletion) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Last returns the last decoded request and its Authorization header.
func (f *FakeCompletion) Last() (CompletionRequest, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.LastRequest, f.LastAPIKey
}

func (f *FakeCompletion) complete(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.LastAPIKey = r.Header.Get("Authorization")

	var req CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"message": "bad json"}})
		return
	}
	f.LastRequest = req

	if f.Status != 0 && f.Status != http.StatusOK {
		writeJSON(w, f.Status, map[string]any{"error": map[string]string{"message": "upstream failure"}})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": f.Reply}, "finish_reason": "stop"},
		},
	})
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails once it has accepted maxWrites writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func playlistJSON(p *FakePlaylist) map[string]any {
	return map[string]any{
		"id":            p.ID,
		"name":          p.Name,
		"public":        true,
		"uri":           "spotify:playlist:" + p.ID,
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/" + p.ID},
		"tracks":        map[string]int{"total": len(p.URIs)},
	}
}

func tracksJSON(tracks []models.Track) []map[string]any {
	items := make([]map[string]any, 0, len(tracks))
	for _, t := range tracks {
		artists := make([]map[string]string, 0, len(t.Artists))
		for _, a := range t.Artists {
			artists = append(artists, map[string]string{"name": a})
		}
		items = append(items, map[string]any{"uri": t.URI, "name": t.Name, "artists": artists})
	}
	return items
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
