package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/samrat-shrestha/toptracks/internal/formatter"
	"github.com/samrat-shrestha/toptracks/internal/models"
	"github.com/samrat-shrestha/toptracks/internal/shared"
)

type mockCatalog struct {
	userID    string
	playlists []models.Playlist
	items     map[string][]string
	topTracks []models.Track
	search    map[string][]models.Track

	listErr    error
	createErr  error
	replaceErr error
	addErr     error
	searchErr  error

	calls   []string
	queries []string
	nextID  int
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{userID: "user-1", items: map[string][]string{}, search: map[string][]models.Track{}}
}

func (m *mockCatalog) CurrentUserID(ctx context.Context) (string, error) {
	m.calls = append(m.calls, "me")
	return m.userID, nil
}

func (m *mockCatalog) CurrentUserPlaylists(ctx context.Context) ([]models.Playlist, error) {
	m.calls = append(m.calls, "list")
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]models.Playlist(nil), m.playlists...), nil
}

func (m *mockCatalog) TopTracks(ctx context.Context, limit int) ([]models.Track, error) {
	m.calls = append(m.calls, "top")
	if len(m.topTracks) > limit {
		return m.topTracks[:limit], nil
	}
	return m.topTracks, nil
}

func (m *mockCatalog) SearchTrack(ctx context.Context, query string, limit int) ([]models.Track, error) {
	m.calls = append(m.calls, "search")
	m.queries = append(m.queries, query)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.search[query], nil
}

func (m *mockCatalog) CreatePlaylist(ctx context.Context, userID, name string, public bool, description string) (*models.Playlist, error) {
	m.calls = append(m.calls, "create")
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.nextID++
	p := models.Playlist{ID: fmt.Sprintf("pl-%d", m.nextID), Name: name, URL: fmt.Sprintf("https://open.spotify.com/playlist/pl-%d", m.nextID)}
	m.playlists = append(m.playlists, p)
	return &p, nil
}

func (m *mockCatalog) ReplaceItems(ctx context.Context, playlistID string, uris []string) error {
	m.calls = append(m.calls, "replace")
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.items[playlistID] = append([]string{}, uris...)
	return nil
}

func (m *mockCatalog) AddItems(ctx context.Context, playlistID string, uris []string) error {
	m.calls = append(m.calls, "add")
	if m.addErr != nil {
		return m.addErr
	}
	m.items[playlistID] = append(m.items[playlistID], uris...)
	return nil
}

func (m *mockCatalog) count(call string) int {
	n := 0
	for _, c := range m.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (m *mockCatalog) named(name string) []models.Playlist {
	var found []models.Playlist
	for _, p := range m.playlists {
		if p.Name == name {
			found = append(found, p)
		}
	}
	return found
}

type mockRecommender struct {
	reply  string
	err    error
	system string
	prompt string
	calls  int
}

func (m *mockRecommender) Complete(ctx context.Context, system, prompt string) (string, error) {
	m.calls++
	m.system, m.prompt = system, prompt
	return m.reply, m.err
}

func testTracks(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			URI:     fmt.Sprintf("spotify:track:%d", i),
			Name:    fmt.Sprintf("Song %d", i),
			Artists: []string{fmt.Sprintf("Artist %d", i)},
		}
	}
	return tracks
}

func uris(tracks []models.Track) []string {
	out := make([]string, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, t.URI)
	}
	return out
}

func testEngine(r *mockRecommender) *Engine {
	if r == nil {
		return NewEngine(nil, shared.NewLogger(io.Discard))
	}
	return NewEngine(r, shared.NewLogger(io.Discard))
}

func TestReconciler(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("creates missing playlist without clearing", func(t *testing.T) {
		catalog := newMockCatalog()

		playlist, err := NewReconciler(catalog, logger).Reconcile(ctx, "user-1", "Mix", "desc", []string{"a", "b"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.ID != "pl-1" || playlist.URL == "" {
			t.Errorf("unexpected playlist %+v", playlist)
		}
		if want := []string{"list", "create", "add"}; !reflect.DeepEqual(catalog.calls, want) {
			t.Errorf("expected calls %v, got %v", want, catalog.calls)
		}
		if !reflect.DeepEqual(catalog.items["pl-1"], []string{"a", "b"}) {
			t.Errorf("unexpected items %v", catalog.items["pl-1"])
		}
	})

	t.Run("existing playlist is cleared then filled", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.playlists = []models.Playlist{{ID: "old", Name: "Mix"}}
		catalog.items["old"] = []string{"stale"}

		playlist, err := NewReconciler(catalog, logger).Reconcile(ctx, "user-1", "Mix", "desc", []string{"a"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.ID != "old" {
			t.Errorf("expected existing playlist reused, got %s", playlist.ID)
		}
		if want := []string{"list", "replace", "add"}; !reflect.DeepEqual(catalog.calls, want) {
			t.Errorf("expected calls %v, got %v", want, catalog.calls)
		}
		if !reflect.DeepEqual(catalog.items["old"], []string{"a"}) {
			t.Errorf("expected stale items replaced, got %v", catalog.items["old"])
		}
	})

	t.Run("first exact match wins", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.playlists = []models.Playlist{
			{ID: "lower", Name: "mix"},
			{ID: "first", Name: "Mix"},
			{ID: "second", Name: "Mix"},
		}

		playlist, err := NewReconciler(catalog, logger).Reconcile(ctx, "user-1", "Mix", "", []string{"a"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.ID != "first" {
			t.Errorf("expected first exact match, got %s", playlist.ID)
		}
		if catalog.count("create") != 0 {
			t.Error("expected no playlist creation")
		}
	})

	t.Run("empty items skip the add call", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.playlists = []models.Playlist{{ID: "old", Name: "Mix"}}
		catalog.items["old"] = []string{"stale"}

		if _, err := NewReconciler(catalog, logger).Reconcile(ctx, "user-1", "Mix", "", nil); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if catalog.count("add") != 0 {
			t.Error("expected no add call for empty items")
		}
		if len(catalog.items["old"]) != 0 {
			t.Errorf("expected cleared playlist, got %v", catalog.items["old"])
		}
	})

	t.Run("list failure", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.listErr = shared.ErrAPIRequest

		_, err := NewReconciler(catalog, logger).Reconcile(ctx, "user-1", "Mix", "", []string{"a"})
		if !errors.Is(err, shared.ErrPlaylistNotFound) || !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrPlaylistNotFound wrapping cause, got %v", err)
		}
	})

	t.Run("create failure", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.createErr = shared.ErrAPIRequest

		_, err := NewReconciler(catalog, logger).Reconcile(ctx, "user-1", "Mix", "", []string{"a"})
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if catalog.count("add") != 0 {
			t.Error("expected no add after failed create")
		}
	})

	t.Run("add failure after clear leaves playlist empty", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.playlists = []models.Playlist{{ID: "old", Name: "Mix"}}
		catalog.items["old"] = []string{"stale"}
		catalog.addErr = shared.ErrAPIRequest

		_, err := NewReconciler(catalog, logger).Reconcile(ctx, "user-1", "Mix", "", []string{"a"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Error("add failure should not read as a missing playlist")
		}
		if len(catalog.items["old"]) != 0 {
			t.Errorf("expected playlist left empty, got %v", catalog.items["old"])
		}
	})

	t.Run("clear failure", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.playlists = []models.Playlist{{ID: "old", Name: "Mix"}}
		catalog.replaceErr = shared.ErrAPIRequest

		if _, err := NewReconciler(catalog, logger).Reconcile(ctx, "user-1", "Mix", "", []string{"a"}); err == nil {
			t.Error("expected error")
		}
		if catalog.count("add") != 0 {
			t.Error("expected no add after failed clear")
		}
	})
}

func TestEngine_SaveTopTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("mirrors top 20 tracks", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.topTracks = testTracks(25)

		playlist, err := testEngine(nil).SaveTopTracks(ctx, catalog)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if playlist.Name != models.TopTracksPlaylist {
			t.Errorf("expected %s, got %s", models.TopTracksPlaylist, playlist.Name)
		}
		if got := catalog.items[playlist.ID]; !reflect.DeepEqual(got, uris(catalog.topTracks[:20])) {
			t.Errorf("expected top 20 uris in order, got %v", got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.topTracks = testTracks(5)
		engine := testEngine(nil)

		for range 2 {
			if _, err := engine.SaveTopTracks(ctx, catalog); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}

		found := catalog.named(models.TopTracksPlaylist)
		if len(found) != 1 {
			t.Fatalf("expected exactly one managed playlist, got %d", len(found))
		}
		if got := catalog.items[found[0].ID]; !reflect.DeepEqual(got, uris(catalog.topTracks)) {
			t.Errorf("expected items without duplicates, got %v", got)
		}
		if catalog.count("create") != 1 {
			t.Errorf("expected one create, got %d", catalog.count("create"))
		}
	})

	t.Run("no top tracks", func(t *testing.T) {
		catalog := newMockCatalog()

		if _, err := testEngine(nil).SaveTopTracks(ctx, catalog); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if catalog.count("add") != 0 {
			t.Error("expected no add call")
		}
	})

	t.Run("create failure", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.topTracks = testTracks(1)
		catalog.createErr = shared.ErrAPIRequest

		if _, err := testEngine(nil).SaveTopTracks(ctx, catalog); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})
}

func TestEngine_GenerateRecommendations(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves recommendations and skips misses", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.topTracks = []models.Track{
			{URI: "spotify:track:a", Name: "Song A", Artists: []string{"Artist X"}},
			{URI: "spotify:track:b", Name: "Song B", Artists: []string{"Artist Y", "Artist Z"}},
		}
		catalog.search["track:S1 artist:A1"] = []models.Track{{URI: "spotify:track:s1"}}
		catalog.search["track:S3 artist:A3"] = []models.Track{{URI: "spotify:track:s3"}, {URI: "spotify:track:other"}}

		reply := `[{"song": "S1", "artist": "A1"}, {"song": "S2", "artist": "A2"}, {"song": "S3", "artist": "A3"}]`
		rec := &mockRecommender{reply: reply}

		result, err := testEngine(rec).GenerateRecommendations(ctx, catalog)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if result.Recommendations != reply {
			t.Errorf("expected raw reply, got %q", result.Recommendations)
		}
		if result.PlaylistID == "" || result.PlaylistURL == "" {
			t.Errorf("expected playlist id and url, got %+v", result)
		}
		if got := catalog.items[result.PlaylistID]; !reflect.DeepEqual(got, []string{"spotify:track:s1", "spotify:track:s3"}) {
			t.Errorf("expected only matched uris, got %v", got)
		}
		if want := []string{"track:S1 artist:A1", "track:S2 artist:A2", "track:S3 artist:A3"}; !reflect.DeepEqual(catalog.queries, want) {
			t.Errorf("expected queries %v, got %v", want, catalog.queries)
		}
		if catalog.named(models.RecommendationsPlaylist) == nil {
			t.Error("expected recommendations playlist")
		}

		if rec.calls != 1 {
			t.Errorf("expected one completion call, got %d", rec.calls)
		}
		if rec.system != formatter.SystemPrompt {
			t.Error("expected fixed system instruction")
		}
		if !strings.Contains(rec.prompt, "Song B by Artist Y, Artist Z") || !strings.Contains(rec.prompt, "10") {
			t.Errorf("unexpected prompt %q", rec.prompt)
		}
	})

	t.Run("no matches leaves playlist empty", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.topTracks = testTracks(3)
		catalog.playlists = []models.Playlist{{ID: "old", Name: models.RecommendationsPlaylist}}
		catalog.items["old"] = []string{"stale"}

		rec := &mockRecommender{reply: `[{"song": "X", "artist": "Y"}]`}
		result, err := testEngine(rec).GenerateRecommendations(ctx, catalog)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if result.PlaylistID != "old" {
			t.Errorf("expected existing playlist, got %s", result.PlaylistID)
		}
		if catalog.count("add") != 0 {
			t.Error("expected no add call")
		}
		if len(catalog.items["old"]) != 0 {
			t.Errorf("expected empty playlist, got %v", catalog.items["old"])
		}
	})

	t.Run("malformed reply", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.topTracks = testTracks(3)

		rec := &mockRecommender{reply: "Here are some songs: ..."}
		_, err := testEngine(rec).GenerateRecommendations(ctx, catalog)
		if !errors.Is(err, shared.ErrInvalidAIResponse) {
			t.Errorf("expected ErrInvalidAIResponse, got %v", err)
		}
		for _, call := range []string{"list", "create", "replace", "add", "search"} {
			if catalog.count(call) != 0 {
				t.Errorf("expected no %s call after malformed reply", call)
			}
		}
	})

	t.Run("completion failure", func(t *testing.T) {
		catalog := newMockCatalog()
		rec := &mockRecommender{err: shared.ErrAPIRequest}

		_, err := testEngine(rec).GenerateRecommendations(ctx, catalog)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if errors.Is(err, shared.ErrInvalidAIResponse) {
			t.Error("transport failure should not read as a format error")
		}
	})

	t.Run("search failure", func(t *testing.T) {
		catalog := newMockCatalog()
		catalog.searchErr = shared.ErrAPIRequest

		rec := &mockRecommender{reply: `[{"song": "X", "artist": "Y"}]`}
		if _, err := testEngine(rec).GenerateRecommendations(ctx, catalog); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if catalog.count("list") != 0 {
			t.Error("expected no reconciliation after search failure")
		}
	})

	t.Run("no recommender", func(t *testing.T) {
		if _, err := testEngine(nil).GenerateRecommendations(ctx, newMockCatalog()); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestPhase(t *testing.T) {
	if FetchTopTracks.String() != "fetch_top_tracks" {
		t.Errorf("unexpected phase name %s", FetchTopTracks)
	}
	if Phase(99).String() != "unknown" {
		t.Errorf("expected unknown phase, got %s", Phase(99))
	}
}
