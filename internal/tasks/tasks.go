package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/samrat-shrestha/toptracks/internal/formatter"
	"github.com/samrat-shrestha/toptracks/internal/models"
	"github.com/samrat-shrestha/toptracks/internal/services"
	"github.com/samrat-shrestha/toptracks/internal/shared"
)

// Reconciler makes a named playlist hold exactly a given list of items.
type Reconciler struct {
	catalog services.Catalog
	logger  *log.Logger
}

// NewReconciler creates a [Reconciler] bound to a user's catalog client.
func NewReconciler(catalog services.Catalog, logger *log.Logger) *Reconciler {
	return &Reconciler{catalog: catalog, logger: logger}
}

// Reconcile finds or creates the playlist called name and replaces its items with uris.
//
// Lookup or creation failures wrap [shared.ErrPlaylistNotFound].
func (r *Reconciler) Reconcile(ctx context.Context, userID, name, description string, uris []string) (*models.Playlist, error) {
	playlist, created, err := r.findOrCreate(ctx, userID, name, description)
	if err != nil {
		return nil, err
	}

	logger := r.logger.With("playlist", playlist.ID)

	if !created {
		if err := r.catalog.ReplaceItems(ctx, playlist.ID, []string{}); err != nil {
			return nil, fmt.Errorf("failed to clear playlist %s: %w", playlist.ID, err)
		}
		logger.Debug("playlist cleared", "phase", ClearPlaylist)
	}

	if len(uris) > 0 {
		if err := r.catalog.AddItems(ctx, playlist.ID, uris); err != nil {
			return nil, fmt.Errorf("failed to add items to playlist %s: %w", playlist.ID, err)
		}
	}
	logger.Info("playlist updated", "phase", AddItems, "name", name, "items", len(uris))

	return playlist, nil
}

func (r *Reconciler) findOrCreate(ctx context.Context, userID, name, description string) (*models.Playlist, bool, error) {
	playlists, err := r.catalog.CurrentUserPlaylists(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%w: listing playlists: %w", shared.ErrPlaylistNotFound, err)
	}
	r.logger.Debug("playlists fetched", "phase", FetchPlaylists, "count", len(playlists))

	for i := range playlists {
		if playlists[i].Name == name {
			return &playlists[i], false, nil
		}
	}

	playlist, err := r.catalog.CreatePlaylist(ctx, userID, name, true, description)
	if err != nil {
		return nil, false, fmt.Errorf("%w: creating %q: %w", shared.ErrPlaylistNotFound, name, err)
	}
	r.logger.Info("playlist created", "phase", CreatePlaylist, "name", name, "playlist", playlist.ID)

	return playlist, true, nil
}

// Engine runs the playlist flows for one authenticated catalog client at a time.
type Engine struct {
	recommender services.Recommender
	logger      *log.Logger
}

// NewEngine creates an [Engine]. recommender may be nil when only [Engine.SaveTopTracks] is used.
func NewEngine(recommender services.Recommender, logger *log.Logger) *Engine {
	return &Engine{recommender: recommender, logger: logger}
}

// SaveTopTracks copies the user's top tracks into the "Saved Top Tracks Weekly" playlist.
func (e *Engine) SaveTopTracks(ctx context.Context, catalog services.Catalog) (*models.Playlist, error) {
	userID, err := e.userID(ctx, catalog)
	if err != nil {
		return nil, err
	}

	tracks, err := e.topTracks(ctx, catalog)
	if err != nil {
		return nil, err
	}

	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		uris = append(uris, t.URI)
	}

	return NewReconciler(catalog, e.logger).Reconcile(ctx, userID, models.TopTracksPlaylist, models.TopTracksDescription, uris)
}

// GenerateRecommendations asks the completion model for songs similar to the user's top tracks and writes the
// ones found in the catalog into the "Similar Songs Weekly" playlist.
//
// A reply that is not a JSON array of song/artist objects fails with [shared.ErrInvalidAIResponse] before any
// playlist is touched.
func (e *Engine) GenerateRecommendations(ctx context.Context, catalog services.Catalog) (*models.GenerateResult, error) {
	if e.recommender == nil {
		return nil, fmt.Errorf("%w: no recommender configured", shared.ErrServiceUnavailable)
	}

	userID, err := e.userID(ctx, catalog)
	if err != nil {
		return nil, err
	}

	tracks, err := e.topTracks(ctx, catalog)
	if err != nil {
		return nil, err
	}

	prompt := formatter.RecommendationPrompt(tracks, models.RecommendationCount)
	text, err := e.recommender.Complete(ctx, formatter.SystemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendations: %w", err)
	}

	recs, err := formatter.ParseRecommendations(text)
	if err != nil {
		e.logger.Error("unparseable completion reply", "phase", Recommend, "reply", text)
		return nil, err
	}
	e.logger.Debug("recommendations received", "phase", Recommend, "count", len(recs))

	uris, err := e.resolve(ctx, catalog, recs)
	if err != nil {
		return nil, err
	}

	playlist, err := NewReconciler(catalog, e.logger).Reconcile(ctx, userID, models.RecommendationsPlaylist, models.RecommendationsDescription, uris)
	if err != nil {
		return nil, err
	}

	return &models.GenerateResult{
		Recommendations: text,
		PlaylistID:      playlist.ID,
		PlaylistURL:     playlist.URL,
	}, nil
}

// resolve searches each recommendation and keeps the first hit. Misses are logged and skipped.
func (e *Engine) resolve(ctx context.Context, catalog services.Catalog, recs []models.Recommendation) ([]string, error) {
	uris := make([]string, 0, len(recs))

	for i, rec := range recs {
		query := formatter.SearchQuery(rec)

		results, err := catalog.SearchTrack(ctx, query, 1)
		if err != nil {
			return nil, fmt.Errorf("failed to search %q: %w", query, err)
		}

		if len(results) == 0 {
			e.logger.Warn("no catalog match for recommendation", "phase", SearchTracks, "step", i+1, "total", len(recs), "song", rec.Song, "artist", rec.Artist)
			continue
		}
		uris = append(uris, results[0].URI)
	}

	e.logger.Info("recommendations resolved", "phase", SearchTracks, "matched", len(uris), "total", len(recs))
	return uris, nil
}

func (e *Engine) userID(ctx context.Context, catalog services.Catalog) (string, error) {
	id, err := catalog.CurrentUserID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get current user: %w", err)
	}
	e.logger.Debug("profile fetched", "phase", FetchProfile, "user", id)
	return id, nil
}

func (e *Engine) topTracks(ctx context.Context, catalog services.Catalog) ([]models.Track, error) {
	tracks, err := catalog.TopTracks(ctx, models.TopTracksLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top tracks: %w", err)
	}
	e.logger.Debug("top tracks fetched", "phase", FetchTopTracks, "count", len(tracks))
	return tracks, nil
}
