package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/samrat-shrestha/toptracks/internal/repositories"
	"github.com/samrat-shrestha/toptracks/internal/server"
	"github.com/samrat-shrestha/toptracks/internal/services"
	"github.com/samrat-shrestha/toptracks/internal/session"
	"github.com/samrat-shrestha/toptracks/internal/shared"
	"github.com/samrat-shrestha/toptracks/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve starts the web server and blocks until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.resolveConfig(cmd.String("config"))
	if err != nil {
		return err
	}

	if port := cmd.Int("port"); port > 0 {
		config.Server.Port = port
	}

	if err := config.Validate(); err != nil {
		return err
	}

	app, cleanup, err := r.buildApp(config)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("starting web server", "addr", config.Server.Addr(), "sessions", config.Session.Backend)
	return server.Serve(ctx, config.Server.Addr(), app.Routes(config.Server.BehindProxy), r.logger)
}

// buildApp wires the upstream clients, the session store and the route handlers. cleanup releases the
// session backend.
func (r *Runner) buildApp(config *shared.Config) (*web.App, func(), error) {
	auth, err := services.NewSpotifyAuth(config.Credentials.Spotify, r.httpClient)
	if err != nil {
		return nil, nil, err
	}

	spotify := services.NewSpotifyService(config.Credentials.Spotify.APIBaseURL, r.httpClient)

	var recommender services.Recommender
	if config.Credentials.Completion.APIKey != "" {
		recommender = services.NewCompletionService(config.Credentials.Completion, r.httpClient)
	} else {
		r.logger.Warn("COMPLETION_API_KEY not set, /generate will fail")
	}

	backend, cleanup, err := r.sessionBackend(config)
	if err != nil {
		return nil, nil, err
	}

	store, err := session.NewStore(config.Session, backend)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	app, err := web.New(web.Options{
		Auth:        auth,
		Catalog:     web.SpotifyCatalog(spotify),
		Recommender: recommender,
		Session:     session.NewManager(store, config.Session.Name, shared.WithLogger(r.logger, "component", "session")),
		Logger:      r.logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return app, cleanup, nil
}

// sessionBackend opens the server-side storage for the configured session backend. Cookie sessions need none.
func (r *Runner) sessionBackend(config *shared.Config) (session.Backend, func(), error) {
	switch config.Session.Backend {
	case shared.SessionBackendSQLite:
		db, err := r.openDatabase(config)
		if err != nil {
			return nil, nil, err
		}
		return repositories.NewSessionRepository(db), func() { db.Close() }, nil
	case shared.SessionBackendRedis:
		repo, err := repositories.NewRedisRepository(config.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}
