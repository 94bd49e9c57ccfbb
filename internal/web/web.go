// Package web implements the HTTP surface of the playlist service.
//
// # Routes
//
//	GET /             → redirect to the Spotify authorize URL
//	GET /redirect     → OAuth completion, then redirect to /savePlaylist
//	GET /savePlaylist → mirror top tracks into "Saved Top Tracks Weekly" (requires auth)
//	GET /generate     → completion model recommendations into "Similar Songs Weekly" (requires auth)
//	GET /logout       → clear the session
//	GET /health       → liveness probe
//
// # Authentication
//
// Protected handlers call [App.authenticate] first. It asks the [session.TokenStore] for a token valid for at
// least a minute (refreshing it when needed) and tags the request authenticated or not; unauthenticated
// requests are redirected to the login route.
//
// # Errors
//
// Handlers never return error details. The cause is logged and the client gets the fixed message for the
// route, except for an unparseable completion reply which gets its own message.
package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/samrat-shrestha/toptracks/internal/models"
	"github.com/samrat-shrestha/toptracks/internal/server"
	"github.com/samrat-shrestha/toptracks/internal/services"
	"github.com/samrat-shrestha/toptracks/internal/session"
	"github.com/samrat-shrestha/toptracks/internal/shared"
	"github.com/samrat-shrestha/toptracks/internal/tasks"
)

// Response bodies.
const (
	MsgLoginFailed    = "An error occurred during login"
	MsgAuthFailed     = "An error occurred during authentication"
	MsgSaved          = "Songs Added in Playlist"
	MsgSaveFailed     = "An error occurred while saving the playlist"
	MsgInvalidAI      = "Invalid AI response format"
	MsgGenerateFailed = "An error occurred while generating recommendations"
	MsgLoggedOut      = "Successfully logged out"
	MsgLogoutFailed   = "An error occurred during logout"
)

const (
	routeLogin        = "/"
	routeSavePlaylist = "/savePlaylist"
)

// CatalogFactory binds a catalog client to a user's token.
type CatalogFactory func(token *models.Token) services.Catalog

// Options configures an [App].
type Options struct {
	Auth        services.Authenticator
	Catalog     CatalogFactory
	Recommender services.Recommender
	Session     session.Session
	Logger      *log.Logger
}

// App holds the route handlers and everything they depend on.
type App struct {
	auth    services.Authenticator
	catalog CatalogFactory
	engine  *tasks.Engine
	session session.Session
	tokens  *session.TokenStore
	logger  *log.Logger
}

// New creates an [App]. Auth, Catalog and Session are required.
func New(opts Options) (*App, error) {
	if opts.Auth == nil || opts.Catalog == nil || opts.Session == nil {
		return nil, shared.ErrMissingArgument
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &App{
		auth:    opts.Auth,
		catalog: opts.Catalog,
		engine:  tasks.NewEngine(opts.Recommender, shared.WithLogger(opts.Logger, "component", "tasks")),
		session: opts.Session,
		tokens:  session.NewTokenStore(opts.Session, opts.Auth, shared.WithLogger(opts.Logger, "component", "tokens")),
		logger:  opts.Logger,
	}, nil
}

// Tokens exposes the app's token store.
func (a *App) Tokens() *session.TokenStore {
	return a.tokens
}

// Register adds the app's routes to router.
func (a *App) Register(router *server.BasicRouter) {
	router.HandleFunc(http.MethodGet, "/{$}", a.Login)
	router.HandleFunc(http.MethodGet, "/redirect", a.Redirect)
	router.HandleFunc(http.MethodGet, routeSavePlaylist, a.SavePlaylist)
	router.HandleFunc(http.MethodGet, "/generate", a.Generate)
	router.HandleFunc(http.MethodGet, "/logout", a.Logout)
	router.Handler(Health{})
}

// Routes builds a router with the default middleware stack and every route registered.
func (a *App) Routes(behindProxy bool) *server.BasicRouter {
	router := server.NewBasicRouter()
	router.Use(server.Defaults(a.logger, behindProxy)...)
	a.Register(router)
	return router
}

// Login redirects to the provider's authorize URL with a fresh state parameter.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	state, err := shared.GenerateState()
	if err != nil {
		a.fail(w, r, MsgLoginFailed, err)
		return
	}

	if err := a.session.SetState(w, r, state); err != nil {
		a.fail(w, r, MsgLoginFailed, err)
		return
	}

	http.Redirect(w, r, a.auth.AuthURL(state), http.StatusFound)
}

// Redirect completes the authorization code flow. The session is cleared before the new token is stored.
func (a *App) Redirect(w http.ResponseWriter, r *http.Request) {
	expected := a.session.State(r)

	if err := a.tokens.Clear(w, r); err != nil {
		a.fail(w, r, MsgAuthFailed, err)
		return
	}

	code, err := server.ParseCallback(r).Verify(expected)
	if err != nil {
		a.fail(w, r, MsgAuthFailed, err)
		return
	}

	token, err := a.auth.Exchange(r.Context(), code)
	if err != nil {
		a.fail(w, r, MsgAuthFailed, err)
		return
	}

	if err := a.tokens.Store(w, r, token); err != nil {
		a.fail(w, r, MsgAuthFailed, err)
		return
	}

	a.requestLogger(r).Info("user authenticated", "expires_at", token.ExpiresAt)
	http.Redirect(w, r, routeSavePlaylist, http.StatusFound)
}

// SavePlaylist mirrors the user's top tracks into the managed playlist.
func (a *App) SavePlaylist(w http.ResponseWriter, r *http.Request) {
	auth := a.authenticate(w, r)
	if !auth.Authenticated() {
		http.Redirect(w, r, routeLogin, http.StatusFound)
		return
	}

	playlist, err := a.engine.SaveTopTracks(r.Context(), a.catalog(auth.Token))
	if err != nil {
		a.fail(w, r, MsgSaveFailed, err)
		return
	}

	a.requestLogger(r).Info("top tracks saved", "playlist", playlist.ID)
	writeText(w, http.StatusOK, MsgSaved)
}

// Generate runs the recommendation flow and returns its result as JSON.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	auth := a.authenticate(w, r)
	if !auth.Authenticated() {
		http.Redirect(w, r, routeLogin, http.StatusFound)
		return
	}

	result, err := a.engine.GenerateRecommendations(r.Context(), a.catalog(auth.Token))
	if errors.Is(err, shared.ErrInvalidAIResponse) {
		a.fail(w, r, MsgInvalidAI, err)
		return
	}
	if err != nil {
		a.fail(w, r, MsgGenerateFailed, err)
		return
	}

	body, err := shared.MarshalJSON(result, false)
	if err != nil {
		a.fail(w, r, MsgGenerateFailed, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Logout clears the session.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.tokens.Clear(w, r); err != nil {
		a.fail(w, r, MsgLogoutFailed, err)
		return
	}
	writeText(w, http.StatusOK, MsgLoggedOut)
}

// authResult is the outcome of the login gate.
type authResult struct {
	Token *models.Token
}

// Authenticated reports whether a usable token was found.
func (a authResult) Authenticated() bool {
	return a.Token != nil
}

// authenticate checks for a valid session token, refreshing it when it is about to expire.
func (a *App) authenticate(w http.ResponseWriter, r *http.Request) authResult {
	token, err := a.tokens.ValidToken(w, r)
	if err != nil {
		a.requestLogger(r).Warn("user not logged in, redirecting to login", "err", err)
		return authResult{}
	}
	return authResult{Token: token}
}

// fail logs err and replies with a 500 carrying msg.
func (a *App) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	a.requestLogger(r).Error(msg, "err", err)
	writeText(w, http.StatusInternalServerError, msg)
}

func (a *App) requestLogger(r *http.Request) *log.Logger {
	return a.logger.With("request_id", server.GetRequestID(r.Context()))
}

// Health answers liveness probes.
type Health struct{}

// Routes implements [server.Handler].
func (Health) Routes() []string { return []string{"/health"} }

func (Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, `{"status":"ok"}`)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	io.WriteString(w, msg)
}

// SpotifyCatalog returns a [CatalogFactory] that binds svc to each user's token.
func SpotifyCatalog(svc *services.SpotifyService) CatalogFactory {
	return func(token *models.Token) services.Catalog {
		return svc.WithToken(token)
	}
}
