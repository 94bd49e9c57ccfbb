// Package services implements the clients for the two upstream APIs: Spotify and a chat completion model.
//
// # Spotify OAuth
//
// [SpotifyAuth] implements [Authenticator] on top of [oauth2.Config]. Scope strings and the default
// accounts endpoints come from the spotify auth package. Tokens cross the package boundary as
// [models.Token] so that they can be stored in a session without dragging oauth2 types along.
//
// # Spotify Web API
//
// [SpotifyService] implements [Catalog] with plain JSON requests against api.spotify.com. It holds no token
// of its own; [SpotifyService.WithToken] returns a copy bound to one user's access token, so one
// service value can be shared by all requests.
//
// # Completion API
//
// [CompletionService] implements [Recommender] against an OpenAI-compatible /chat/completions endpoint.
// It sends a system instruction and one user prompt and returns the first choice's content untouched;
// parsing is left to the caller.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAuthFailed] : authorization code exchange failed
//   - [shared.ErrRefreshFailed] : refresh token grant failed
//   - [shared.ErrNotAuthenticated] : catalog call without a token
//   - [shared.ErrTokenExpired] : Spotify answered 401
//   - [shared.ErrAPIRequest] : any other non-2xx or transport failure
package services
