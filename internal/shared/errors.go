package shared

import "fmt"

// Sentinel errors. Callers wrap them with fmt.Errorf("%w: ...") and classify with errors.Is.
var (
	// Configuration
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// OAuth and token lifecycle
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrInvalidState     = fmt.Errorf("invalid state parameter")

	// Server-side session storage
	ErrSessionNotFound = fmt.Errorf("session not found")

	// Upstream calls to the catalog and completion APIs
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	// ErrInvalidAIResponse is the only upstream failure with its own response body.
	ErrInvalidAIResponse = fmt.Errorf("invalid AI response format")

	// Input validation
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
)
