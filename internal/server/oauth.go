package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/samrat-shrestha/toptracks/internal/shared"
)

// Callback holds the query parameters the provider appends to the OAuth2 redirect URI.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ParseCallback reads the authorization code callback parameters from r.
func ParseCallback(r *http.Request) Callback {
	q := r.URL.Query()
	return Callback{
		Code:             q.Get("code"),
		State:            q.Get("state"),
		Error:            q.Get("error"),
		ErrorDescription: q.Get("error_description"),
	}
}

// Verify checks the state parameter against the one issued with the authorize redirect and returns the
// authorization code.
//
// A state mismatch wraps [shared.ErrInvalidState]. A denied authorization or a missing code wraps
// [shared.ErrAuthFailed].
func (c Callback) Verify(expectedState string) (string, error) {
	if expectedState == "" || subtle.ConstantTimeCompare([]byte(c.State), []byte(expectedState)) != 1 {
		return "", fmt.Errorf("%w: callback state does not match", shared.ErrInvalidState)
	}

	if c.Code == "" {
		if c.Error != "" {
			return "", fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, c.Error, c.ErrorDescription)
		}
		return "", fmt.Errorf("%w: missing authorization code", shared.ErrAuthFailed)
	}

	return c.Code, nil
}
