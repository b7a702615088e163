package services

import (
	"errors"
	"fmt"

	"github.com/desertthunder/wikimirror/internal/shared"
)

// APIError is an api.php {"error": {...}} payload.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

func (e *APIError) Unwrap() error {
	return shared.ErrAPIRequest
}

// LoginError reports a login attempt the server did not accept.
type LoginError struct {
	Endpoint string
	Result   string // login.result, e.g. "Failed" or "WrongToken"
	Reason   string
}

func (e *LoginError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("login to %s failed: %s", e.Endpoint, e.Result)
	}
	return fmt.Sprintf("login to %s failed: %s (%s)", e.Endpoint, e.Result, e.Reason)
}

func (e *LoginError) Unwrap() error {
	return shared.ErrAuthFailed
}

// EditError reports an edit the server refused: an API error, a non-Success result, or a captcha.
type EditError struct {
	Endpoint string
	Title    string
	Code     string
	Info     string
	Result   string
}

func (e *EditError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("edit of %q on %s rejected: %s: %s", e.Title, e.Endpoint, e.Code, e.Info)
	case e.Info != "":
		return fmt.Sprintf("edit of %q on %s rejected: result %s: %s", e.Title, e.Endpoint, e.Result, e.Info)
	default:
		return fmt.Sprintf("edit of %q on %s rejected: result %s", e.Title, e.Endpoint, e.Result)
	}
}

func (e *EditError) Unwrap() error {
	return shared.ErrEditRejected
}

// SessionExpired reports whether the rejection means the session is no longer valid.
func (e *EditError) SessionExpired() bool {
	return sessionErrorCodes[e.Code]
}

var sessionErrorCodes = map[string]bool{
	"badtoken":         true,
	"notloggedin":      true,
	"assertuserfailed": true,
	"assertbotfailed":  true,
}

// IsSessionError reports whether err signals that a cached session must be discarded.
func IsSessionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, shared.ErrAuthFailed) || errors.Is(err, shared.ErrNotAuthenticated) {
		return true
	}

	var editErr *EditError
	if errors.As(err, &editErr) {
		return editErr.SessionExpired()
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return sessionErrorCodes[apiErr.Code]
	}
	return false
}
