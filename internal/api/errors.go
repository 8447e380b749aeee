package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired is returned when a 401 could not be recovered by a
	// token refresh and the session was cleared.
	ErrSessionExpired = errors.New("session expired")

	// ErrRefreshFailed is returned to requests queued behind a refresh
	// flight that resolved without a token.
	ErrRefreshFailed = errors.New("token refresh failed")
)

// Error is a backend-reported failure, classified for surfacing.
type Error struct {
	Status  int
	Message string
	Group   string // resource group, e.g. "tender", "notification"
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// IsStatus reports whether err is an *Error with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// IsNotFound reports whether err is a backend 404.
func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// Alerter surfaces user-facing notices. The browser console showed toasts;
// headless deployments log or forward them.
type Alerter interface {
	Alert(level, message string)
}

// Alert levels.
const (
	AlertWarn  = "warn"
	AlertError = "error"
)

// NopAlerter discards alerts.
type NopAlerter struct{}

func (NopAlerter) Alert(level, message string) {}
