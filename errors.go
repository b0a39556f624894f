package credora

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by Send when no session is open.
	ErrNotConnected = errors.New("credora: notification channel is not connected")

	// ErrSessionClosed marks a session the peer closed normally.
	ErrSessionClosed = errors.New("credora: session closed by peer")

	ErrInvalidDecision = errors.New("credora: review decision must be APPROVED or REJECTED")
)

// APIError represents an error response from the Credora backend.
type APIError struct {
	StatusCode int    `json:"-"`
	Detail     string `json:"detail"`
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("credora: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("credora: HTTP %d: %s", e.StatusCode, e.Detail)
}
