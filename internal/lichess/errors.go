package lichess

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by the client and the session layers. The client
// never retries on its own; callers decide what a failure class means for
// the session.
var (
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidRequest    = errors.New("invalid request")
	ErrIllegalMove       = errors.New("illegal move")
	ErrStreamInterrupted = errors.New("stream interrupted")
	ErrTimeout           = errors.New("matchmaking timed out")
	ErrCancelled         = errors.New("cancelled")
)

// APIError carries the remote status code and a truncated response body for
// diagnostics. It wraps the matching sentinel so errors.Is keeps working.
type APIError struct {
	Status int
	Body   string
	reason error
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("lichess api: status=%d body=%s", e.Status, e.Body)
	}
	return fmt.Sprintf("lichess api: status=%d", e.Status)
}

func (e *APIError) Unwrap() error { return e.reason }

func newAPIError(status int, body []byte, reason error) *APIError {
	return &APIError{Status: status, Body: truncate(string(body), 512), reason: reason}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
