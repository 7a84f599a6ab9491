package chatclient

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/hay-kot/hive-chat/internal/core/chat"
)

var (
	// ErrNetworkFailure wraps transport errors: refused connections, timeouts, resets.
	ErrNetworkFailure = errors.New("network failure")

	// ErrDecodeFailure is returned when a response body cannot be decoded.
	ErrDecodeFailure = errors.New("decode failure")
)

// StatusError is a non-2xx response from the server.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Reason)
}

// Unwrap maps well-known statuses back to the server's error kinds.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusConflict:
		return chat.ErrAlreadyTaken
	case http.StatusServiceUnavailable:
		return chat.ErrStoreUnavailable
	case http.StatusBadRequest:
		return chat.ErrMalformedRequest
	default:
		return nil
	}
}
