package transporthttp

import (
	"errors"
	"net/http"

	"github.com/hay-kot/hive-chat/internal/core/chat"
)

// statusFor maps a command error to an HTTP status and a short reason.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrMalformedRequest), errors.Is(err, chat.ErrUnknownCommand):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, chat.ErrAlreadyTaken):
		return http.StatusConflict, "Username already taken"
	case errors.Is(err, chat.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "KV store not available"
	default:
		return http.StatusInternalServerError, "Server Error: " + err.Error()
	}
}

// writeError writes a plain-text error reason.
func writeError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(reason))
}
