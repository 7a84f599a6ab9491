package chat

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the dispatcher.
var (
	ErrMalformedRequest = errors.New("malformed request")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrAlreadyTaken     = errors.New("username already taken")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// storeErr marks err as a store failure while keeping the cause inspectable.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
