// Package validate provides shared validation functions.
package validate

import (
	"errors"
	"strings"
	"unicode"
)

// Username validates a chat username: a single non-empty token with no whitespace.
func Username(name string) error {
	if name == "" {
		return errors.New("username is required")
	}
	if strings.ContainsFunc(name, unicode.IsSpace) {
		return errors.New("username must be a single word")
	}
	return nil
}
