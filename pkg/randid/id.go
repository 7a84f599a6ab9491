// Package randid provides random ID generation utilities.
package randid

import "math/rand/v2"

const chars = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate creates a random lowercase alphanumeric ID of the specified length.
func Generate(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = chars[rand.IntN(len(chars))]
	}
	return string(b)
}

// Name returns prefix joined to a random suffix, e.g. "observer-k3x9q2".
// The result never contains whitespace so it is always a valid username.
func Name(prefix string, length int) string {
	if prefix == "" {
		return Generate(length)
	}
	return prefix + "-" + Generate(length)
}
