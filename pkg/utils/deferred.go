// Package utils holds small helpers shared by the CLI entrypoint.
package utils

import (
	"bytes"
	"io"
	"sync"
)

// DeferredWriter buffers writes until Flush. It is used to hold log output
// while a full-screen UI owns the terminal.
type DeferredWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *DeferredWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

// Flush writes everything buffered so far to out, one line per Write, and
// resets the buffer. Writing line by line keeps zerolog.ConsoleWriter, which
// decodes a single event per call, from dropping entries.
func (w *DeferredWriter) Flush(out io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.buf.Reset()

	for line := range bytes.Lines(w.buf.Bytes()) {
		if _, err := out.Write(line); err != nil {
			return err
		}
	}
	return nil
}
