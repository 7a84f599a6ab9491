package printer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
)

func TestPrinter_NoColorForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	p.Successf("stored %d messages", 3)
	p.Section("Store")
	p.FailItem("Ping", "connection refused")
	p.KeyValue("store", "redis://localhost:6379/0")

	out := buf.String()
	assert.NotContains(t, out, "\033[")
	assert.Contains(t, out, Check+" stored 3 messages\n")
	assert.Contains(t, out, "Store\n")
	assert.Contains(t, out, "  "+Cross+" Ping: connection refused\n")
	assert.Contains(t, out, "  store: redis://localhost:6379/0\n")
}

func TestPrinter_FatalError(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).FatalError(errors.New("KV store not available"))

	assert.Equal(t, "╭ Error\n│ KV store not available\n╵\n", buf.String())
}

func TestPrinter_FatalErrorFieldErrors(t *testing.T) {
	var buf bytes.Buffer
	fieldErrs := criterio.FieldErrors{
		{Field: "chat.max_messages", Err: errors.New("must be positive")},
	}

	New(&buf).FatalError(fmt.Errorf("load config: %w", fieldErrs))

	out := buf.String()
	assert.Contains(t, out, "╭ Validation Error")
	assert.Contains(t, out, "load config")
	assert.Contains(t, out, Cross+" chat.max_messages: must be positive")
}

func TestPrinter_FatalErrorNil(t *testing.T) {
	var buf bytes.Buffer
	New(&buf).FatalError(nil)
	assert.Empty(t, buf.String())
}

func TestCtx(t *testing.T) {
	var buf bytes.Buffer
	p := New(&buf)

	assert.Same(t, p, Ctx(NewContext(context.Background(), p)))
	assert.NotNil(t, Ctx(context.Background()))
}
