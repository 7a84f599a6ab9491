package randid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	id := Generate(12)
	assert.Len(t, id, 12)
	assert.Empty(t, strings.Trim(id, chars))
}

func TestName(t *testing.T) {
	name := Name("observer", 6)
	assert.True(t, strings.HasPrefix(name, "observer-"))
	assert.Len(t, name, len("observer-")+6)

	assert.Len(t, Name("", 4), 4)
}
