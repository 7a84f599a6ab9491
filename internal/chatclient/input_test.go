package chatclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInput(t *testing.T) {
	tests := []struct {
		line string
		want Action
	}{
		{"", Action{Kind: ActionNone}},
		{"   ", Action{Kind: ActionNone}},
		{"--active", Action{Kind: ActionActive}},
		{"--A", Action{Kind: ActionActive}},
		{"--exit", Action{Kind: ActionExit}},
		{"QUIT", Action{Kind: ActionExit}},
		{"--ai", Action{Kind: ActionAI}},
		{"--ai   What is Go?  ", Action{Kind: ActionAI, Text: "What is Go?"}},
		{"--AI Hello", Action{Kind: ActionAI, Text: "Hello"}},
		{"hello there", Action{Kind: ActionSend, Text: "hello there"}},
		{"--aim high", Action{Kind: ActionSend, Text: "--aim high"}},
		{"quitting time", Action{Kind: ActionSend, Text: "quitting time"}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInput(tt.line))
		})
	}
}

func TestAnswerText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"plain", "  just text \n", "just text"},
		{"response field", `{"response":"**bold**"}`, "**bold**"},
		{"answer field", `{"answer":"yes"}`, "yes"},
		{"other json", `{"result":1}`, `{"result":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AnswerText(tt.body))
		})
	}
}

func TestRenderer_RenderAnswer(t *testing.T) {
	r, err := NewRenderer("notty", 80)
	require.NoError(t, err)

	out := r.RenderAnswer(`{"response":"# Title\n\nSome *text*."}`)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "text")

	var nilRenderer *Renderer
	assert.Equal(t, "plain", nilRenderer.RenderAnswer("plain"))
}
