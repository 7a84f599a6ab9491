package chatclient

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Renderer turns AI answers into terminal output.
type Renderer struct {
	tr *glamour.TermRenderer
}

// NewRenderer creates a Renderer. style is a glamour standard style name
// ("dark", "light", "notty", "auto"); width is the word-wrap column.
func NewRenderer(style string, width int) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, err
	}
	return &Renderer{tr: tr}, nil
}

// RenderAnswer renders an AI response body as markdown. JSON bodies with a
// "response" or "answer" string field are unwrapped first. On render
// failure the plain text is returned.
func (r *Renderer) RenderAnswer(body string) string {
	text := AnswerText(body)
	if r == nil || r.tr == nil {
		return text
	}

	out, err := r.tr.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// AnswerText extracts the answer from an AI response body.
func AnswerText(body string) string {
	var payload map[string]any
	if err := json.Unmarshal([]byte(body), &payload); err == nil {
		for _, key := range []string{"response", "answer"} {
			if s, ok := payload[key].(string); ok {
				return s
			}
		}
	}
	return strings.TrimSpace(body)
}
