package chatclient

import "strings"

// ActionKind classifies a line typed by the user.
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionSend
	ActionActive
	ActionAI
	ActionExit
)

// Action is a parsed input line.
type Action struct {
	Kind ActionKind
	// Text is the message for ActionSend and the query for ActionAI.
	Text string
}

// ParseInput maps an input line to an action. Flags are case-insensitive;
// anything that is not a flag is sent as a message verbatim.
func ParseInput(line string) Action {
	trimmed := strings.TrimSpace(line)
	lower := strings.ToLower(trimmed)

	switch {
	case trimmed == "":
		return Action{Kind: ActionNone}
	case lower == "--active" || lower == "--a":
		return Action{Kind: ActionActive}
	case lower == "--exit" || lower == "quit":
		return Action{Kind: ActionExit}
	case lower == "--ai":
		return Action{Kind: ActionAI}
	case strings.HasPrefix(lower, "--ai "):
		return Action{Kind: ActionAI, Text: strings.TrimSpace(trimmed[len("--ai "):])}
	default:
		return Action{Kind: ActionSend, Text: line}
	}
}
