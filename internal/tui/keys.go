// Package tui implements the Bubble Tea chat client.
package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the chat view keybindings.
type keyMap struct {
	Quit     key.Binding
	Send     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
	}
}

func (k keyMap) help() string {
	parts := make([]string, 0, 4)
	for _, b := range []key.Binding{k.Send, k.PageUp, k.PageDown, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return joinDot(parts)
}
