// Package styles provides shared lipgloss styles for CLI and TUI components.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Tokyo Night color palette.
var (
	ColorGreen  = lipgloss.Color("#9ece6a")
	ColorYellow = lipgloss.Color("#e0af68")
	ColorBlue   = lipgloss.Color("#7aa2f7")
	ColorRed    = lipgloss.Color("#d75f6b")
	ColorGray   = lipgloss.Color("#565f89")
	ColorWhite  = lipgloss.Color("#c0caf5")
)

// AnnouncementStyle styles join and leave announcements.
var AnnouncementStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// MessageStyle styles user messages.
var MessageStyle = lipgloss.NewStyle().
	Foreground(ColorWhite)

// ErrorStyle styles inline client errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed)

// StatusStyle styles the status line of the TUI.
var StatusStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// PromptStyle styles the input prompt.
var PromptStyle = lipgloss.NewStyle().
	Foreground(ColorGreen).
	Bold(true)

// DividerStyle styles horizontal dividers.
var DividerStyle = lipgloss.NewStyle().
	Foreground(ColorGray)
