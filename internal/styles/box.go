package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.NormalBorder()).
	Padding(0, 1)

// Box frames lines in a single-line border. A non-empty title is centered in a
// header row separated from the body. Box returns "" when there is nothing to show.
func Box(title string, lines ...string) string {
	if len(lines) == 0 && title == "" {
		return ""
	}

	width := 0
	for _, l := range lines {
		width = max(width, lipgloss.Width(l))
	}
	if title != "" {
		width = max(width, lipgloss.Width(title)+4)
	}

	style := boxStyle.Width(width + 2)
	if title == "" {
		return style.Render(strings.Join(lines, "\n"))
	}
	if len(lines) == 0 {
		return style.Align(lipgloss.Center).Render(title)
	}

	header := lipgloss.NormalBorder()
	header.BottomLeft = "├"
	header.BottomRight = "┤"

	top := style.Border(header).Align(lipgloss.Center).Render(title)
	rest := style.BorderTop(false).Render(strings.Join(lines, "\n"))

	return lipgloss.JoinVertical(lipgloss.Left, top, rest)
}

// Welcome renders the login greeting.
func Welcome(username string) string {
	return Box("", "Welcome, "+username+"!")
}

// ActiveUsers renders the active-user list.
func ActiveUsers(users []string) string {
	if len(users) == 0 {
		return Box("Active Users", "(nobody)")
	}
	return Box("Active Users", users...)
}
