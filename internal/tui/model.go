package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/hive-chat/internal/chatclient"
	"github.com/hay-kot/hive-chat/internal/core/chat"
	"github.com/hay-kot/hive-chat/internal/styles"
)

// maxLines bounds the scrollback kept in memory.
const maxLines = 1000

// eventsMsg carries events delivered by the session's poll loop.
type eventsMsg []chat.Event

// eventsClosedMsg is sent once the events channel is closed.
type eventsClosedMsg struct{}

// actionResultMsg is the outcome of an interactive command.
type actionResultMsg struct {
	out string
	err error
}

// PerformFunc runs an interactive action. chatclient.Perform satisfies it
// once bound to a client and renderer.
type PerformFunc func(ctx context.Context, a chatclient.Action) (string, error)

// Model is the Bubble Tea model for a chat session.
type Model struct {
	username string
	perform  PerformFunc
	events   <-chan []chat.Event
	keys     keyMap

	viewport viewport.Model
	input    textinput.Model
	lines    []string
	pending  int
	ready    bool
	quitting bool
	width    int
}

// New creates a chat model. welcome is shown as the first entry.
func New(username string, perform PerformFunc, events <-chan []chat.Event, welcome string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type a message, --a for active users, --ai <query>, --exit"
	ti.Prompt = styles.PromptStyle.Render("> ")
	ti.CharLimit = 2000
	ti.Focus()

	m := Model{
		username: username,
		perform:  perform,
		events:   events,
		keys:     defaultKeyMap(),
		input:    ti,
	}
	if welcome != "" {
		m.lines = append(m.lines, welcome)
	}
	return m
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForEvents(m.events))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Send):
			return m.submit()
		case key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case eventsMsg:
		for _, ev := range msg {
			m = m.appendLine(chatclient.FormatEvent(ev))
		}
		return m, waitForEvents(m.events)

	case eventsClosedMsg:
		return m, nil

	case actionResultMsg:
		m.pending--
		switch {
		case msg.err != nil:
			m = m.appendLine(styles.ErrorStyle.Render("[client error] " + msg.err.Error()))
		case msg.out != "":
			m = m.appendLine(msg.out)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	action := chatclient.ParseInput(m.input.Value())
	m.input.Reset()

	switch action.Kind {
	case chatclient.ActionNone:
		return m, nil
	case chatclient.ActionExit:
		m.quitting = true
		return m, tea.Quit
	case chatclient.ActionAI:
		if action.Text != "" {
			m = m.appendLine(styles.StatusStyle.Render("Sending query to AI, please wait..."))
		}
	}

	m.pending++
	perform := m.perform
	return m, func() tea.Msg {
		out, err := perform(context.Background(), action)
		return actionResultMsg{out: out, err: err}
	}
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	height := max(msg.Height-3, 1)

	if !m.ready {
		m.viewport = viewport.New(msg.Width, height)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = height
	}
	m.input.Width = max(msg.Width-4, 10)

	m.refresh()
	return m
}

func (m Model) appendLine(line string) Model {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLines {
		m.lines = m.lines[len(m.lines)-maxLines:]
	}
	m.refresh()
	return m
}

func (m *Model) refresh() {
	if !m.ready {
		return
	}
	content := strings.Join(m.lines, "\n")
	if m.width > 0 {
		content = lipgloss.NewStyle().Width(m.width).Render(content)
	}
	m.viewport.SetContent(content)
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "connecting..."
	}

	status := m.username + " " + iconDot + " " + m.keys.help()
	if m.pending > 0 {
		status = m.username + " " + iconDot + " working..."
	}

	divider := styles.DividerStyle.Render(strings.Repeat("─", max(m.width, 1)))
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		divider,
		m.input.View(),
		styles.StatusStyle.Render(status),
	)
}

// waitForEvents blocks on the session's events channel.
func waitForEvents(ch <-chan []chat.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		events, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return eventsMsg(events)
	}
}

const iconDot = "•"

func joinDot(parts []string) string {
	return strings.Join(parts, " "+iconDot+" ")
}
