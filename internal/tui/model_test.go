package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/hive-chat/internal/chatclient"
	"github.com/hay-kot/hive-chat/internal/core/chat"
)

type recorder struct {
	actions []chatclient.Action
	out     string
	err     error
}

func (r *recorder) perform(_ context.Context, a chatclient.Action) (string, error) {
	r.actions = append(r.actions, a)
	return r.out, r.err
}

func newTestModel(t *testing.T, rec *recorder) Model {
	t.Helper()
	m := New("alice", rec.perform, nil, "Welcome, alice!")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model)
}

func typeLine(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(line)})
	updated, cmd := updated.(Model).Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

func TestModel_ViewShowsWelcome(t *testing.T) {
	m := newTestModel(t, &recorder{})
	assert.Contains(t, m.View(), "Welcome, alice!")
	assert.Contains(t, m.View(), "alice")
}

func TestModel_NotReadyBeforeResize(t *testing.T) {
	m := New("alice", nil, nil, "")
	assert.Equal(t, "connecting...", m.View())
}

func TestModel_EventsAppend(t *testing.T) {
	m := newTestModel(t, &recorder{})

	updated, _ := m.Update(eventsMsg{
		{Text: "*** bob has joined the chat ***", Timestamp: 1},
		{Text: "[bob]: hi", Timestamp: 2},
	})
	m = updated.(Model)

	view := m.View()
	assert.Contains(t, view, "bob has joined the chat")
	assert.Contains(t, view, "[bob]: hi")
}

func TestModel_SendMessage(t *testing.T) {
	rec := &recorder{}
	m := newTestModel(t, rec)

	m, cmd := typeLine(t, m, "hello world")
	require.NotNil(t, cmd)

	msg := cmd()
	require.IsType(t, actionResultMsg{}, msg)
	require.Len(t, rec.actions, 1)
	assert.Equal(t, chatclient.Action{Kind: chatclient.ActionSend, Text: "hello world"}, rec.actions[0])

	updated, _ := m.Update(msg)
	m = updated.(Model)
	assert.Zero(t, m.pending)
}

func TestModel_ActionErrorIsInline(t *testing.T) {
	rec := &recorder{err: errors.New("server returned 503: KV store not available")}
	m := newTestModel(t, rec)

	m, cmd := typeLine(t, m, "--a")
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	assert.False(t, m.Quitting())
	assert.Contains(t, m.View(), "KV store not available")
}

func TestModel_Exit(t *testing.T) {
	for _, line := range []string{"--exit", "quit"} {
		t.Run(line, func(t *testing.T) {
			rec := &recorder{}
			m := newTestModel(t, rec)

			m, cmd := typeLine(t, m, line)
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.True(t, m.Quitting())
			assert.Empty(t, rec.actions)
		})
	}
}

func TestModel_EmptyLineDoesNothing(t *testing.T) {
	rec := &recorder{}
	m := newTestModel(t, rec)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, rec.actions)
}

func TestModel_ScrollbackBounded(t *testing.T) {
	m := newTestModel(t, &recorder{})
	for i := range maxLines + 10 {
		m = m.appendLine(chat.MessageText("bob", string(rune('a'+i%26))))
	}
	assert.Len(t, m.lines, maxLines)
}

func TestFeed(t *testing.T) {
	f := NewFeed(1)
	f.Deliver([]chat.Event{{Text: "a"}})

	got := <-f.Events()
	assert.Equal(t, "a", got[0].Text)

	f.Deliver([]chat.Event{{Text: "b"}})
	f.Close()

	done := make(chan struct{})
	go func() {
		f.Deliver([]chat.Event{{Text: "c"}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked after Close")
	}
}

func TestWaitForEvents(t *testing.T) {
	ch := make(chan []chat.Event, 1)
	ch <- []chat.Event{{Text: "x"}}

	msg := waitForEvents(ch)()
	assert.Equal(t, eventsMsg{{Text: "x"}}, msg)

	close(ch)
	assert.Equal(t, eventsClosedMsg{}, waitForEvents(ch)())
	assert.Nil(t, waitForEvents(nil))
}
