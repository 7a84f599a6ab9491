package chatclient

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hay-kot/hive-chat/internal/core/chat"
	"github.com/hay-kot/hive-chat/internal/styles"
)

// ErrEmptyQuery is returned for "--ai" without a question.
var ErrEmptyQuery = errors.New("usage: --ai <query>")

// Perform runs an interactive action and returns what should be shown to the
// user, if anything. ActionExit and ActionNone do nothing.
func Perform(ctx context.Context, c *Client, r *Renderer, a Action) (string, error) {
	switch a.Kind {
	case ActionSend:
		return "", c.Send(ctx, a.Text)
	case ActionActive:
		return c.Active(ctx)
	case ActionAI:
		if a.Text == "" {
			return "", ErrEmptyQuery
		}
		answer, err := c.AskAI(ctx, a.Text)
		if err != nil {
			return "", fmt.Errorf("ai: %w", err)
		}
		return r.RenderAnswer(answer), nil
	default:
		return "", nil
	}
}

// FormatEvent styles a log event for display.
func FormatEvent(ev chat.Event) string {
	if strings.HasPrefix(ev.Text, "***") {
		return styles.AnnouncementStyle.Render(ev.Text)
	}
	return styles.MessageStyle.Render(ev.Text)
}

// REPL is the line-oriented interactive client.
type REPL struct {
	in       io.Reader
	out      io.Writer
	renderer *Renderer
	mu       sync.Mutex
}

// NewREPL creates a REPL reading commands from in and writing to out.
func NewREPL(in io.Reader, out io.Writer, renderer *Renderer) *REPL {
	return &REPL{in: in, out: out, renderer: renderer}
}

// Deliver prints events from the poll loop. It is safe to call concurrently
// with Run.
func (r *REPL) Deliver(events []chat.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range events {
		_, _ = fmt.Fprintf(r.out, "\n%s\n> ", FormatEvent(ev))
	}
}

// Println writes a line to the output.
func (r *REPL) Println(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.out, s)
}

// Run reads lines until exit, end of input, or ctx is done, then stops the
// session.
func (r *REPL) Run(ctx context.Context, s *Session) error {
	defer s.Stop(context.Background())

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	r.prompt()
	for {
		var line string
		select {
		case <-ctx.Done():
			r.Println("\nDisconnecting...")
			return nil
		case l, ok := <-lines:
			if !ok {
				r.Println("\nDisconnecting...")
				return nil
			}
			line = l
		}

		action := ParseInput(line)
		if action.Kind == ActionExit {
			r.Println("Disconnecting...")
			return nil
		}
		if action.Kind == ActionAI && action.Text != "" {
			r.Println("Sending query to AI, please wait...")
		}

		out, err := Perform(ctx, s.Client(), r.renderer, action)
		switch {
		case err != nil:
			r.Println(styles.ErrorStyle.Render("[client error] " + err.Error()))
		case out != "":
			r.Println("\n" + out)
		}
		r.prompt()
	}
}

func (r *REPL) prompt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprint(r.out, "> ")
}
