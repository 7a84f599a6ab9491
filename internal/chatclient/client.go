// Package chatclient talks to a chat server: single commands, polling, and
// the long-lived session that keeps a user present.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/hay-kot/hive-chat/internal/core/chat"
	"github.com/hay-kot/hive-chat/internal/core/config"
)

// LastSeenHeader carries the poll cursor.
const LastSeenHeader = "X-Last-Seen-Timestamp"

// maxReasonBytes bounds how much of an error body is kept.
const maxReasonBytes = 512

// Client issues requests for a single user. It is safe for concurrent use.
type Client struct {
	baseURL  string
	username string
	timeouts config.ClientConfig
	http     *http.Client
}

// New creates a Client for username against the server at baseURL.
func New(baseURL, username string, timeouts config.ClientConfig) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		timeouts: timeouts,
		http:     &http.Client{},
	}
}

// Username returns the user this client acts for.
func (c *Client) Username() string {
	return c.username
}

// Login registers the user and returns the rendered welcome.
func (c *Client) Login(ctx context.Context) (string, error) {
	return c.commandText(ctx, chat.Request{Command: chat.CommandLogin})
}

// Heartbeat refreshes the user's presence.
func (c *Client) Heartbeat(ctx context.Context) error {
	_, err := c.commandStatus(ctx, chat.Request{Command: chat.CommandHeartbeat})
	return err
}

// Send posts a chat message.
func (c *Client) Send(ctx context.Context, text string) error {
	_, err := c.commandStatus(ctx, chat.Request{Command: chat.CommandMsg, Text: text})
	return err
}

// Active returns the rendered active-user list.
func (c *Client) Active(ctx context.Context) (string, error) {
	return c.commandText(ctx, chat.Request{Command: chat.CommandQueryActive})
}

// Logout removes the user's presence.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.commandStatus(ctx, chat.Request{Command: chat.CommandLogout})
	return err
}

// Poll returns the events newer than cursor, oldest first.
func (c *Client) Poll(ctx context.Context, cursor float64) ([]chat.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.PollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/chat", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(LastSeenHeader, chat.FormatTimestamp(cursor))

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var events []chat.Event
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return events, nil
}

// AskAI forwards query to the AI pass-through endpoint and returns the raw answer.
func (c *Client) AskAI(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.AITimeout)
	defer cancel()

	payload, err := json.Marshal(chat.Request{Username: c.username, Query: query})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) commandText(ctx context.Context, r chat.Request) (string, error) {
	body, err := c.command(ctx, r)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) commandStatus(ctx context.Context, r chat.Request) (string, error) {
	body, err := c.command(ctx, r)
	if err != nil {
		return "", err
	}

	var resp chat.StatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	return resp.Status, nil
}

func (c *Client) command(ctx context.Context, r chat.Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.CommandTimeout)
	defer cancel()

	r.Username = c.username
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.Command, err)
	}
	return body, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetworkFailure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := strings.TrimSpace(string(body))
		if len(reason) > maxReasonBytes {
			reason = reason[:maxReasonBytes]
		}
		return nil, &StatusError{Code: resp.StatusCode, Reason: reason}
	}
	return body, nil
}
