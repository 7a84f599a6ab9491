package doctor

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// ServerCheck checks a running server's health endpoints.
type ServerCheck struct {
	baseURL string
	client  *http.Client
}

// NewServerCheck creates a check against the server at baseURL.
func NewServerCheck(baseURL string) *ServerCheck {
	return &ServerCheck{baseURL: strings.TrimRight(baseURL, "/"), client: &http.Client{}}
}

func (c *ServerCheck) Name() string {
	return "Server"
}

func (c *ServerCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	for _, ep := range []struct{ label, path string }{
		{"Liveness", "/healthz"},
		{"Readiness", "/readyz"},
	} {
		if err := c.get(ctx, ep.path); err != nil {
			result.Items = append(result.Items, fail(ep.label, err))
			continue
		}
		result.Items = append(result.Items, pass(ep.label, c.baseURL+ep.path))
	}

	return result
}

func (c *ServerCheck) get(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
