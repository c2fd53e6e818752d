// Package appclient is the HTTP client for the sandbox application running
// inside a worktree: readiness probing, project registration and runtime
// identification.
package appclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultProbeTimeout is the per-call timeout for readiness and runtime
// probes. Probes are polled, so individual calls stay short.
const DefaultProbeTimeout = 2500 * time.Millisecond

// Template is one application template, as reported by the app.
type Template struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// RuntimeInfo identifies the launch the application believes it belongs to.
type RuntimeInfo struct {
	Token string `json:"runtimeToken"`
}

// Project is the application's record of a registered project.
type Project struct {
	ID string `json:"id"`
}

// registerRequest is the body of POST /api/projects/from-template.
type registerRequest struct {
	TemplateSlug string `json:"templateSlug"`
	ProjectID    string `json:"projectId"`
	RootPath     string `json:"rootPath,omitempty"`
}

// Client talks to one sandbox application instance on a host port.
type Client struct {
	base string
	http *http.Client
}

// New creates a Client for the application published on the given host port.
func New(port int, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultProbeTimeout
	}
	return &Client{
		base: fmt.Sprintf("http://127.0.0.1:%d", port),
		http: &http.Client{Timeout: timeout},
	}
}

// NewForBase creates a Client for an explicit base URL. Used by tests.
func NewForBase(base string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = DefaultProbeTimeout
	}
	return &Client{base: base, http: &http.Client{Timeout: timeout}}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, bytes.TrimSpace(body))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Ready probes the application readiness endpoint.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(ctx, "/health/ready", nil)
}

// Templates lists the application's available templates.
func (c *Client) Templates(ctx context.Context) ([]Template, error) {
	var templates []Template
	if err := c.get(ctx, "/api/templates", &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// RuntimeInfo returns the runtime token the application was started with.
func (c *Client) RuntimeInfo(ctx context.Context) (RuntimeInfo, error) {
	var info RuntimeInfo
	if err := c.get(ctx, "/api/runtime", &info); err != nil {
		return RuntimeInfo{}, err
	}
	return info, nil
}

// RegisterProject registers a project identity with the application. It
// verifies the template exists first, then confirms the application echoed
// back the identity it was given; a mismatch means the app registered a
// different project and is fatal for the caller.
func (c *Client) RegisterProject(ctx context.Context, templateSlug, projectID, rootPath string) error {
	templates, err := c.Templates(ctx)
	if err != nil {
		return fmt.Errorf("list templates: %w", err)
	}

	found := false
	for _, t := range templates {
		if t.Slug == templateSlug {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("template %q does not exist in sandbox application", templateSlug)
	}

	body, err := json.Marshal(registerRequest{
		TemplateSlug: templateSlug,
		ProjectID:    projectID,
		RootPath:     rootPath,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/projects/from-template", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("register project: status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var project Project
	if err := json.NewDecoder(resp.Body).Decode(&project); err != nil {
		return fmt.Errorf("decode register response: %w", err)
	}
	if project.ID != projectID {
		return fmt.Errorf("sandbox application registered project %q, expected %q", project.ID, projectID)
	}

	return nil
}
