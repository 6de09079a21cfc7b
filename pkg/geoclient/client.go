// Package geoclient is a minimal hand-written HTTP client for the
// monitor API (internal/monitor). The teacher generated this package's
// client.go on demand via a `gen-client` CLI subcommand built on
// github.com/danielgtaylor/humaclient; that subcommand called a
// srv.GenerateClient method no teacher package actually defines, and
// humaclient has no other usage anywhere in the retrieved examples to
// ground an implementation against, so generation was dropped (see
// DESIGN.md) in favor of this small net/http-based client, committed
// directly rather than generated.
package geoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client talks to a monitor.Server's JSON API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a Client against baseURL (e.g. "http://localhost:8086").
func New(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

// HealthBody is /healthz's response body.
type HealthBody struct {
	Status string `json:"status"`
}

// JobSummary mirrors monitor's jobSummary wire shape.
type JobSummary struct {
	ID        string    `json:"id"`
	Process   string    `json:"process"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Error     string    `json:"error,omitempty"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("geoclient: encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("geoclient: building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("geoclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("geoclient: %s %s: unexpected status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Health calls GET /healthz.
func (c *Client) Health(ctx context.Context) (HealthBody, error) {
	var out HealthBody
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &out)
	return out, err
}

// ListJobs calls GET /api/v1/jobs.
func (c *Client) ListJobs(ctx context.Context) ([]JobSummary, error) {
	var out struct {
		Jobs []JobSummary `json:"jobs"`
	}
	err := c.do(ctx, http.MethodGet, "/api/v1/jobs", nil, &out)
	return out.Jobs, err
}

// SubmitJob calls POST /api/v1/jobs with a config path, returning the
// newly created job.
func (c *Client) SubmitJob(ctx context.Context, configPath string) (JobSummary, error) {
	var out JobSummary
	body := struct {
		ConfigPath string `json:"config_path"`
	}{ConfigPath: configPath}
	err := c.do(ctx, http.MethodPost, "/api/v1/jobs", body, &out)
	return out, err
}

// GetJob calls GET /api/v1/jobs/{id}.
func (c *Client) GetJob(ctx context.Context, id string) (JobSummary, error) {
	var out JobSummary
	err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+id, nil, &out)
	return out, err
}

// CancelJob calls POST /api/v1/jobs/{id}/cancel.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	var out struct {
		Cancelled bool `json:"cancelled"`
	}
	return c.do(ctx, http.MethodPost, "/api/v1/jobs/"+id+"/cancel", nil, &out)
}
