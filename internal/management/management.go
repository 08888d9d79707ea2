// Package management reads project metadata from the Supabase Management API.
package management

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public Management API endpoint.
const DefaultBaseURL = "https://api.supabase.com/v1"

// DefaultTimeout bounds a whole request, including reading the body.
const DefaultTimeout = 15 * time.Second

// ProjectInfo is the subset of project fields shown at startup.
type ProjectInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Ref    string `json:"ref"`
	Region string `json:"region,omitempty"`
}

// Client fetches project metadata. The zero value is not usable; use New.
type Client struct {
	baseURL    string
	projectRef string
	key        string
	httpClient *http.Client
}

// New creates a Client. An empty baseURL means DefaultBaseURL.
func New(baseURL, projectRef, serviceRoleKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectRef: projectRef,
		key:        serviceRoleKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Configured reports whether both the project ref and the key are set.
func (c *Client) Configured() bool {
	return c.projectRef != "" && c.key != ""
}

// ProjectInfo returns the project's metadata. It returns nil, nil when the
// client is not configured or the API answers with a non-200 status. Only
// transport and decoding failures are errors.
func (c *Client) ProjectInfo(ctx context.Context) (*ProjectInfo, error) {
	if !c.Configured() {
		return nil, nil
	}

	url := fmt.Sprintf("%s/projects/%s", c.baseURL, c.projectRef)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("management: failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("management: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var info ProjectInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("management: failed to decode project: %w", err)
	}
	if info.Ref == "" {
		info.Ref = c.projectRef
	}
	return &info, nil
}
