// Package jira is a minimal Jira REST client for issue summaries.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Issue is the part of a Jira issue the changelog needs.
type Issue struct {
	Key     string
	Summary string
	Link    string
}

// Client fetches issues from a Jira server.
type Client struct {
	server   string
	username string
	password string
	http     *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth sets the credentials sent with every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		c.username = username
		c.password = password
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient returns a client for server, e.g. "https://jira.example.com".
func NewClient(server string, opts ...Option) *Client {
	c := &Client{
		server: strings.TrimRight(server, "/"),
		http:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type issueResponse struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

// Issue returns the issue with the given key, or nil when the server does
// not know it.
func (c *Client) Issue(ctx context.Context, key string) (*Issue, error) {
	endpoint := fmt.Sprintf("%s/rest/api/2/issue/%s?fields=parent,summary", c.server, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("jira request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jira get %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("jira get %s: %s: %s", key, resp.Status, strings.TrimSpace(string(body)))
	}

	var raw issueResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse jira issue %s: %w", key, err)
	}
	if raw.Key == "" {
		raw.Key = key
	}
	return &Issue{
		Key:     raw.Key,
		Summary: raw.Fields.Summary,
		Link:    c.server + "/browse/" + raw.Key,
	}, nil
}
