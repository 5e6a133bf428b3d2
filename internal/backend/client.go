// Package backend talks to the OpenChad text-generation service: it builds
// outbound chat requests, ingests the streamed response, and probes backend
// health.
package backend

import "net/http"

// Client is an HTTP client for the backend API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL (e.g.
// "http://localhost:5000/api"). The underlying HTTP client has no timeout;
// streamed responses stay open for as long as the model generates and are
// torn down via context cancellation.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
