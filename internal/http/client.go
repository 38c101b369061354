package http

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "savemyexam-downloader"

// Client wraps HTTP operations with the downloader's configuration.
//
// Client provides:
//   - Configured User-Agent header
//   - Optional cookie jar for authenticated sessions
//   - Status code mapping to TransferError (429 → RateLimited)
//
// Example usage:
//
//	client := NewClient(WithTimeout(30 * time.Second))
//
//	// Fetch HTML content
//	html, err := client.GetString(ctx, "https://www.savemyexams.com/members")
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the overall request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithCookieJar attaches a cookie jar, used to keep a login session.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) { c.httpClient.Jar = jar }
}

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

// NewClient creates a new HTTP client.
//
// The client is configured with:
//   - no overall timeout (transfers may be long; use contexts)
//   - "savemyexam-downloader" User-Agent header
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends req with the configured User-Agent.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransferError{Kind: NetworkError, URL: req.URL.String(), Err: err}
	}
	return resp, nil
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns a *TransferError if:
//   - The request fails (NetworkError)
//   - The response status is 429 (RateLimited)
//   - The response status is not 200 OK (NetworkError)
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransferError{Kind: NetworkError, URL: rawURL, Err: err}
	}
	return body, nil
}

// GetString performs a GET request and returns the response body as a string.
func (c *Client) GetString(ctx context.Context, rawURL string) (string, error) {
	body, err := c.Get(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// PostForm submits form values and returns the response.
//
// The caller must close the response body. Redirects are followed and any
// cookies set along the way land in the client's jar.
func (c *Client) PostForm(ctx context.Context, rawURL string, values url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.Do(req)
}

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
