package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maintrack/maintrack/pkg/types"
)

const defaultTimeout = 10 * time.Second

// Options configures a Client.
type Options struct {
	// Server is the base URL of maintrack-server, e.g. http://localhost:8080.
	Server string

	// APIKey is sent in Header on every request when non-empty.
	APIKey string

	// Header names the API key header. Defaults to x-api-key.
	Header string

	// Insecure skips TLS certificate verification.
	Insecure bool

	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client is a maintrack-server HTTP client. It is safe for concurrent use.
type Client struct {
	base *url.URL
	http *http.Client
}

// authRoundTripper injects the API key header into every outgoing request.
type authRoundTripper struct {
	base   http.RoundTripper
	header string
	key    string
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.key != "" {
		req = req.Clone(req.Context())
		req.Header.Set(t.header, t.key)
	}
	return t.base.RoundTrip(req)
}

// New validates opts and builds a Client.
func New(opts Options) (*Client, error) {
	if opts.Server == "" {
		return nil, errors.New("client: server url is required")
	}
	base, err := url.Parse(strings.TrimSuffix(opts.Server, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse server url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: server url %q must use http or https", opts.Server)
	}

	header := opts.Header
	if header == "" {
		header = "x-api-key"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	transport := &authRoundTripper{
		base: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.Insecure}, //nolint:gosec // user-configured
		},
		header: header,
		key:    opts.APIKey,
	}
	return &Client{
		base: base,
		http: &http.Client{Transport: transport, Timeout: timeout},
	}, nil
}

// Tables returns the cached table summary from GET /api/v1/tables.
func (c *Client) Tables(ctx context.Context) (types.TablesResponse, error) {
	var out types.TablesResponse
	err := c.getJSON(ctx, "/api/v1/tables", &out)
	return out, err
}

// View returns the rendered view of table from GET /api/v1/data/{table}.
func (c *Client) View(ctx context.Context, table string) (types.View, error) {
	var out types.View
	err := c.getJSON(ctx, "/api/v1/data/"+url.PathEscape(table), &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.get(ctx, path, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}

// get issues a GET for path and returns the response when the status is 2xx.
// Any other status is turned into an *APIError and the body is closed.
func (c *Client) get(ctx context.Context, path, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.String()+path, nil)
	if err != nil {
		return nil, fmt.Errorf("client: build request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", "maintrackctl")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: get %s: %w", path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		msg = e.Error
	}
	return nil, &APIError{Status: resp.StatusCode, Message: msg}
}
