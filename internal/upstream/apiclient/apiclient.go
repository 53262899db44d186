// Package apiclient implements the single-shot HTTP/JSON client shared by
// every HTTP-backed enrichment handler (geolocation, certificate
// transparency, package registries, games, media APIs — spec §4.3.2).
//
// Grounded on the teacher's use of a plain *http.Client in
// internal/registrydata and its RetryAfter/rate-limit handling idiom;
// generalized here into a standalone GET-and-decode helper with API-key
// gating instead of a single RDAP-shaped client.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"whoisd/internal/whoiserr"
)

// BrowserUserAgent is the fixed, realistic browser-style user agent used
// for endpoints that reject generic HTTP client agents (spec §4.3.2).
const BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

// AuthMode selects how an API key is attached to outgoing requests.
type AuthMode int

const (
	AuthNone AuthMode = iota
	AuthBearer
	AuthAPIKeyHeader
)

// Client is a single-shot GET+JSON-decode client for one upstream
// endpoint family.
type Client struct {
	// Name identifies the feature this client serves (e.g. "steam",
	// "crt.sh"), used in FeatureDisabled/UpstreamUnavailable messages.
	Name string

	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string

	Auth      AuthMode
	APIKeyEnv string
	KeyHeader string // header name for AuthAPIKeyHeader, e.g. "X-Api-Key"
}

// New returns a Client with the given per-request timeout; zero uses
// a 15s default, the midpoint of spec §4.3.2's "10-20s depending on
// endpoint family".
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		Timeout:    timeout,
		UserAgent:  BrowserUserAgent,
	}
}

// Enabled reports whether this client's feature should be offered: an
// API-key-gated client is enabled only when its environment variable is
// set to a non-empty value. Clients with AuthNone are always enabled.
func (c *Client) Enabled() bool {
	if c.Auth == AuthNone {
		return true
	}
	return os.Getenv(c.APIKeyEnv) != ""
}

func (c *Client) featureName() string {
	if c.Name != "" {
		return c.Name
	}
	return "upstream"
}

// GetJSON performs a single GET against url and decodes the JSON response
// body into dst, which should be a pointer to a projection struct that
// ignores unknown fields (the default json.Unmarshal behavior).
func (c *Client) GetJSON(ctx context.Context, url string, dst any) error {
	if !c.Enabled() {
		return whoiserr.Disabled(c.featureName(), c.APIKeyEnv)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return whoiserr.Wrap(whoiserr.Internal, "building request", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	switch c.Auth {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+os.Getenv(c.APIKeyEnv))
	case AuthAPIKeyHeader:
		header := c.KeyHeader
		if header == "" {
			header = "X-Api-Key"
		}
		req.Header.Set(header, os.Getenv(c.APIKeyEnv))
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return whoiserr.TimeoutErr(url)
		}
		return whoiserr.Upstream(url, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return whoiserr.Upstream(url, "reading response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return whoiserr.Upstream(url, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return whoiserr.Malformed(url, "decoding JSON response", err)
	}
	return nil
}

// GetText performs a single GET and returns the raw response body,
// e.g. for endpoints serving a flat registry file (spec §4.7's PEN
// download) rather than JSON.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	if !c.Enabled() {
		return "", whoiserr.Disabled(c.featureName(), c.APIKeyEnv)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", whoiserr.Wrap(whoiserr.Internal, "building request", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", whoiserr.TimeoutErr(url)
		}
		return "", whoiserr.Upstream(url, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", whoiserr.Upstream(url, "reading response body", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", whoiserr.Upstream(url, fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return string(body), nil
}
