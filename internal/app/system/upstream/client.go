// internal/app/system/upstream/client.go
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
)

// maxErrorBody bounds how much of a failed response body is kept in StatusError.
const maxErrorBody = 512

// StatusError is returned when the upstream answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// OAuthConfig holds client-credentials settings. It is used when ClientID,
// ClientSecret and TokenURL are all set.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

func (c OAuthConfig) enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.TokenURL != ""
}

// Config configures a Client.
type Config struct {
	Timeout    time.Duration // per request; zero means no client-side limit beyond ctx
	Token      string        // static bearer token; ignored when OAuth is enabled
	OAuth      OAuthConfig
	HTTPClient *http.Client // base transport; defaults to http.DefaultClient
}

// Client fetches JSON payloads from the upstream API.
type Client struct {
	http    *http.Client
	token   string
	timeout time.Duration
	logger  *zap.Logger
}

// New creates a Client. The context is only used to build the OAuth token source.
func New(ctx context.Context, cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}

	c := &Client{http: base, token: cfg.Token, timeout: cfg.Timeout, logger: logger}
	if cfg.OAuth.enabled() {
		cc := &clientcredentials.Config{
			ClientID:     cfg.OAuth.ClientID,
			ClientSecret: cfg.OAuth.ClientSecret,
			TokenURL:     cfg.OAuth.TokenURL,
			Scopes:       cfg.OAuth.Scopes,
		}
		c.http = cc.Client(withHTTPClient(ctx, base))
		c.token = ""
	}
	return c
}

// GetJSON issues GET url and decodes the body. Numbers are kept as
// json.Number so large identifiers survive.
func (c *Client) GetJSON(ctx context.Context, url string) (any, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}

	c.logger.Debug("upstream fetch complete",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode))
	return payload, nil
}

// Source returns a sources.Source-compatible fetcher bound to url.
func (c *Client) Source(url string) *Endpoint {
	return &Endpoint{client: c, url: url}
}

// Endpoint is one upstream URL.
type Endpoint struct {
	client *Client
	url    string
}

// Fetch implements sources.Source.
func (e *Endpoint) Fetch(ctx context.Context) (any, error) {
	return e.client.GetJSON(ctx, e.url)
}

// URL returns the endpoint address.
func (e *Endpoint) URL() string { return e.url }
