// Package ofapi issues signed HTTP requests against the remote API.
//
// Every outgoing call obtains the current dynamic rules, derives a fresh
// signed header set and applies the shared cookie jar. Re-authentication
// swaps the whole auth state atomically: a request that started under the
// old state finishes under it.
package ofapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"

	"github.com/GentleMercenary/ofnotify/internal/observability"
	"github.com/GentleMercenary/ofnotify/internal/rules"
	"github.com/GentleMercenary/ofnotify/internal/sign"
)

const (
	DefaultBaseURL = "https://onlyfans.com"

	maxErrorBody = 8 << 10
)

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ofapi: %s %s: unexpected status %d", e.Method, e.URL, e.Status)
}

// authState binds one auth context to one transport view. Swapped as a
// unit so in-flight requests never mix old and new values.
type authState struct {
	auth AuthContext
	http *http.Client
}

type Client struct {
	rules     *rules.Cache
	base      *url.URL
	transport http.RoundTripper
	timeout   time.Duration

	mu    sync.RWMutex
	state *authState
}

type Option func(*Client)

func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			c.base = u
		}
	}
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewClient(rc *rules.Cache, auth AuthContext, opts ...Option) (*Client, error) {
	base, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		rules:   rc,
		base:    base,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.SetAuth(auth); err != nil {
		return nil, err
	}
	return c, nil
}

// SetAuth replaces the authentication context wholesale. The cookie jar is
// rebuilt and seeded from the raw cookie string.
func (c *Client) SetAuth(auth AuthContext) error {
	authID, pairs, err := ParseAuthCookie(auth.Cookie)
	if err != nil {
		return err
	}
	if strings.TrimSpace(auth.UserID) == "" {
		auth.UserID = authID
	}
	if err := auth.Validate(); err != nil {
		return err
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return fmt.Errorf("ofapi: build cookie jar: %w", err)
	}
	jar.SetCookies(cookieURL(c.base), pairs)

	state := &authState{
		auth: auth,
		http: &http.Client{
			Transport: c.transport,
			Jar:       jar,
			Timeout:   c.timeout,
		},
	}

	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
	return nil
}

func (c *Client) snapshot() *authState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Get issues a signed GET. The caller owns the response body.
func (c *Client) Get(ctx context.Context, rawurl string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, rawurl, nil, nil)
}

// GetJSON issues a signed GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawurl string, out any) error {
	resp, err := c.Get(ctx, rawurl)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ofapi: decode response: %w", err)
	}
	return nil
}

// GetIfModifiedSince issues a conditional GET. A 304 response is a distinct
// success: it returns (nil, false, nil) and the caller keeps its copy.
func (c *Client) GetIfModifiedSince(ctx context.Context, rawurl string, since time.Time) (*http.Response, bool, error) {
	resp, err := c.do(ctx, http.MethodGet, rawurl, nil, func(req *http.Request) {
		req.Header.Set("If-Modified-Since", since.UTC().Format(http.TimeFormat))
	})
	if err == nil {
		return resp, true, nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Status == http.StatusNotModified {
		return nil, false, nil
	}
	return nil, false, err
}

// Post issues a signed POST with a JSON body.
func (c *Client) Post(ctx context.Context, rawurl string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ofapi: encode body: %w", err)
	}
	return c.do(ctx, http.MethodPost, rawurl, data, nil)
}

// Put issues a signed PUT with a JSON body.
func (c *Client) Put(ctx context.Context, rawurl string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("ofapi: encode body: %w", err)
	}
	return c.do(ctx, http.MethodPut, rawurl, data, nil)
}

func (c *Client) do(ctx context.Context, method, rawurl string, body []byte, mutate func(*http.Request)) (*http.Response, error) {
	u, err := c.resolve(rawurl)
	if err != nil {
		return nil, err
	}

	r, err := c.rules.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("ofapi: rules: %w", err)
	}

	state := c.snapshot()
	headers, err := sign.Headers(r, sign.Identity{
		SubjectID: state.auth.UserID,
		ClientID:  state.auth.XBC,
		UserAgent: state.auth.UserAgent,
	}, u, time.Now())
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("ofapi: build request: %w", err)
	}
	headers.Apply(req.Header)
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}
	if mutate != nil {
		mutate(req)
	}

	start := time.Now()
	resp, err := state.http.Do(req)
	if err != nil {
		observability.RecordSignedRequest(method, 0, time.Since(start))
		return nil, fmt.Errorf("ofapi: %s %s: %w", method, u.Path, err)
	}
	observability.RecordSignedRequest(method, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusNotModified {
			log.Error().
				Str("method", method).
				Str("url", u.String()).
				Int("status", resp.StatusCode).
				Str("body", string(snippet)).
				Msg("ofapi: request failed")
		}
		return nil, &StatusError{Method: method, URL: u.String(), Status: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) resolve(rawurl string) (*url.URL, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("ofapi: parse url %q: %w", rawurl, err)
	}
	if u.Host == "" {
		u = c.base.ResolveReference(u)
	}
	return u, nil
}
