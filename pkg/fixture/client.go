package fixture

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Client issues requests against the system under test. It is not safe for
// concurrent use by multiple scenarios; create one per scenario with
// Fixture.NewClient.
type Client struct {
	base       *url.URL
	httpClient *http.Client
	headers    http.Header
	limiter    *rate.Limiter
	logger     *slog.Logger
	observer   RequestObserver
}

func newClient(base *url.URL, o options) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		base: base,
		httpClient: &http.Client{
			Timeout: o.timeout,
			Jar:     jar,
		},
		headers:  o.headers.Clone(),
		logger:   o.logger,
		observer: o.observer,
	}
}

// SetHeader sets a header on every subsequent request of this client only.
func (c *Client) SetHeader(key, value string) {
	c.headers.Set(key, value)
}

// Get issues GET path.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues POST path with body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put issues PUT path with body encoded as JSON.
func (c *Client) Put(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete issues DELETE path.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil)
}

// Do sends one request. A nil body sends no payload; []byte, json.RawMessage
// and string bodies are sent verbatim; anything else is JSON encoded.
// Transport failures are wrapped in ErrTransport and never retried.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	if c.base == nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, ErrNotStarted)
	}

	target, err := c.resolve(path)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: encoding body: %w", method, path, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
		}
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	elapsed := time.Since(started)
	if err != nil {
		c.observe(method, 0, elapsed)
		c.logger.Debug("request failed", "method", method, "path", path, "err", err)
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(method, 0, elapsed)
		return nil, fmt.Errorf("%s %s: reading body: %w: %w", method, path, ErrTransport, err)
	}

	c.observe(method, resp.StatusCode, elapsed)
	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "duration", elapsed)

	return &Response{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

func (c *Client) observe(method string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(method, status, d)
	}
}

// resolve joins path onto the base URL, keeping any base path prefix.
func (c *Client) resolve(path string) (*url.URL, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	if ref.IsAbs() {
		return ref, nil
	}
	joined := *c.base
	joined.Path = strings.TrimSuffix(c.base.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	joined.RawQuery = ref.RawQuery
	return &joined, nil
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		return json.Marshal(b)
	}
}
