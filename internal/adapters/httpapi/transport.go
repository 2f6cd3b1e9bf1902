// Package httpapi implements ports.Transport over the Maxflow REST API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/maxflow-ai/maxflow-go/internal/ports"
)

const pulsesPath = "/v1/pulses"

// Config carries everything the transport needs to reach the API.
type Config struct {
	BaseURL   string
	AppID     string
	APIKey    string
	UserAgent string
	Timeout   time.Duration

	// RateLimit caps outbound requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// HTTPClient overrides the default client (connection pooling, proxies,
	// test doubles). Timeout is ignored when it is set.
	HTTPClient *http.Client
}

// APIError is a rejection from the remote service, as opposed to a transport
// failure reaching it.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("maxflow: api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("maxflow: api error %d: %s", e.Status, e.Message)
}

type Client struct {
	base    *url.URL
	httpc   *http.Client
	limiter *rate.Limiter
	appID   string
	apiKey  string
	ua      string
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("httpapi: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("httpapi: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("httpapi: unsupported scheme %q", base.Scheme)
	}

	httpc := cfg.HTTPClient
	if httpc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpc = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		base:    base,
		httpc:   httpc,
		limiter: limiter,
		appID:   cfg.AppID,
		apiKey:  cfg.APIKey,
		ua:      cfg.UserAgent,
	}, nil
}

func (c *Client) CreatePulse(ctx context.Context, payload any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, pulsesPath, "", payload)
}

// FindPulses embeds the already-encoded query as the single `o` parameter.
func (c *Client) FindPulses(ctx context.Context, query string) (json.RawMessage, error) {
	rawQuery := ""
	if query != "" {
		rawQuery = "o=" + query
	}
	return c.do(ctx, http.MethodGet, pulsesPath, rawQuery, nil)
}

func (c *Client) GetPulse(ctx context.Context, id string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, pulsesPath+"/"+id, "", nil)
}

func (c *Client) UpdatePulse(ctx context.Context, id string, payload any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, pulsesPath+"/"+id, "", payload)
}

func (c *Client) DeletePulse(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, pulsesPath+"/"+id, "", nil)
	return err
}

func (c *Client) Name() string { return "maxflow-http" }

func (c *Client) do(ctx context.Context, method, path, rawQuery string, body any) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("httpapi: encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = rawQuery

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, fmt.Errorf("httpapi: build request: %w", err)
	}
	req.Header.Set("X-Maxflow-App-Id", c.appID)
	req.Header.Set("X-Maxflow-Api-Key", c.apiKey)
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("Accept", "application/json")
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.ua != "" {
		req.Header.Set("User-Agent", c.ua)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpapi: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(raw, &envelope) == nil && envelope.Error != nil {
			envelope.Error.Status = resp.StatusCode
			apiErr = envelope.Error
		}
		return nil, apiErr
	}

	if len(raw) == 0 {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

var _ ports.Transport = (*Client)(nil)
