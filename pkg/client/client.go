package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nithronos/secheaders/internal/posture"
	"nithronos/secheaders/pkg/httpx"
	"nithronos/secheaders/pkg/secheaders"
)

const apiPrefix = "/api/v1/security-headers"

// Client talks to the shd admin API.
type Client struct {
	baseURL string
	token   string
	HTTP    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("unexpected status: %d", e.Status)
	}
	return fmt.Sprintf("API error %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		apiErr := &APIError{Status: res.StatusCode}
		var env httpx.Envelope
		if json.Unmarshal(data, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return nil, nil, apiErr
	}
	return res, data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) (*http.Response, error) {
	res, data, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return res, json.Unmarshal(data, v)
}

func envPath(env secheaders.Environment, suffix string) string {
	return apiPrefix + "/" + url.PathEscape(string(env)) + suffix
}

func (c *Client) Health(ctx context.Context) error {
	var body map[string]any
	_, err := c.getJSON(ctx, "/api/health", &body)
	return err
}

func (c *Client) Defaults(ctx context.Context, env secheaders.Environment) (secheaders.Config, error) {
	var cfg secheaders.Config
	_, err := c.getJSON(ctx, apiPrefix+"/defaults/"+url.PathEscape(string(env)), &cfg)
	return cfg, err
}

// GetConfig returns the active config for env. fromDefaults reports that the
// server had nothing stored (or could not read its store) and answered with
// defaults.
func (c *Client) GetConfig(ctx context.Context, env secheaders.Environment) (cfg secheaders.Config, fromDefaults bool, err error) {
	res, err := c.getJSON(ctx, envPath(env, ""), &cfg)
	if err != nil {
		return secheaders.Config{}, false, err
	}
	return cfg, res.Header.Get("X-Config-Source") == "defaults", nil
}

func (c *Client) PutConfig(ctx context.Context, cfg secheaders.Config) (secheaders.Config, error) {
	_, data, err := c.do(ctx, http.MethodPut, envPath(cfg.Environment, ""), cfg)
	if err != nil {
		return secheaders.Config{}, err
	}
	var saved secheaders.Config
	return saved, json.Unmarshal(data, &saved)
}

func (c *Client) Headers(ctx context.Context, env secheaders.Environment) (secheaders.GeneratedHeaders, error) {
	var g secheaders.GeneratedHeaders
	_, err := c.getJSON(ctx, envPath(env, "/headers"), &g)
	return g, err
}

func (c *Client) Validate(ctx context.Context, env secheaders.Environment) (secheaders.ValidationResult, error) {
	var v secheaders.ValidationResult
	_, err := c.getJSON(ctx, envPath(env, "/validate"), &v)
	return v, err
}

func (c *Client) Stats(ctx context.Context, env secheaders.Environment) (secheaders.Stats, error) {
	var s secheaders.Stats
	_, err := c.getJSON(ctx, envPath(env, "/stats"), &s)
	return s, err
}

func (c *Client) Export(ctx context.Context, env secheaders.Environment, f secheaders.Format) ([]byte, error) {
	_, data, err := c.do(ctx, http.MethodGet, envPath(env, "/export?format="+url.QueryEscape(string(f))), nil)
	return data, err
}

func (c *Client) Posture(ctx context.Context) ([]posture.Report, error) {
	var body struct {
		Reports []posture.Report `json:"reports"`
	}
	_, err := c.getJSON(ctx, apiPrefix+"/posture", &body)
	return body.Reports, err
}

// Repository adapts a Client to secheaders.Repository so a local Service can
// read and write through a remote daemon.
type Repository struct {
	c *Client
}

var _ secheaders.Repository = (*Repository)(nil)

func NewRepository(c *Client) *Repository { return &Repository{c: c} }

// Get maps a defaults answer from the server to ErrNotFound.
func (r *Repository) Get(ctx context.Context, env secheaders.Environment) (secheaders.Config, error) {
	cfg, fromDefaults, err := r.c.GetConfig(ctx, env)
	if err != nil {
		return secheaders.Config{}, err
	}
	if fromDefaults {
		return secheaders.Config{}, secheaders.ErrNotFound
	}
	return cfg, nil
}

func (r *Repository) Put(ctx context.Context, cfg secheaders.Config) (secheaders.Config, error) {
	return r.c.PutConfig(ctx, cfg)
}
