// Package client provides a Go client for the AuditFlow REST API.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// API paths
const (
	APIBasePath         = "/api/v1"
	APIPathHealth       = "/health"
	APIPathAuthLogin    = "/auth/login"
	APIPathAuthRegister = "/auth/register"
	APIPathAuthRefresh  = "/auth/refresh"
	APIPathAuthLogout   = "/auth/logout"
	APIPathUserMe       = "/user/me"
	APIPathProjects     = "/projects"
	APIPathScans        = "/scans"
	APIPathFindings     = "/findings"
	APIPathReports      = "/reports"
)

// Common errors
var (
	ErrNotFound         = fmt.Errorf("resource not found")
	ErrUnauthorized     = fmt.Errorf("unauthorized")
	ErrForbidden        = fmt.Errorf("forbidden")
	ErrBadRequest       = fmt.Errorf("bad request")
	ErrConflict         = fmt.Errorf("conflict")
	ErrServerError      = fmt.Errorf("server error")
	ErrTimeout          = fmt.Errorf("request timeout")
	ErrConnectionFailed = fmt.Errorf("connection failed")
)

// ClientOption represents a functional option for configuring the client
type ClientOption func(*ClientConfig) error

// ClientConfig represents the configuration for the client
type ClientConfig struct {
	BaseURL               string
	Timeout               time.Duration
	MaxRetries            int
	RetryDelay            time.Duration
	UserAgent             string
	AccessToken           string
	RefreshToken          string
	HTTPClient            *http.Client
	Headers               map[string]string
	AutoRefresh           bool
	TLSInsecureSkipVerify bool
}

// DefaultClientConfig returns the default client configuration
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:     "http://localhost:8080",
		Timeout:     time.Second * 30,
		MaxRetries:  3,
		RetryDelay:  time.Second * 1,
		UserAgent:   "AuditFlowClient/1.0",
		Headers:     make(map[string]string),
		AutoRefresh: true,
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(config *ClientConfig) error {
		if baseURL == "" {
			return fmt.Errorf("base URL cannot be empty")
		}
		if _, err := url.Parse(baseURL); err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		config.BaseURL = baseURL
		return nil
	}
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
		config.Timeout = timeout
		return nil
	}
}

// WithRetryOptions sets the retry options
func WithRetryOptions(maxRetries int, retryDelay time.Duration) ClientOption {
	return func(config *ClientConfig) error {
		if maxRetries < 0 {
			return fmt.Errorf("max retries must be non-negative")
		}
		if retryDelay < 0 {
			return fmt.Errorf("retry delay must be non-negative")
		}
		config.MaxRetries = maxRetries
		config.RetryDelay = retryDelay
		return nil
	}
}

// WithUserAgent sets the user agent
func WithUserAgent(userAgent string) ClientOption {
	return func(config *ClientConfig) error {
		if userAgent == "" {
			return fmt.Errorf("user agent cannot be empty")
		}
		config.UserAgent = userAgent
		return nil
	}
}

// WithAccessToken sets the initial access token
func WithAccessToken(token string) ClientOption {
	return func(config *ClientConfig) error {
		config.AccessToken = token
		return nil
	}
}

// WithRefreshToken sets the initial refresh token
func WithRefreshToken(token string) ClientOption {
	return func(config *ClientConfig) error {
		config.RefreshToken = token
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(config *ClientConfig) error {
		if client == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		config.HTTPClient = client
		return nil
	}
}

// WithHeader adds an HTTP header sent with every request
func WithHeader(key, value string) ClientOption {
	return func(config *ClientConfig) error {
		if key == "" {
			return fmt.Errorf("header key cannot be empty")
		}
		if config.Headers == nil {
			config.Headers = make(map[string]string)
		}
		config.Headers[key] = value
		return nil
	}
}

// WithAutoRefresh enables transparent token refresh on 401 responses
func WithAutoRefresh(autoRefresh bool) ClientOption {
	return func(config *ClientConfig) error {
		config.AutoRefresh = autoRefresh
		return nil
	}
}

// WithTLSInsecureSkipVerify disables TLS certificate verification
func WithTLSInsecureSkipVerify(skip bool) ClientOption {
	return func(config *ClientConfig) error {
		config.TLSInsecureSkipVerify = skip
		return nil
	}
}

// envelope is the standard API response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
	Meta    *Meta           `json:"meta"`
}

// apiError is the error payload inside a failed envelope
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

// Meta carries pagination metadata from list endpoints
type Meta struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	TotalPages int `json:"total_pages"`
	Total      int `json:"total"`
}

// APIClient is an HTTP client for the AuditFlow API
type APIClient struct {
	config       ClientConfig
	httpClient   *http.Client
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
	tokenLock    chan struct{}
	refreshing   bool
}

// NewClient creates a new API client
func NewClient(opts ...ClientOption) (*APIClient, error) {
	config := DefaultClientConfig()

	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, fmt.Errorf("option application failed: %w", err)
		}
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		transport := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: config.TLSInsecureSkipVerify},
		}
		httpClient = &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		}
	}

	client := &APIClient{
		config:       config,
		httpClient:   httpClient,
		accessToken:  config.AccessToken,
		refreshToken: config.RefreshToken,
		tokenLock:    make(chan struct{}, 1),
	}
	client.tokenLock <- struct{}{}

	return client, nil
}

// buildURL builds the full URL for a given path
func (c *APIClient) buildURL(path string) string {
	baseURL := strings.TrimSuffix(c.config.BaseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("%s%s%s", baseURL, APIBasePath, path)
}

// setAuthHeader sets the Authorization header for a request
func (c *APIClient) setAuthHeader(req *http.Request) {
	if c.accessToken != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))
	}
}

// newRequest creates a new HTTP request with the standard headers
func (c *APIClient) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	for key, value := range c.config.Headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

// statusError maps an HTTP status code to a sentinel error
func statusError(statusCode int) error {
	switch statusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusConflict:
		return ErrConflict
	default:
		return ErrServerError
	}
}

// handleResponse decodes the standard response envelope into out and
// returns pagination metadata when the endpoint provides it
func (c *APIClient) handleResponse(resp *http.Response, out interface{}) (*Meta, error) {
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", statusError(resp.StatusCode), readErr)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if resp.StatusCode == http.StatusNoContent || out == nil {
			return nil, nil
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err == nil && env.Success {
			if len(env.Data) == 0 || string(env.Data) == "null" {
				return env.Meta, nil
			}
			if err := json.Unmarshal(env.Data, out); err != nil {
				return nil, fmt.Errorf("failed to decode response data: %w", err)
			}
			return env.Meta, nil
		}

		// Health and other unwrapped endpoints return a raw body
		if err := json.Unmarshal(body, out); err != nil {
			return nil, fmt.Errorf("failed to decode response body: %w", err)
		}
		return nil, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != nil && env.Error.Message != "" {
		if env.Error.Code != "" {
			return nil, fmt.Errorf("%w: API error (%s): %s", statusError(resp.StatusCode), env.Error.Code, env.Error.Message)
		}
		return nil, fmt.Errorf("%w: %s", statusError(resp.StatusCode), env.Error.Message)
	}

	snippet := string(body)
	if len(snippet) > 100 {
		snippet = snippet[:100] + "..."
	}
	return nil, fmt.Errorf("%w (body: %s)", statusError(resp.StatusCode), snippet)
}

// Do sends an HTTP request, retrying transient failures and refreshing
// an expired access token once when auto refresh is enabled
func (c *APIClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" {
		c.setAuthHeader(req)
	}

	var resp *http.Response
	var err error

	for retry := 0; retry <= c.config.MaxRetries; retry++ {
		var reqBodyBytes []byte
		if req.Body != nil {
			reqBodyBytes, err = io.ReadAll(req.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read request body for retry: %w", err)
			}
			req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if urlErr, ok := err.(*url.Error); ok && urlErr.Timeout() {
				if retry < c.config.MaxRetries {
					time.Sleep(c.config.RetryDelay)
					if req.Body != nil {
						req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
					}
					continue
				}
				return nil, ErrTimeout
			}
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
		}

		if resp.StatusCode == http.StatusUnauthorized && c.config.AutoRefresh && c.refreshToken != "" && !c.refreshing {
			resp.Body.Close()
			if refreshErr := c.tryRefreshToken(ctx); refreshErr != nil {
				return nil, refreshErr
			}
			if req.Body != nil {
				req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
			}
			c.setAuthHeader(req)
			resp, err = c.httpClient.Do(req)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
			}
		}

		if resp.StatusCode >= 500 && resp.StatusCode < 600 && retry < c.config.MaxRetries {
			resp.Body.Close()
			time.Sleep(c.config.RetryDelay)
			if req.Body != nil {
				req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
			}
			continue
		}

		break
	}

	return resp, err
}

// doRequest makes a request and decodes the response envelope into out
func (c *APIClient) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.doListRequest(ctx, method, path, body, out)
	return err
}

// doListRequest is doRequest plus the pagination metadata
func (c *APIClient) doListRequest(ctx context.Context, method, path string, body, out interface{}) (*Meta, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, out)
}

// tryRefreshToken refreshes the access token using the refresh token
func (c *APIClient) tryRefreshToken(ctx context.Context) error {
	select {
	case <-c.tokenLock:
		defer func() { c.tokenLock <- struct{}{} }()
	case <-ctx.Done():
		return ctx.Err()
	}

	if !c.tokenNeedsRefresh() {
		return nil
	}

	c.refreshing = true
	defer func() { c.refreshing = false }()

	refreshReq := map[string]string{"refresh_token": c.refreshToken}
	var authResp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthRefresh, refreshReq, &authResp); err != nil {
		c.accessToken = ""
		c.refreshToken = ""
		c.tokenExpiry = time.Time{}
		return fmt.Errorf("token refresh failed: %w", err)
	}

	c.accessToken = authResp.AccessToken
	if authResp.RefreshToken != "" {
		c.refreshToken = authResp.RefreshToken
	}
	c.tokenExpiry = authResp.ExpiresAt

	return nil
}

// tokenNeedsRefresh checks if the access token is missing or expiring
func (c *APIClient) tokenNeedsRefresh() bool {
	return c.accessToken == "" || time.Now().After(c.tokenExpiry.Add(-10*time.Second))
}

// Health checks the API health
func (c *APIClient) Health(ctx context.Context) (map[string]interface{}, error) {
	var result map[string]interface{}
	err := c.doRequest(ctx, http.MethodGet, APIPathHealth, nil, &result)
	return result, err
}
