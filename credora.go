// Package credora provides a Go client for the Credora loan-origination backend.
//
// It covers the real-time notification channel and the loan REST API:
// accounts, applications and admin review.
//
// Example:
//
//	client := credora.NewClient("", credora.WithBaseURL("http://localhost:8000"))
//	tok, _ := client.Login(ctx, "user@example.com", "secret")
//
//	// REST
//	apps, _ := client.MyApplications(ctx)
//
//	// Notifications
//	ch := client.NotificationChannel(nil)
//	unsubscribe := ch.Subscribe(credora.EventMessage, func(p any) { fmt.Println(p) })
//	defer unsubscribe()
//	ch.Connect(tok.AccessToken)
//	defer ch.Disconnect()
package credora

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// Client
// ============================================================================

const (
	DefaultBaseURL = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
)

type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// NewClient creates a new Credora client.
// token is optional; pass "" and call Login to obtain one.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		token:   token,
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken sets or replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	return c.token
}

// WSURL returns the notification endpoint derived from the base URL.
func (c *Client) WSURL() string {
	base := strings.Replace(c.baseURL, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/ws"
}

// NotificationChannel creates an idle notification channel for this backend.
// When config.Endpoint is empty it is derived from the base URL.
func (c *Client) NotificationChannel(config *ChannelConfig) *NotificationChannel {
	cfg := ChannelConfig{}
	if config != nil {
		cfg = *config
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = c.WSURL()
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &WebSocketDialer{HTTPClient: c.httpClient}
	}
	return NewNotificationChannel(&cfg)
}

// ============================================================================
// Internal request helper
// ============================================================================

func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// FastAPI reports validation failures with a list detail; keep the raw body then.
		if json.Unmarshal(data, apiErr) != nil {
			apiErr.Detail = strings.TrimSpace(string(data))
		}
		return nil, apiErr
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, path string) ([]byte, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil, "")
}

func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(data), "application/json")
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	return c.doRequest(ctx, http.MethodPost, path,
		strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func decodeJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &result, nil
}

// ============================================================================
// Auth API
// ============================================================================

// Login exchanges email and password for an access token and keeps the token
// on the client for later requests.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	data, err := c.postForm(ctx, "/api/auth/login", form)
	if err != nil {
		return nil, err
	}
	tok, err := decodeJSON[TokenResponse](data)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != "" {
		c.token = tok.AccessToken
	}
	return tok, nil
}

// Register creates a (non-admin) account. It does not sign in.
func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	data, err := c.postJSON(ctx, "/api/auth/register", req)
	if err != nil {
		return nil, err
	}
	return decodeJSON[RegisterResponse](data)
}

// ============================================================================
// Loan API
// ============================================================================

// SubmitApplication files a new loan application for the signed-in user. The
// backend fetches the CIBIL score when req.CibilScore is nil.
func (c *Client) SubmitApplication(ctx context.Context, req *ApplicationRequest) (*SubmitResponse, error) {
	data, err := c.postJSON(ctx, "/api/loan/apply", req)
	if err != nil {
		return nil, err
	}
	return decodeJSON[SubmitResponse](data)
}

// ApplicationStatus fetches one loan application.
func (c *Client) ApplicationStatus(ctx context.Context, applicationID int) (*LoanApplication, error) {
	data, err := c.getJSON(ctx, "/api/loan/status/"+strconv.Itoa(applicationID))
	if err != nil {
		return nil, err
	}
	return decodeJSON[LoanApplication](data)
}

// MyApplications lists the signed-in user's loan applications.
func (c *Client) MyApplications(ctx context.Context) ([]LoanApplication, error) {
	data, err := c.getJSON(ctx, "/api/loan/my-applications")
	if err != nil {
		return nil, err
	}
	apps, err := decodeJSON[[]LoanApplication](data)
	if err != nil {
		return nil, err
	}
	return *apps, nil
}

// ============================================================================
// Admin API
// ============================================================================

// AllApplications lists every user's applications. Requires an admin token.
func (c *Client) AllApplications(ctx context.Context) ([]LoanApplication, error) {
	data, err := c.getJSON(ctx, "/api/loan/admin/all-applications")
	if err != nil {
		return nil, err
	}
	apps, err := decodeJSON[[]LoanApplication](data)
	if err != nil {
		return nil, err
	}
	return *apps, nil
}

// ReviewApplication records the final decision, StatusApproved or
// StatusRejected, on an application. Requires an admin token.
func (c *Client) ReviewApplication(ctx context.Context, applicationID int, decision string) (*ReviewResponse, error) {
	if decision != StatusApproved && decision != StatusRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}
	form := url.Values{}
	form.Set("decision", decision)

	data, err := c.postForm(ctx, "/api/loan/review/"+strconv.Itoa(applicationID), form)
	if err != nil {
		return nil, err
	}
	return decodeJSON[ReviewResponse](data)
}

// ============================================================================
// System
// ============================================================================

// Health checks backend health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	data, err := c.getJSON(ctx, "/health")
	if err != nil {
		return nil, err
	}
	return decodeJSON[HealthStatus](data)
}
