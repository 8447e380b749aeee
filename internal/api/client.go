// Package api is the typed client for the marketplace backend. The
// transport attaches credentials from the live session before every call,
// classifies failures, and recovers 401s through a single-flight token
// refresh shared by all concurrent requests.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bazario-admin/internal/domain"
	"bazario-admin/internal/observability"
	"bazario-admin/internal/session"
	"bazario-admin/internal/storage"

	"golang.org/x/sync/singleflight"
)

type authFlowKey struct{}

// WithAuthFlow marks ctx as part of an authentication flow. A failed
// refresh during such a flow does not clear the session or surface a
// session-expired alert, which would loop the caller back into sign-in.
func WithAuthFlow(ctx context.Context) context.Context {
	return context.WithValue(ctx, authFlowKey{}, true)
}

func inAuthFlow(ctx context.Context) bool {
	v, _ := ctx.Value(authFlowKey{}).(bool)
	return v
}

// Client is the backend transport plus its typed resource groups.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	uploadHTTP *http.Client
	session    *session.Store
	state      storage.Store
	alerts     Alerter
	refresh    singleflight.Group

	// onSessionExpired runs after an unrecoverable 401 cleared the session.
	onSessionExpired func()

	Auth          *AuthAPI
	Notifications *NotificationsAPI
	Messages      *MessagesAPI
	Tenders       *TendersAPI
	Sales         *SalesAPI
	Identities    *IdentitiesAPI
	Categories    *CategoriesAPI
	Reviews       *ReviewsAPI
	Terms         *TermsAPI
}

// Options configures a Client.
type Options struct {
	BaseURL          string
	APIKey           string
	RequestTimeout   time.Duration
	UploadTimeout    time.Duration
	Alerter          Alerter
	OnSessionExpired func()

	// State holds multi-step flow flags (staged uploads, submission
	// markers). Defaults to an in-memory store.
	State storage.Store
}

// NewClient creates a backend client bound to the given session store.
func NewClient(opts Options, sess *session.Store) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 120 * time.Second
	}
	if opts.Alerter == nil {
		opts.Alerter = NopAlerter{}
	}
	if opts.State == nil {
		opts.State = storage.NewMemoryStore()
	}

	c := &Client{
		baseURL:          strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:           opts.APIKey,
		httpClient:       &http.Client{Timeout: opts.RequestTimeout},
		uploadHTTP:       &http.Client{Timeout: opts.UploadTimeout},
		session:          sess,
		state:            opts.State,
		alerts:           opts.Alerter,
		onSessionExpired: opts.OnSessionExpired,
	}

	c.Auth = &AuthAPI{c: c}
	c.Notifications = &NotificationsAPI{c: c}
	c.Messages = &MessagesAPI{c: c}
	c.Tenders = &TendersAPI{c: c}
	c.Sales = &SalesAPI{c: c}
	c.Identities = &IdentitiesAPI{c: c}
	c.Categories = &CategoriesAPI{c: c}
	c.Reviews = &ReviewsAPI{c: c}
	c.Terms = &TermsAPI{c: c}

	return c
}

// Get issues a GET request and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}
	return c.execute(ctx, method, path, "application/json", payload, out, c.httpClient)
}

// execute runs one request through the interceptor pair: credential
// attachment on the way out, classification and 401 recovery on the way
// back. The body is kept as bytes so a refreshed request can be replayed.
func (c *Client) execute(ctx context.Context, method, path, contentType string, payload []byte, out any, httpc *http.Client) error {
	public := IsPublic(method, path, c.baseURL)
	group := pathGroup(path)
	start := time.Now()

	resp, err := c.send(ctx, method, path, contentType, payload, httpc, public, "")
	if err != nil {
		return c.classifyTransport(err, group, public)
	}

	if resp.StatusCode == http.StatusUnauthorized && !public {
		resp.Body.Close()

		token, refreshErr := c.refreshTokens(ctx)
		if refreshErr != nil {
			return refreshErr
		}

		// Replay the original request once with the refreshed token.
		resp, err = c.send(ctx, method, path, contentType, payload, httpc, public, token)
		if err != nil {
			return c.classifyTransport(err, group, public)
		}
	}

	defer resp.Body.Close()
	c.observe(method, group, resp.StatusCode)
	observability.APIRequestDuration.WithLabelValues(method, group, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode >= http.StatusBadRequest {
		return c.classifyStatus(resp, group)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// send builds and executes a single attempt. Headers are resolved from the
// live session at call time, never from a snapshot. overrideToken forces a
// specific bearer token on the 401 replay.
func (c *Client) send(ctx context.Context, method, path, contentType string, payload []byte, httpc *http.Client, public bool, overrideToken string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-access-key", c.apiKey)
	}

	current := c.session.Current()
	if lang := current.Language(); lang != "" {
		req.Header.Set("Accept-Language", lang)
	}
	if !public {
		token := overrideToken
		if token == "" {
			token = current.Tokens.AccessToken
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	return httpc.Do(req)
}

// refreshTokens serializes concurrent refresh attempts: however many
// requests hit a 401 in the same window, the refresh endpoint is called
// once and every waiter observes the same outcome.
func (c *Client) refreshTokens(ctx context.Context) (string, error) {
	result, err, shared := c.refresh.Do("refresh", func() (any, error) {
		refreshToken := c.session.RefreshToken()
		if refreshToken == "" {
			return nil, domain.ErrNoSession
		}

		tokens, err := c.Auth.Refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		if err := c.session.SetTokens(tokens); err != nil {
			slog.Warn("failed to persist refreshed tokens", slog.String("error", err.Error()))
		}
		return tokens.AccessToken, nil
	})
	if shared {
		observability.TokenRefreshWaiters.Observe(1)
	}

	if err != nil {
		observability.TokenRefreshTotal.WithLabelValues("failure").Inc()
		if !inAuthFlow(ctx) {
			if clearErr := c.session.Clear(); clearErr != nil {
				slog.Warn("failed to clear session", slog.String("error", clearErr.Error()))
			}
			c.alerts.Alert(AlertWarn, "Your session has expired, please sign in again")
			if c.onSessionExpired != nil {
				c.onSessionExpired()
			}
			return "", ErrSessionExpired
		}
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	observability.TokenRefreshTotal.WithLabelValues("success").Inc()
	return result.(string), nil
}

// classifyTransport handles failures below HTTP: timeouts are logged only,
// connection errors surface an alert except on public routes where
// anonymous noise is expected.
func (c *Client) classifyTransport(err error, group string, public bool) error {
	c.observe("", group, 0)

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		slog.Warn("request timed out", slog.String("group", group))
		return fmt.Errorf("request timed out: %w", err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	if !public {
		c.alerts.Alert(AlertError, "Network error, please check your connection")
	}
	return fmt.Errorf("network error: %w", err)
}

// classifyStatus converts an HTTP error status into *Error and decides
// whether it reaches the user. 404 on the terms group is an expected empty
// state, not an error worth surfacing.
func (c *Client) classifyStatus(resp *http.Response, group string) error {
	apiErr := &Error{Status: resp.StatusCode, Group: group}

	var serverErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(&serverErr); decodeErr == nil {
		if serverErr.Message != "" {
			apiErr.Message = serverErr.Message
		} else {
			apiErr.Message = serverErr.Error
		}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// 401 belongs to the refresh/sign-out flow, never the toast class;
		// on public routes it surfaces through the caller's form instead
	case resp.StatusCode == http.StatusNotFound && group == "terms":
		// expected-absence: terms may simply not be published yet
	case resp.StatusCode >= http.StatusInternalServerError:
		c.alerts.Alert(AlertError, "Something went wrong, please try again later")
	default:
		message := apiErr.Message
		if message == "" {
			message = "Request failed"
		}
		c.alerts.Alert(AlertError, message)
	}

	return apiErr
}

func (c *Client) observe(method, group string, status int) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "network_error"
	}
	observability.APIRequestsTotal.WithLabelValues(method, group, label).Inc()
}

// pathGroup extracts the leading resource group from a request path.
func pathGroup(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(trimmed, '/'); i > 0 {
		trimmed = trimmed[:i]
	}
	if i := strings.IndexByte(trimmed, '?'); i > 0 {
		trimmed = trimmed[:i]
	}
	return trimmed
}
