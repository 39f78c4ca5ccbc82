package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNoBaseURL is returned before any request is attempted when the
// client was built without a server address.
var ErrNoBaseURL = errors.New("api base url not configured")

// NetworkError wraps transport failures where no HTTP response arrived.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// APIError carries a server-side rejection. Message comes from the
// response envelope when present, otherwise from the status text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client is the console's API surface. Endpoint groups share one
// authenticated transport.
type Client struct {
	http *resty.Client

	mu                sync.Mutex
	token             string
	unauthorizedFired bool
	onUnauthorized    func()

	Auth        *AuthService
	Strategies  *StrategyService
	Futures     *FuturesService
	Dual        *DualService
	Withdrawals *WithdrawalService
	General     *GeneralService
}

func New(baseURL string) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second),
	}
	c.Auth = &AuthService{c: c}
	c.Strategies = &StrategyService{c: c}
	c.Futures = &FuturesService{c: c}
	c.Dual = &DualService{c: c}
	c.Withdrawals = &WithdrawalService{c: c}
	c.General = &GeneralService{c: c}
	return c
}

// SetToken installs a bearer token and re-arms the unauthorized hook.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.unauthorizedFired = false
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// OnUnauthorized registers a hook fired when the server invalidates the
// session. The hook runs at most once per token; concurrent 401s from
// in-flight requests collapse into a single call.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *Client) invalidateSession() {
	c.mu.Lock()
	fire := !c.unauthorizedFired
	c.unauthorizedFired = true
	c.token = ""
	hook := c.onUnauthorized
	c.mu.Unlock()

	if fire && hook != nil {
		hook()
	}
}

// envelope mirrors the server's response shape; the pagination fields
// are only present on list endpoints.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (*envelope, error) {
	if c.http.BaseURL == "" {
		return nil, ErrNoBaseURL
	}

	req := c.http.R().SetContext(ctx)
	if token := c.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	var env envelope
	if decodeErr := json.Unmarshal(resp.Body(), &env); decodeErr != nil && resp.IsSuccess() {
		return nil, fmt.Errorf("error decoding response: %w", decodeErr)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		if resp.StatusCode() == http.StatusUnauthorized {
			c.invalidateSession()
		}
		message := env.Message
		if message == "" {
			message = http.StatusText(resp.StatusCode())
		}
		return nil, &APIError{StatusCode: resp.StatusCode(), Message: message}
	}

	return &env, nil
}

// get decodes the envelope's data field into out (out may be nil).
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	env, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

// getPage decodes a paginated list response.
func (c *Client) getPage(ctx context.Context, path string, query url.Values, out interface{}) (int64, error) {
	env, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return 0, err
	}
	return env.Total, decodeData(env, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	env, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

func (c *Client) put(ctx context.Context, path string, body, out interface{}) error {
	env, err := c.do(ctx, http.MethodPut, path, nil, body)
	if err != nil {
		return err
	}
	return decodeData(env, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

func decodeData(env *envelope, out interface{}) error {
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("error decoding response data: %w", err)
	}
	return nil
}

func pageQuery(page, limit int) url.Values {
	query := url.Values{}
	if page > 0 {
		query.Set("page", fmt.Sprintf("%d", page))
	}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	return query
}
