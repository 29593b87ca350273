// Package api is a small client for the storefront HTTP API. It keeps the
// bearer token of the last successful login in memory and stamps every call
// with an increasing requestId.
//
// Transport failures are reported as ErrUnavailable and 401 answers as
// ErrUnauthorized, both wrapped so the server's message is kept.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/storefront/internal/server/models"
	"github.com/tidwall/gjson"
)

// Client talks to one storefront server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	requestID atomic.Int64

	mu    sync.RWMutex
	token string
}

func New(baseURL string, timeout time.Duration) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout})
}

func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// RegisterRequest is the body of POST /user/register.
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Authorized *bool           `json:"authorized"`
	RequestID  int64           `json:"requestId"`
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) LoggedIn() bool {
	return c.Token() != ""
}

func (c *Client) Ping(ctx context.Context) (*models.Diagnostics, error) {
	var diag models.Diagnostics
	if _, err := c.do(ctx, http.MethodGet, "/test/ping", nil, false, &diag); err != nil {
		return nil, err
	}
	return &diag, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	var acct models.Account
	if _, err := c.do(ctx, http.MethodPost, "/user/register", req, false, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Login authenticates and remembers the returned token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (*models.Login, error) {
	body := map[string]string{"username": username, "password": password}

	var login models.Login
	if _, err := c.do(ctx, http.MethodPost, "/user/login", body, false, &login); err != nil {
		return nil, err
	}
	c.setToken(login.UserInfo.Token)
	return &login, nil
}

// WhoAmI verifies the current session, which also extends it.
func (c *Client) WhoAmI(ctx context.Context) (*models.Login, error) {
	if !c.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	var login models.Login
	if _, err := c.do(ctx, http.MethodGet, "/user/verifyUserSession", nil, true, &login); err != nil {
		c.forgetOnUnauthorized(err)
		return nil, err
	}
	return &login, nil
}

// Logout removes the server session and forgets the token. The token is
// forgotten even when the server call fails.
func (c *Client) Logout(ctx context.Context) (string, error) {
	if !c.LoggedIn() {
		return "", ErrNotLoggedIn
	}
	defer c.setToken("")

	env, err := c.do(ctx, http.MethodPost, "/user/logout", map[string]any{}, true, nil)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) forgetOnUnauthorized(err error) {
	if errors.Is(err, ErrUnauthorized) {
		c.setToken("")
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, auth bool, out any) (*envelope, error) {
	reqID := c.requestID.Add(1)

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}

	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		raw, err = withRequestID(raw, reqID)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(raw)
	} else {
		q := u.Query()
		q.Set("requestId", strconv.FormatInt(reqID, 10))
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), payload)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.Token())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return &env, nil
}

// withRequestID adds requestId to a JSON object body.
func withRequestID(raw []byte, reqID int64) ([]byte, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	m["requestId"] = reqID
	return json.Marshal(m)
}

func statusError(status int, raw []byte) error {
	se := &StatusError{
		Status:  status,
		Message: gjson.GetBytes(raw, "message").String(),
		Detail:  gjson.GetBytes(raw, "error.message").String(),
	}
	if se.Message == "" {
		se.Message = http.StatusText(status)
	}
	if status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", ErrUnauthorized, se)
	}
	return se
}
