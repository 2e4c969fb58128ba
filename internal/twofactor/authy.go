package twofactor

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
	"time"
)

const (
	DefaultAuthyBaseURL = "https://api.authy.com"

	authyUserNotFound = "60026"
	authyTokenInvalid = "60020"
)

// AuthyClient talks to the Authy REST API.
type AuthyClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type AuthyConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// HTTPClient overrides the default client; its own Timeout still applies.
	HTTPClient *http.Client
}

func NewAuthyClient(cfg AuthyConfig) *AuthyClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAuthyBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &AuthyClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    client,
	}
}

// flexBool accepts both true and "true"; the verify endpoint returns a string.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		*b = flexBool(strings.EqualFold(t, "true"))
	default:
		*b = false
	}
	return nil
}

type authyResponse struct {
	Success   flexBool `json:"success"`
	Message   string   `json:"message"`
	ErrorCode string   `json:"error_code"`
	Cellphone string   `json:"cellphone"`
	Token     string   `json:"token"`
	User      struct {
		ID json.Number `json:"id"`
	} `json:"user"`
}

// APIError is a non-success answer from Authy.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authy: status %d code %s: %s", e.Status, e.Code, e.Message)
}

func (c *AuthyClient) RegisterUser(ctx context.Context, reg Registration) (string, error) {
	form := url.Values{}
	form.Set("user[email]", reg.Email)
	form.Set("user[cellphone]", reg.Cellphone)
	form.Set("user[country_code]", strconv.Itoa(reg.CountryCode))

	resp, err := c.do(ctx, http.MethodPost, "/protected/json/users/new", form)
	if err != nil {
		return "", fmt.Errorf("register user: %w", err)
	}
	id := resp.User.ID.String()
	if id == "" {
		return "", fmt.Errorf("register user: response carried no user id")
	}
	return id, nil
}

func (c *AuthyClient) RequestSMS(ctx context.Context, authyID string) (string, error) {
	path := "/protected/json/sms/" + url.PathEscape(authyID) + "?force=true"
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("request sms: %w", err)
	}
	return resp.Cellphone, nil
}

// VerifyToken returns true only for an HTTP 200 carrying success=true.
// A rejected code is (false, nil); anything else is an error.
func (c *AuthyClient) VerifyToken(ctx context.Context, authyID, code string) (bool, error) {
	path := "/protected/json/verify/" + url.PathEscape(code) + "/" + url.PathEscape(authyID)
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Code == authyTokenInvalid {
			return false, nil
		}
		return false, fmt.Errorf("verify token: %w", err)
	}
	return bool(resp.Success), nil
}

func (c *AuthyClient) DeleteUser(ctx context.Context, authyID string) error {
	path := "/protected/json/users/" + url.PathEscape(authyID) + "/remove"
	if _, err := c.do(ctx, http.MethodPost, path, url.Values{}); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (c *AuthyClient) do(ctx context.Context, method, path string, form url.Values) (*authyResponse, error) {
	var body io.Reader
	if form != nil {
		body = bytes.NewBufferString(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-Authy-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var parsed authyResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &APIError{Status: res.StatusCode, Message: "malformed response"}
	}

	if res.StatusCode != http.StatusOK || !bool(parsed.Success) {
		apiErr := &APIError{Status: res.StatusCode, Code: parsed.ErrorCode, Message: parsed.Message}
		if res.StatusCode == http.StatusNotFound || parsed.ErrorCode == authyUserNotFound {
			return nil, fmt.Errorf("%w: %s", ErrUnknownUser, apiErr.Error())
		}
		return nil, apiErr
	}
	return &parsed, nil
}

var _ Provider = (*AuthyClient)(nil)
