// Package bakalari opens sessions against a school's Bakalari API. Only the
// password login exchange is implemented.
package bakalari

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// LoginPath is the token endpoint relative to the school server root.
	LoginPath = "/api/login"
	// DefaultClientID is the client identifier the official mobile app uses.
	DefaultClientID = "ANDR"
	DefaultTimeout  = 30 * time.Second
)

// Client performs the login exchange.
type Client struct {
	HTTP     *resty.Client
	ClientID string
	now      func() time.Time
}

// Session is an authenticated Bakalari session.
type Session struct {
	Server       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    time.Time
}

// tokenResponse is the OAuth token payload returned on success.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// errorResponse is the OAuth error payload returned on failure.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Error is returned when the server rejects the login.
type Error struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *Error) Error() string {
	switch {
	case e.Description != "":
		return fmt.Sprintf("login rejected (HTTP %d): %s", e.StatusCode, e.Description)
	case e.Code != "":
		return fmt.Sprintf("login rejected (HTTP %d): %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("unexpected response from server (HTTP %d)", e.StatusCode)
	}
}

// Unauthorized reports whether the server rejected the username or password.
func (e *Error) Unauthorized() bool {
	return e.Code == "invalid_grant" || e.StatusCode == http.StatusUnauthorized
}

// NewClient creates a client with its own resty transport.
func NewClient() *Client {
	return NewWithClient(resty.New().SetTimeout(DefaultTimeout))
}

// NewWithClient creates a client using the given resty client.
func NewWithClient(rc *resty.Client) *Client {
	return &Client{
		HTTP:     rc,
		ClientID: DefaultClientID,
		now:      time.Now,
	}
}

// Authenticate logs in with a username and password and returns the session.
func (c *Client) Authenticate(ctx context.Context, server, username, password string) (*Session, error) {
	base, err := NormalizeServer(server)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(username) == "" {
		return nil, errors.New("username is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}

	loginURL := base + LoginPath
	slog.Debug("POST", "url", loginURL, "username", username)

	requestedAt := c.now()
	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{
			"client_id":  c.ClientID,
			"grant_type": "password",
			"username":   username,
			"password":   password,
		}).
		Post(loginURL)
	if err != nil {
		return nil, fmt.Errorf("connection to %s failed: %w", base, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, decodeError(resp.StatusCode(), resp.Body())
	}

	var tok tokenResponse
	if err := json.Unmarshal(resp.Body(), &tok); err != nil {
		return nil, fmt.Errorf("failed to parse login response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, errors.New("login response did not contain an access token")
	}

	sess := &Session{
		Server:       base,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if tok.ExpiresIn > 0 {
		sess.ExpiresAt = requestedAt.Add(time.Duration(tok.ExpiresIn) * time.Second)
	}
	return sess, nil
}

func decodeError(status int, body []byte) *Error {
	apiErr := &Error{StatusCode: status}
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		apiErr.Code = errResp.Error
		apiErr.Description = errResp.ErrorDescription
	}
	return apiErr
}

// NormalizeServer turns user input such as "skola.example.cz/bakaweb/" into
// a base URL without a trailing slash. A missing scheme defaults to https.
func NormalizeServer(server string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", errors.New("server is required")
	}
	if !strings.Contains(server, "://") {
		server = "https://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported server URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server URL %q has no host", server)
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
