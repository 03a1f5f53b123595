// Package api is the client for the server's auxiliary HTTP endpoints:
// account auth and the lobby's game listing. The session cookie issued at
// sign-in lives in the client's jar and is what the websocket handshake
// rides on.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// Client talks to one server origin. All methods require a prior SignIn,
// SignUp, or Guest call except those three themselves.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client with a fresh cookie jar.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("api: cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
	}, nil
}

// HTTPClient exposes the underlying client so the websocket dialer can share
// the session cookie.
func (c *Client) HTTPClient() *http.Client { return c.http }

// User is an account as the server reports it.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	IsGuest  bool   `json:"is_guest"`
}

// GameSummary is one lobby listing.
type GameSummary struct {
	GameID      string            `json:"game_id"`
	Name        string            `json:"name"`
	Phase       string            `json:"phase"`
	PlayerCount int               `json:"player_count"`
	IsPublic    bool              `json:"is_public"`
	PlayerNames map[string]string `json:"player_names"`
}

// Error is a non-2xx response with the server's message attached.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// SignUp creates an account and signs it in.
func (c *Client) SignUp(ctx context.Context, username, password string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/signup",
		map[string]any{"username": username, "password": password}, &out)
	return out.User, err
}

// SignIn authenticates an existing account.
func (c *Client) SignIn(ctx context.Context, username, password string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/signin",
		map[string]any{"username": username, "password": password, "remember": true}, &out)
	return out.User, err
}

// Guest creates a throwaway account with a server-generated name.
func (c *Client) Guest(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/api/guest", nil, &out)
	return out.User, err
}

// CurrentUser fetches the signed-in account.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/user", nil, &out)
	return out.User, err
}

// Logout ends the session. Guest accounts are deleted server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// ListGames fetches the public lobby listing.
func (c *Client) ListGames(ctx context.Context) ([]GameSummary, error) {
	var out struct {
		Games []GameSummary `json:"games"`
	}
	err := c.do(ctx, http.MethodGet, "/api/games", nil, &out)
	return out.Games, err
}

// CreateGame opens a new room and returns its id.
func (c *Client) CreateGame(ctx context.Context, name string, public bool) (string, error) {
	var out struct {
		GameID string `json:"game_id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/games",
		map[string]any{"name": name, "is_public": public}, &out)
	return out.GameID, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: marshal %s: %w", path, err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("api: read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode}
		var msg struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: decode %s: %w", path, err)
	}
	return nil
}
