// Package client talks to a running momentum server over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/lazypower/momentum/internal/engine"
	"github.com/lazypower/momentum/internal/store"
)

const httpTimeout = 5 * time.Second

// Client talks to the momentum server.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a client for the server at serverURL.
func New(serverURL string) *Client {
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: serverURL,
	}
}

// StatusError is a non-2xx server response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// do sends in as JSON (when non-nil) and decodes the response into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		msg := string(bytes.TrimSpace(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func userPath(userID, suffix string) string {
	return "/api/users/" + url.PathEscape(userID) + suffix
}

// EnsureUser registers handle, or returns the existing user.
func (c *Client) EnsureUser(ctx context.Context, handle, name string) (*store.User, error) {
	var u store.User
	err := c.do(ctx, http.MethodPost, "/api/users", map[string]string{"handle": handle, "name": name}, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUser fetches a user by ID.
func (c *Client) GetUser(ctx context.Context, userID string) (*store.User, error) {
	var u store.User
	if err := c.do(ctx, http.MethodGet, userPath(userID, ""), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ResolveUser accepts a user ID or a handle. A known ID returns that user.
// Anything else is treated as a handle and registered on first use, except
// unknown values shaped like user IDs, which are refused so they never
// become handles.
func (c *Client) ResolveUser(ctx context.Context, ref string) (*store.User, error) {
	u, err := c.GetUser(ctx, ref)
	if err == nil {
		return u, nil
	}
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		return nil, err
	}
	if _, perr := uuid.Parse(ref); perr == nil {
		return nil, fmt.Errorf("user %s: %w", ref, store.ErrNotFound)
	}
	return c.EnsureUser(ctx, ref, "")
}

// CheckIn is the wire form of a check-in.
type CheckIn struct {
	Energy     *float64 `json:"energy,omitempty"`
	Mood       *float64 `json:"mood,omitempty"`
	Urges      *float64 `json:"urges,omitempty"`
	Stress     *float64 `json:"stress,omitempty"`
	Focus      *float64 `json:"focus,omitempty"`
	Exercised  bool     `json:"exercised"`
	Meditated  bool     `json:"meditated"`
	ColdShower bool     `json:"cold_shower"`
	Triggers   []string `json:"triggers,omitempty"`
	RawMessage string   `json:"raw_message,omitempty"`
}

// CheckIn merges a check-in into today's aggregate.
func (c *Client) CheckIn(ctx context.Context, userID string, in CheckIn) (*store.DailyAggregate, error) {
	var agg store.DailyAggregate
	if err := c.do(ctx, http.MethodPost, userPath(userID, "/checkins"), in, &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

// RecordEvent records a qualifying event.
func (c *Client) RecordEvent(ctx context.Context, userID, eventType, eventContext string, triggers []string) (*store.EventOutcome, error) {
	in := map[string]any{"event_type": eventType, "context": eventContext, "triggers": triggers}
	var out store.EventOutcome
	if err := c.do(ctx, http.MethodPost, userPath(userID, "/events"), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches every analytic for the user.
func (c *Client) Stats(ctx context.Context, userID string) (*engine.UserStats, error) {
	var s engine.UserStats
	if err := c.do(ctx, http.MethodGet, userPath(userID, "/analytics"), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil) == nil
}
