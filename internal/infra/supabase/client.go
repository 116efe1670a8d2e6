// Package supabase is the identity-provider adapter. It talks to the
// GoTrue REST surface of a Supabase project; the rest of the codebase only
// sees the interfaces the auth package declares.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"visualizar-api/config"
)

type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	User         *User  `json:"user"`
}

type Client struct {
	baseURL    string
	anonKey    string
	serviceKey string
	httpClient *http.Client
}

func New(cfg config.SupabaseConfig) *Client {
	return &Client{
		baseURL:    cfg.URL,
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// SendOTP asks the provider to mail a one-time code. create_user is false:
// accounts are provisioned by an administrator, never by sign-in.
func (c *Client) SendOTP(ctx context.Context, email string) error {
	payload := map[string]any{
		"email":       email,
		"create_user": false,
	}
	return c.do(ctx, http.MethodPost, "/auth/v1/otp", c.anonKey, payload, nil)
}

// VerifyOTP exchanges the emailed code for a session.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	payload := map[string]any{
		"type":  "email",
		"email": email,
		"token": code,
	}
	var session Session
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", c.anonKey, payload, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetUserFromToken resolves the external user an access token belongs to.
func (c *Client) GetUserFromToken(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("provider returned no user")
	}
	return &user, nil
}

// CreateUser provisions a confirmed external user. Requires the service
// role key.
func (c *Client) CreateUser(ctx context.Context, email string) (*User, error) {
	if c.serviceKey == "" {
		return nil, errors.New("service role key not configured")
	}
	payload := map[string]any{
		"email":         email,
		"email_confirm": true,
	}
	var user User
	if err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", c.serviceKey, payload, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("provider returned no user")
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.New(errorMessage(resp.StatusCode, raw))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}
	return nil
}

// errorMessage extracts the human-readable message GoTrue puts in one of
// several fields depending on the endpoint.
func errorMessage(status int, raw []byte) string {
	var body struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, m := range []string{body.Msg, body.Message, body.ErrorDescription, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	return fmt.Sprintf("provider request failed with status %d", status)
}
