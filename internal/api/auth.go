// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"

	"github.com/lankaguide/lankaguide-tui/internal/model"
)

// =============================================================================
// AUTH OPERATIONS
// =============================================================================

// loginRequest is the wire shape for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// registerRequest is the wire shape for POST /auth/register.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is returned by login and register.
type authResponse struct {
	Message     string      `json:"message"`
	AccessToken string      `json:"access_token"`
	User        *model.User `json:"user"`
}

// meResponse is returned by GET /auth/me.
type meResponse struct {
	User *model.User `json:"user"`
}

// Login authenticates with email and password. On success the session
// store is updated with the new token and user.
func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	var resp authResponse
	err := c.postJSON(ctx, "/auth/login", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "login response missing token or user"}
	}
	c.sessions.Set(resp.AccessToken, resp.User)
	return resp.User, nil
}

// Register creates an account and logs in with the returned token.
func (c *Client) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	var resp authResponse
	err := c.postJSON(ctx, "/auth/register", registerRequest{Username: username, Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "register response missing token or user"}
	}
	c.sessions.Set(resp.AccessToken, resp.User)
	return resp.User, nil
}

// Me verifies the stored token against the backend and refreshes the
// cached user. Used at startup to decide whether to show the login view.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var resp meResponse
	if err := c.getJSON(ctx, "/auth/me", &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "me response missing user"}
	}
	c.sessions.Set(c.sessions.Token(), resp.User)
	return resp.User, nil
}

// Logout clears the local session. The backend holds no server-side
// session state for bearer tokens, so no network call is made.
func (c *Client) Logout() {
	c.sessions.Clear()
}
