package client

import (
	"context"
	"net/http"
)

type userEnvelope struct {
	User User `json:"user"`
}

// Signup creates an account and signs it in.
func (c *Client) Signup(ctx context.Context, email, password, confirmation string) (*User, error) {
	body := map[string]interface{}{
		"user": map[string]string{
			"email_address":         email,
			"password":              password,
			"password_confirmation": confirmation,
		},
	}
	var out userEnvelope
	if err := c.do(ctx, request{op: "signing up", method: http.MethodPost, path: "/users", body: body, out: &out, auth: true}); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Login starts a session. The cookie is kept in the client's jar.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	body := map[string]string{"email_address": email, "password": password}
	var out userEnvelope
	if err := c.do(ctx, request{op: "signing in", method: http.MethodPost, path: "/session", body: body, out: &out, auth: true}); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout ends the current session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{op: "signing out", method: http.MethodDelete, path: "/session", auth: true})
}

// CurrentUser returns the user of the current session.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	var out userEnvelope
	if err := c.do(ctx, request{op: "fetching session", method: http.MethodGet, path: "/session", out: &out, auth: true}); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// RequestPasswordReset asks the server to mail a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email_address": email}
	return c.do(ctx, request{op: "requesting password reset", method: http.MethodPost, path: "/passwords", body: body, auth: true})
}

// ResetPassword consumes a reset token.
func (c *Client) ResetPassword(ctx context.Context, token, password, confirmation string) error {
	body := map[string]string{
		"token":                 token,
		"password":              password,
		"password_confirmation": confirmation,
	}
	return c.do(ctx, request{op: "resetting password", method: http.MethodPost, path: "/passwords/reset", body: body, auth: true})
}
