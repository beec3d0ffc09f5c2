package gateway

import (
	"context"
	"time"
)

// TokenPair is the access/refresh token pair issued by the gateway. The
// access token is short-lived (~10 minutes), the refresh token
// long-lived (~30 days); both are stored as HTTP-only cookies.
type TokenPair struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// AuthUser is the authenticated user profile returned on login.
type AuthUser struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Department  string `json:"department"`
}

// LoginResult bundles the token pair with the user profile.
type LoginResult struct {
	Token TokenPair `json:"token"`
	User  AuthUser  `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login authenticates against the gateway.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	err := c.Post(ctx, "/auth/login", "", loginRequest{Username: username, Password: password}, &out)
	return out, err
}

// Refresh rotates the token pair using the refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	var out TokenPair
	err := c.Post(ctx, "/auth/refresh", "", refreshRequest{RefreshToken: refreshToken}, &out)
	return out, err
}

// Logout invalidates the session upstream. A failed logout is not
// fatal: cookies are cleared regardless.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.Post(ctx, "/auth/logout", token, struct{}{}, nil)
}
