package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/auditflow/auditflow/internal/models"
)

// AuthResponse is the token payload returned by authentication endpoints
type AuthResponse = models.TokenResponse

// Login authenticates with the API and stores the issued tokens
func (c *APIClient) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}

	reqBody := models.LoginRequest{
		Email:    email,
		Password: password,
	}

	var authResp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthLogin, reqBody, &authResp); err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	c.SetToken(authResp.AccessToken, authResp.RefreshToken, authResp.ExpiresAt)
	return &authResp, nil
}

// Register creates a new account and stores the issued tokens
func (c *APIClient) Register(ctx context.Context, email, password, name string) (*AuthResponse, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("password cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("name cannot be empty")
	}

	reqBody := models.RegisterRequest{
		Email:    email,
		Password: password,
		Name:     name,
	}

	var authResp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthRegister, reqBody, &authResp); err != nil {
		return nil, fmt.Errorf("registration failed: %w", err)
	}

	c.SetToken(authResp.AccessToken, authResp.RefreshToken, authResp.ExpiresAt)
	return &authResp, nil
}

// RefreshToken exchanges the refresh token for a new token pair
func (c *APIClient) RefreshToken(ctx context.Context) (*AuthResponse, error) {
	if c.refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	reqBody := models.RefreshRequest{RefreshToken: c.refreshToken}

	var authResp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthRefresh, reqBody, &authResp); err != nil {
		c.SetToken("", "", time.Time{})
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	refresh := c.refreshToken
	if authResp.RefreshToken != "" {
		refresh = authResp.RefreshToken
	}
	c.SetToken(authResp.AccessToken, refresh, authResp.ExpiresAt)
	return &authResp, nil
}

// Logout revokes the current session and clears stored tokens
func (c *APIClient) Logout(ctx context.Context) error {
	if c.accessToken == "" {
		return fmt.Errorf("not logged in")
	}

	if err := c.doRequest(ctx, http.MethodPost, APIPathAuthLogout, nil, nil); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	c.SetToken("", "", time.Time{})
	return nil
}

// GetCurrentUser returns the authenticated user's profile
func (c *APIClient) GetCurrentUser(ctx context.Context) (*models.UserResponse, error) {
	var userResp models.UserResponse
	if err := c.doRequest(ctx, http.MethodGet, APIPathUserMe, nil, &userResp); err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &userResp, nil
}

// SetToken manually sets the access and refresh tokens
func (c *APIClient) SetToken(accessToken, refreshToken string, expiresAt time.Time) {
	<-c.tokenLock
	defer func() { c.tokenLock <- struct{}{} }()

	c.accessToken = accessToken
	c.refreshToken = refreshToken
	c.tokenExpiry = expiresAt
}

// GetToken returns the current access and refresh tokens
func (c *APIClient) GetToken() (accessToken, refreshToken string, expiresAt time.Time) {
	<-c.tokenLock
	defer func() { c.tokenLock <- struct{}{} }()

	return c.accessToken, c.refreshToken, c.tokenExpiry
}

// HasValidToken checks if the client holds an unexpired access token
func (c *APIClient) HasValidToken() bool {
	<-c.tokenLock
	defer func() { c.tokenLock <- struct{}{} }()

	return c.accessToken != "" && time.Now().Before(c.tokenExpiry)
}
