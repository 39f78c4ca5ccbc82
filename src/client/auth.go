package client

import (
	"context"

	"tradeadmin/src/model"
)

// AuthService covers login, registration and profile maintenance.
type AuthService struct {
	c *Client
}

// LoginResult bundles the issued token with the sanitized account.
type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login exchanges credentials for a bearer token and installs it on the
// client so subsequent calls are authenticated.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var result LoginResult
	if err := s.c.post(ctx, "/api/auth/login", body, &result); err != nil {
		return nil, err
	}
	s.c.SetToken(result.Token)
	return &result, nil
}

// Register creates a new account; it stays pending until an admin
// approves it.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*model.User, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var user model.User
	if err := s.c.post(ctx, "/api/auth/register", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) Profile(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := s.c.get(ctx, "/api/auth/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"old_password": current, "new_password": next}
	return s.c.post(ctx, "/api/auth/password", body, nil)
}

func (s *AuthService) UpdateAPIKeys(ctx context.Context, apiKey, secretKey string) error {
	body := map[string]string{"api_key": apiKey, "secret_key": secretKey}
	return s.c.put(ctx, "/api/auth/api-keys", body, nil)
}

func (s *AuthService) DeleteAPIKeys(ctx context.Context) error {
	return s.c.delete(ctx, "/api/auth/api-keys")
}
