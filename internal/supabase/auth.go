package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Auth returns the GoTrue client for this project.
func (c *Client) Auth() *AuthClient {
	return &AuthClient{client: c}
}

// AuthClient handles sign-up, sign-in and session lookups.
type AuthClient struct {
	client *Client
}

// AuthResponse is the token grant returned by sign-in (and sign-up when
// email confirmation is disabled).
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// User is the GoTrue user object.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	Role         string         `json:"role"`
	CreatedAt    string         `json:"created_at"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// SignUp registers a new account. metadata lands in user_metadata.
func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*AuthResponse, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	resp, err := a.post(ctx, "/auth/v1/signup", body, "")
	if err != nil {
		return nil, err
	}

	// Depending on project settings GoTrue answers with a grant or a bare user.
	var authResp AuthResponse
	if err := resp.JSON(&authResp); err != nil {
		return nil, fmt.Errorf("unmarshal signup response: %w", err)
	}
	if authResp.User == nil {
		var u User
		if err := resp.JSON(&u); err == nil && u.ID != "" {
			authResp.User = &u
		}
	}
	return &authResp, nil
}

// SignIn exchanges email and password for a session grant.
func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	resp, err := a.post(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}

	var authResp AuthResponse
	if err := resp.JSON(&authResp); err != nil {
		return nil, fmt.Errorf("unmarshal signin response: %w", err)
	}
	return &authResp, nil
}

// SignOut revokes the refresh tokens behind accessToken.
func (a *AuthClient) SignOut(ctx context.Context, accessToken string) error {
	_, err := a.post(ctx, "/auth/v1/logout", nil, accessToken)
	return err
}

// GetUser returns the user owning accessToken.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := a.client.newRequest(ctx, http.MethodGet, a.client.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	var u User
	if err := resp.JSON(&u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (a *AuthClient) post(ctx context.Context, path string, payload any, bearer string) (*Response, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("marshal auth request: %w", err)
		}
	}
	req, err := a.client.newRequest(ctx, http.MethodPost, a.client.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := a.client.do(req)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("auth %s: %w", path, err)
	}
	return resp, nil
}
