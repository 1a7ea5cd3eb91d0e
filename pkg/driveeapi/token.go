package driveeapi

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Refresh the token a bit before the server-side expiry so an in-flight
// request never races the deadline.
const tokenExpiryMargin = 60 * time.Second

type tokenRequestDTO struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

type tokenResponseDTO struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// tokenManager owns the bearer token lifecycle. All API traffic funnels
// through EnsureValid before a request goes out; a 401 on a data call
// invalidates the token so the next attempt authenticates again.
type tokenManager struct {
	mu       sync.Mutex
	username string
	password string
	http     *resty.Client

	accessToken string
	expiresAt   time.Time
}

func newTokenManager(http *resty.Client, username, password string) *tokenManager {
	return &tokenManager{
		http:     http,
		username: username,
		password: password,
	}
}

// EnsureValid returns a usable bearer token, authenticating first if no
// unexpired token is held. Concurrent callers serialize on the manager so
// at most one authentication request is in flight.
func (t *tokenManager) EnsureValid(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.accessToken != "" && time.Now().Before(t.expiresAt) {
		return t.accessToken, nil
	}
	if err := t.authenticate(ctx); err != nil {
		return "", err
	}
	return t.accessToken, nil
}

// Invalidate discards the held token. Called when the server rejects it.
func (t *tokenManager) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.accessToken = ""
	t.expiresAt = time.Time{}
}

func (t *tokenManager) authenticate(ctx context.Context) error {
	body := tokenRequestDTO{
		Username:     t.username,
		Password:     t.password,
		GrantType:    oauthGrantType,
		ClientID:     oauthClientID,
		ClientSecret: oauthClientSecret,
	}
	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(tokenPath)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.StatusCode() != 200 {
		return &AuthenticationError{Body: string(resp.Body())}
	}
	var dto tokenResponseDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return &AuthenticationError{Body: "malformed token response: " + err.Error()}
	}
	if dto.AccessToken == "" {
		return &AuthenticationError{Body: "token response without access_token"}
	}
	t.accessToken = dto.AccessToken
	expiresIn := time.Duration(dto.ExpiresIn) * time.Second
	if expiresIn > tokenExpiryMargin {
		expiresIn -= tokenExpiryMargin
	}
	t.expiresAt = time.Now().Add(expiresIn)
	return nil
}
