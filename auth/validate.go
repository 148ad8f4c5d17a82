package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
)

const twitchOAuthValidateURL = "https://id.twitch.tv/oauth2/validate"

// ChatReadScope нужен пользовательскому токену, чтобы читать чат по IRC.
const ChatReadScope = "chat:read"

// ErrInvalidToken означает, что Twitch не принял токен (отозван или истёк).
var ErrInvalidToken = errors.New("twitch oauth: invalid token")

// Validation описывает ответ Twitch о пользовательском токене.
type Validation struct {
	Login     string
	Scopes    []string
	ExpiresIn time.Duration
}

// HasScope сообщает, выдан ли токену scope.
func (v Validation) HasScope(scope string) bool {
	return lo.Contains(v.Scopes, scope)
}

// Validator проверяет пользовательские OAuth токены.
type Validator struct {
	URL    string
	Client *http.Client
}

func NewValidator() *Validator {
	return &Validator{URL: twitchOAuthValidateURL, Client: &http.Client{Timeout: 10 * time.Second}}
}

// Validate запрашивает у Twitch сведения о токене. Префикс "oauth:" из IRC пароля отбрасывается.
func (v *Validator) Validate(ctx context.Context, token string) (Validation, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "oauth:")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.URL, nil)
	if err != nil {
		return Validation{}, fmt.Errorf("twitch oauth: create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+token)

	resp, err := v.Client.Do(req)
	if err != nil {
		return Validation{}, fmt.Errorf("twitch oauth: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Validation{}, ErrInvalidToken
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return Validation{}, fmt.Errorf("twitch oauth: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Login     string   `json:"login"`
		Scopes    []string `json:"scopes"`
		ExpiresIn int64    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Validation{}, fmt.Errorf("twitch oauth: decode response: %w", err)
	}

	return Validation{
		Login:     payload.Login,
		Scopes:    payload.Scopes,
		ExpiresIn: time.Duration(payload.ExpiresIn) * time.Second,
	}, nil
}

// Check проверяет, что токен принадлежит username и может читать чат.
func (v *Validator) Check(ctx context.Context, username, token string) (Validation, error) {
	info, err := v.Validate(ctx, token)
	if err != nil {
		return Validation{}, err
	}
	if !strings.EqualFold(info.Login, username) {
		return info, fmt.Errorf("twitch oauth: token belongs to %q, not %q", info.Login, username)
	}
	if !info.HasScope(ChatReadScope) {
		return info, fmt.Errorf("twitch oauth: token lacks %s scope", ChatReadScope)
	}
	return info, nil
}
