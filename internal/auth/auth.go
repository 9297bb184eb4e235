// Package auth resolves the player behind a request: an authenticated user
// checked against an external service, or a guest.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	ErrUnavailable = errors.New("auth: unavailable")

	// ErrUnauthenticated is returned when a request carries no credentials
	// and guests are not allowed.
	ErrUnauthenticated = errors.New("auth: unauthenticated")
)

// Identity is the player a request acts for. Guests never touch the
// server-side store; their progress lives in a session file.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Guest  bool   `json:"guest"`
}

// Validator validates authentication tokens.
type Validator interface {
	// Validate returns the identity for token, ErrInvalidToken when the
	// token is rejected, or ErrUnavailable when the check could not be made.
	Validate(ctx context.Context, token string) (Identity, error)
}

// HTTPValidator validates tokens via HTTP callback to an external service.
type HTTPValidator struct {
	url         string
	client      *http.Client
	adminSecret string
	timeout     time.Duration
}

// NewHTTPValidator creates a validator that posts tokens to url.
func NewHTTPValidator(url, adminSecret string, timeout time.Duration) *HTTPValidator {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HTTPValidator{
		url:         url,
		adminSecret: adminSecret,
		timeout:     timeout,
		client:      &http.Client{Timeout: timeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name,omitempty"`
	Error  string `json:"error,omitempty"`
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return Identity{}, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return Identity{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.adminSecret != "" {
		req.Header.Set("X-Admin-Secret", v.adminSecret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return Identity{}, ErrInvalidToken
	default:
		return Identity{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return Identity{}, fmt.Errorf("%w: decode error: %v", ErrUnavailable, err)
	}
	if !out.Valid || out.UserID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: out.UserID, Name: out.Name}, nil
}

// NoopValidator trusts the token as the user ID. Development only.
type NoopValidator struct{}

func (NoopValidator) Validate(_ context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: token}, nil
}
