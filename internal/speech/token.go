package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/acme/text-to-call/pkg/errors"
)

// Issued tokens are valid for ten minutes; refresh with headroom.
const tokenLifetime = 9 * time.Minute

// TokenProvider exchanges a subscription key for a short-lived bearer
// token and caches it until close to expiry.
type TokenProvider struct {
	endpoint        string
	subscriptionKey string
	client          *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// NewTokenProvider creates a token provider for the given issue endpoint.
func NewTokenProvider(endpoint, subscriptionKey string, client *http.Client) *TokenProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenProvider{
		endpoint:        endpoint,
		subscriptionKey: subscriptionKey,
		client:          client,
	}
}

// Token returns a valid bearer token, fetching a fresh one if needed.
func (t *TokenProvider) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiresAt) {
		return t.token, nil
	}

	if t.endpoint == "" || t.subscriptionKey == "" {
		return "", fmt.Errorf("%w: token endpoint or subscription key not configured", apperrors.ErrAuthenticationFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, strings.NewReader(""))
	if err != nil {
		return "", fmt.Errorf("%w: build token request: %v", apperrors.ErrAuthenticationFailed, err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", t.subscriptionKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrAuthenticationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", apperrors.ErrAuthenticationFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read token body: %v", apperrors.ErrAuthenticationFailed, err)
	}

	t.token = string(body)
	t.expiresAt = time.Now().Add(tokenLifetime)
	return t.token, nil
}
