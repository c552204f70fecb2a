package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/acme/text-to-call/internal/config"
	"github.com/acme/text-to-call/internal/telephony"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

// DefaultBaseURL is the Twilio REST API base URL.
const DefaultBaseURL = "https://api.twilio.com/2010-04-01"

// Provider places outbound calls through the Twilio REST API.
type Provider struct {
	baseURL    string
	accountSID string
	authToken  string
	client     *http.Client
}

// NewProvider constructs a Twilio-backed dispatcher.
func NewProvider(cfg config.TelephonyConfig) *Provider {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Provider{
		baseURL:    strings.TrimSuffix(base, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		client:     &http.Client{Timeout: timeout},
	}
}

type callResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// PlaceCall validates the calling configuration, then instructs the
// provider to place a call that fetches the script document.
func (p *Provider) PlaceCall(ctx context.Context, req telephony.Request) (telephony.Call, error) {
	if err := p.verify(req); err != nil {
		return telephony.Call{}, err
	}

	form := url.Values{}
	form.Set("To", req.CalleeNumber)
	form.Set("From", req.CallerNumber)
	form.Set("Url", req.ScriptURI)
	form.Set("Method", http.MethodGet)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", p.baseURL, p.accountSID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return telephony.Call{}, fmt.Errorf("%w: build request: %v", apperrors.ErrDispatchFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.SetBasicAuth(p.accountSID, p.authToken)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return telephony.Call{}, fmt.Errorf("%w: %v", apperrors.ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return telephony.Call{}, fmt.Errorf("%w: provider returned %d", apperrors.ErrDispatchFailed, resp.StatusCode)
	}

	var payload callResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return telephony.Call{}, fmt.Errorf("%w: decode response: %v", apperrors.ErrDispatchFailed, err)
	}

	return telephony.Call{ProviderCallID: payload.SID, Status: payload.Status}, nil
}

func (p *Provider) verify(req telephony.Request) error {
	var missing []string
	if p.accountSID == "" {
		missing = append(missing, "account sid")
	}
	if p.authToken == "" {
		missing = append(missing, "auth token")
	}
	if req.CallerNumber == "" {
		missing = append(missing, "caller number")
	}
	if req.CalleeNumber == "" {
		missing = append(missing, "callee number")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrMissingTelephonyConfig, strings.Join(missing, ", "))
	}
	return nil
}
