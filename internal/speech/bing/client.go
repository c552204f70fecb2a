package bing

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/speech"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

// Client synthesizes speech against the HTTP synthesis endpoint.
// Each call runs asynchronously and reports through a speech.Pending.
type Client struct {
	endpoint string
	tokens   *speech.TokenProvider
	client   *http.Client
}

// NewClient creates a synthesis client.
func NewClient(endpoint string, tokens *speech.TokenProvider, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		tokens:   tokens,
		client:   &http.Client{Timeout: timeout},
	}
}

// Synthesize issues the request and returns immediately. The barrier
// resolves once the provider responds.
func (c *Client) Synthesize(ctx context.Context, req speech.Request) *speech.Pending {
	pending := speech.NewPending()
	go c.run(ctx, req, pending)
	return pending
}

func (c *Client) run(ctx context.Context, req speech.Request, pending *speech.Pending) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		pending.Reject(err)
		return
	}

	body, err := buildSSML(req)
	if err != nil {
		pending.Reject(fmt.Errorf("%w: build ssml: %v", apperrors.ErrSynthesisFailed, err))
		return
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		pending.Reject(fmt.Errorf("%w: build request: %v", apperrors.ErrSynthesisFailed, err))
		return
	}
	httpReq.Header.Set("Content-Type", "application/ssml+xml")
	httpReq.Header.Set("X-Microsoft-OutputFormat", speech.OutputFormat)
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		pending.Reject(fmt.Errorf("%w: %v", apperrors.ErrSynthesisFailed, err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		pending.Reject(fmt.Errorf("%w: synthesis endpoint returned %d", apperrors.ErrSynthesisFailed, resp.StatusCode))
		return
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		pending.Reject(fmt.Errorf("%w: read audio: %v", apperrors.ErrSynthesisFailed, err))
		return
	}

	pending.ResolveAudio(speech.Audio{Data: audio, Format: speech.OutputFormat})
}

func buildSSML(req speech.Request) ([]byte, error) {
	locale := req.Locale
	if locale == "" {
		locale = speech.DefaultLocale
	}
	voice := req.VoiceName
	if voice == "" {
		voice = speech.VoiceName(locale, req.Gender)
	}
	gender := "Female"
	if req.Gender == domain.VoiceMale {
		gender = "Male"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "<speak version='1.0' xml:lang='%s'>", locale)
	fmt.Fprintf(&buf, "<voice xml:lang='%s' xml:gender='%s' name='%s'>", locale, gender, voice)
	if err := xml.EscapeText(&buf, []byte(req.Text)); err != nil {
		return nil, err
	}
	buf.WriteString("</voice></speak>")
	return buf.Bytes(), nil
}
