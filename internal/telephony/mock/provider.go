package mock

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/acme/text-to-call/internal/telephony"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

// Provider simulates outbound call placement for local development.
type Provider struct {
	successRate float64
	rng         *rand.Rand
}

// NewProvider constructs a mock dispatcher.
func NewProvider() *Provider {
	return &Provider{
		successRate: 0.9,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// PlaceCall simulates a call placement attempt.
func (p *Provider) PlaceCall(ctx context.Context, req telephony.Request) (telephony.Call, error) {
	if req.CallerNumber == "" || req.CalleeNumber == "" {
		return telephony.Call{}, fmt.Errorf("%w: caller and callee numbers are required", apperrors.ErrMissingTelephonyConfig)
	}

	select {
	case <-ctx.Done():
		return telephony.Call{}, ctx.Err()
	case <-time.After(time.Duration(50+p.rng.Intn(200)) * time.Millisecond):
	}

	if p.rng.Float64() > p.successRate {
		return telephony.Call{}, fmt.Errorf("%w: simulated provider rejection", apperrors.ErrDispatchFailed)
	}

	return telephony.Call{
		ProviderCallID: fmt.Sprintf("MC%016x", p.rng.Uint64()),
		Status:         "queued",
	}, nil
}
