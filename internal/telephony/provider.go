package telephony

import (
	"context"
)

// Request identifies the numbers and the call-control document of an
// outbound call.
type Request struct {
	CallerNumber string
	CalleeNumber string
	ScriptURI    string
}

// Call is the provider's acknowledgement that a call was placed.
// Placement is fire-and-forget: the record says nothing about ring or
// completion state.
type Call struct {
	ProviderCallID string
	Status         string
}

// Dispatcher abstracts the telephony integration.
type Dispatcher interface {
	PlaceCall(ctx context.Context, req Request) (Call, error)
}
