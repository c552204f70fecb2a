package speech

import (
	"context"
	"sync"

	apperrors "github.com/acme/text-to-call/pkg/errors"
)

type outcome struct {
	audio Audio
	err   error
}

// Pending is a single-use completion barrier between the synthesis
// provider and the orchestrator. Exactly one of ResolveAudio or Reject
// takes effect; later calls are ignored.
type Pending struct {
	once sync.Once
	done chan outcome
}

// NewPending creates an unresolved barrier.
func NewPending() *Pending {
	return &Pending{done: make(chan outcome, 1)}
}

// ResolveAudio completes the barrier with synthesized audio.
func (p *Pending) ResolveAudio(audio Audio) {
	p.once.Do(func() {
		p.done <- outcome{audio: audio}
	})
}

// Reject completes the barrier with an error.
func (p *Pending) Reject(err error) {
	if err == nil {
		err = apperrors.ErrSynthesisFailed
	}
	p.once.Do(func() {
		p.done <- outcome{err: err}
	})
}

// Await blocks until the barrier resolves or the context ends.
// Cancellation does not consume the outcome; a provider resolving after
// the caller gave up is harmless.
func (p *Pending) Await(ctx context.Context) (Audio, error) {
	select {
	case <-ctx.Done():
		return Audio{}, ctx.Err()
	case out := <-p.done:
		return out.audio, out.err
	}
}
