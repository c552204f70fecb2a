package speech

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/acme/text-to-call/pkg/errors"
)

func TestPendingResolve(t *testing.T) {
	p := NewPending()
	p.ResolveAudio(Audio{Data: []byte("abc"), Format: OutputFormat})

	audio, err := p.Await(context.Background())
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if string(audio.Data) != "abc" {
		t.Errorf("audio data = %q, want abc", audio.Data)
	}
}

func TestPendingReject(t *testing.T) {
	p := NewPending()
	p.Reject(apperrors.ErrSynthesisFailed)

	_, err := p.Await(context.Background())
	if !errors.Is(err, apperrors.ErrSynthesisFailed) {
		t.Fatalf("error = %v, want ErrSynthesisFailed", err)
	}
}

func TestPendingRejectNilError(t *testing.T) {
	p := NewPending()
	p.Reject(nil)

	_, err := p.Await(context.Background())
	if !errors.Is(err, apperrors.ErrSynthesisFailed) {
		t.Fatalf("nil rejection should map to ErrSynthesisFailed, got %v", err)
	}
}

func TestPendingResolvesExactlyOnce(t *testing.T) {
	p := NewPending()
	p.ResolveAudio(Audio{Data: []byte("first")})
	p.ResolveAudio(Audio{Data: []byte("second")})
	p.Reject(errors.New("late failure"))

	audio, err := p.Await(context.Background())
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if string(audio.Data) != "first" {
		t.Errorf("audio data = %q, want the first resolution", audio.Data)
	}
}

func TestPendingAwaitTimeout(t *testing.T) {
	p := NewPending()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Await(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want DeadlineExceeded", err)
	}
}

func TestPendingResolveAfterAbandonDoesNotBlock(t *testing.T) {
	p := NewPending()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Await(ctx); err == nil {
		t.Fatal("expected cancellation error")
	}

	done := make(chan struct{})
	go func() {
		p.ResolveAudio(Audio{Data: []byte("late")})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("late resolution blocked")
	}
}
