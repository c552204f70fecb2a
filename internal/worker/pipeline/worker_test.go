package pipeline

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/acme/text-to-call/internal/queue"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

func TestRetryable(t *testing.T) {
	transient := []error{
		apperrors.ErrSynthesisFailed,
		apperrors.ErrStorageUploadFailed,
		apperrors.ErrDispatchFailed,
		apperrors.ErrUnavailable,
		fmt.Errorf("%w: provider returned 500", apperrors.ErrSynthesisFailed),
	}
	for _, err := range transient {
		if !retryable(err) {
			t.Errorf("retryable(%v) = false, want true", err)
		}
	}

	terminal := []error{
		apperrors.ErrMissingInput,
		apperrors.ErrMissingStorageConfig,
		apperrors.ErrMissingTelephonyConfig,
		apperrors.ErrUnsupportedFormat,
		apperrors.ErrAuthenticationFailed,
		apperrors.ErrValidation,
	}
	for _, err := range terminal {
		if retryable(err) {
			t.Errorf("retryable(%v) = true, want false", err)
		}
	}
}

func TestComputeNextAttempt(t *testing.T) {
	w := &Worker{rng: rand.New(rand.NewSource(1))}

	job := queue.PipelineJob{
		Attempt:     1,
		RetryBaseMs: 1000,
		RetryMaxMs:  60000,
	}

	before := time.Now().UTC()
	next := w.computeNextAttempt(job)
	delay := next.Sub(before)
	if delay < 900*time.Millisecond || delay > 1100*time.Millisecond {
		t.Errorf("first attempt delay = %s, want about 1s", delay)
	}

	job.Attempt = 3
	next = w.computeNextAttempt(job)
	delay = next.Sub(time.Now().UTC())
	if delay < 3*time.Second || delay > 5*time.Second {
		t.Errorf("third attempt delay = %s, want about 4s", delay)
	}
}

func TestComputeNextAttemptCapped(t *testing.T) {
	w := &Worker{rng: rand.New(rand.NewSource(1))}

	job := queue.PipelineJob{
		Attempt:     10,
		RetryBaseMs: 1000,
		RetryMaxMs:  5000,
	}

	next := w.computeNextAttempt(job)
	delay := next.Sub(time.Now().UTC())
	if delay > 6*time.Second {
		t.Errorf("delay = %s, want capped near 5s", delay)
	}
}

func TestComputeNextAttemptJitterFloor(t *testing.T) {
	w := &Worker{rng: rand.New(rand.NewSource(42))}

	job := queue.PipelineJob{
		Attempt:     1,
		RetryBaseMs: 1000,
		RetryMaxMs:  60000,
		RetryJitter: 0.5,
	}

	for i := 0; i < 50; i++ {
		next := w.computeNextAttempt(job)
		delay := next.Sub(time.Now().UTC())
		if delay < 900*time.Millisecond {
			t.Fatalf("jittered delay %s fell below the base delay", delay)
		}
	}
}
