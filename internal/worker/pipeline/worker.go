package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/text-to-call/internal/app"
	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/queue"
	"github.com/acme/text-to-call/internal/service/concurrency"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

// Worker consumes pipeline jobs and runs the text-to-call sequence.
type Worker struct {
	container *app.Container
	rng       *rand.Rand
	limiter   *concurrency.Limiter
}

// New creates a new pipeline worker instance.
func New(container *app.Container) *Worker {
	return &Worker{
		container: container,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		limiter:   container.Limiters().Concurrency,
	}
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.container.Config
	reader := w.container.Kafka.NewReader(cfg.Kafka.CallTopic, cfg.Kafka.ConsumerGroupID)
	defer reader.Close()

	for {
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.container.Logger.Error("pipeline worker: fetch message", zap.Error(err))
			continue
		}

		if err := w.processMessage(ctx, reader, m); err != nil {
			w.container.Logger.Error("pipeline worker: process", zap.Error(err))
		}
	}
}

func (w *Worker) processMessage(ctx context.Context, reader *kafka.Reader, m kafka.Message) error {
	var job queue.PipelineJob
	if err := json.Unmarshal(m.Value, &job); err != nil {
		_ = reader.CommitMessages(ctx, m)
		return fmt.Errorf("unmarshal job: %w", err)
	}

	tracer := otel.Tracer("outcall.pipelineworker")
	sctx, span := tracer.Start(ctx, "pipeline.job", trace.WithAttributes(
		attribute.String("call.id", job.CallID.String()),
		attribute.String("callee.number", job.CalleeNumber),
		attribute.Int("attempt", job.Attempt),
	))
	defer span.End()

	release, err := w.waitForSlot(sctx, job.CalleeNumber)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if release != nil {
		defer release()
	}

	started := time.Now().UTC()
	result, runErr := w.runJob(sctx, job, started)

	statusMsg := queue.StatusMessage{
		CallID:         job.CallID,
		CalleeNumber:   job.CalleeNumber,
		Stage:          domain.StageDone,
		Attempt:        job.Attempt,
		MaxAttempts:    job.MaxAttempts,
		RetryBaseMs:    job.RetryBaseMs,
		RetryMaxMs:     job.RetryMaxMs,
		RetryJitter:    job.RetryJitter,
		AudioURI:       result.AudioURI,
		ScriptURI:      result.ScriptURI,
		ProviderCallID: result.ProviderCallID,
		DurationMs:     time.Since(started).Milliseconds(),
		OccurredAt:     time.Now().UTC(),
	}

	if runErr != nil {
		span.RecordError(runErr)
		statusMsg.Stage = domain.StageAborted
		statusMsg.Error = runErr.Error()
		statusMsg.Retryable = retryable(runErr) && job.Attempt < job.MaxAttempts
		if statusMsg.Retryable {
			next := w.computeNextAttempt(job)
			statusMsg.NextAttempt = &next
			retryJob := job
			retryJob.Attempt = job.Attempt + 1
			statusMsg.Job = &retryJob
		}
	}

	publisher := w.container.Dispatchers().StatusPublisher
	if err := publisher.PublishStatus(sctx, statusMsg); err != nil {
		span.RecordError(err)
		w.container.Logger.Error("pipeline worker: publish status", zap.Error(err))
	}

	if err := reader.CommitMessages(sctx, m); err != nil {
		span.RecordError(err)
		return fmt.Errorf("commit message: %w", err)
	}
	return nil
}

// runJob executes the orchestrator, recording every stage transition
// against the call history as it happens.
func (w *Worker) runJob(ctx context.Context, job queue.PipelineJob, started time.Time) (pipelineResult, error) {
	store := w.container.Repositories().CallStore
	logger := w.container.Logger

	// Bound the whole run so a stalled provider cannot wedge the worker.
	// Five stages, each allowed the configured stage budget.
	if budget := w.container.Config.Pipeline.StageTimeout; budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*budget)
		defer cancel()
	}

	last := started
	observe := func(stage domain.Stage) {
		now := time.Now().UTC()
		transition := domain.StageTransition{
			ID:         uuid.New(),
			CallID:     job.CallID,
			AttemptNum: job.Attempt,
			Stage:      stage,
			OccurredAt: now,
			Duration:   now.Sub(last),
		}
		last = now
		if err := store.AppendTransition(ctx, transition); err != nil {
			logger.Warn("pipeline worker: append transition", zap.Error(err))
		}
	}

	result, err := w.container.Orchestrator().Run(ctx, job.Request(), observe)
	return pipelineResult{
		AudioURI:       result.AudioURI,
		ScriptURI:      result.ScriptURI,
		ProviderCallID: result.ProviderCallID,
	}, err
}

type pipelineResult struct {
	AudioURI       string
	ScriptURI      string
	ProviderCallID string
}

func (w *Worker) waitForSlot(ctx context.Context, calleeNumber string) (func(), error) {
	limiter := w.limiter
	if limiter == nil || calleeNumber == "" {
		return nil, nil
	}

	limit := w.container.Config.Throttle.DefaultPerCallee
	if limit <= 0 {
		return nil, nil
	}

	for {
		acquired, err := limiter.Acquire(ctx, calleeNumber, limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if acquired {
			release := func() {
				if err := limiter.Release(context.Background(), calleeNumber); err != nil {
					w.container.Logger.Warn("pipeline worker: release slot", zap.Error(err))
				}
			}
			return release, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// retryable reports whether the failure class can succeed on a later
// attempt. Configuration and input errors are terminal.
func retryable(err error) bool {
	switch {
	case errors.Is(err, apperrors.ErrSynthesisFailed),
		errors.Is(err, apperrors.ErrStorageUploadFailed),
		errors.Is(err, apperrors.ErrDispatchFailed),
		errors.Is(err, apperrors.ErrUnavailable):
		return true
	default:
		return false
	}
}

func (w *Worker) computeNextAttempt(job queue.PipelineJob) time.Time {
	base := time.Duration(job.RetryBaseMs) * time.Millisecond
	if base <= 0 {
		base = 2 * time.Second
	}
	maxDelay := time.Duration(job.RetryMaxMs) * time.Millisecond
	if maxDelay <= 0 {
		maxDelay = 2 * time.Minute
	}

	exponent := math.Pow(2, float64(job.Attempt-1))
	delay := time.Duration(exponent) * base
	if delay > maxDelay {
		delay = maxDelay
	}

	if job.RetryJitter > 0 {
		jitterFraction := w.rng.Float64()*job.RetryJitter - (job.RetryJitter / 2)
		jitter := time.Duration(float64(delay) * jitterFraction)
		delay += jitter
		if delay < base {
			delay = base
		}
	}

	return time.Now().UTC().Add(delay)
}
