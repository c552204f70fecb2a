package status

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/text-to-call/internal/app"
	"github.com/acme/text-to-call/internal/queue"
	"github.com/acme/text-to-call/internal/repository"
)

// Worker consumes pipeline status events and persists them.
type Worker struct {
	container *app.Container
}

// New creates a new status worker.
func New(container *app.Container) *Worker {
	return &Worker{container: container}
}

// Run processes status events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	cfg := w.container.Config
	groupID := cfg.Kafka.ConsumerGroupID + "-status"
	reader := w.container.Kafka.NewReader(cfg.Kafka.StatusTopic, groupID)
	defer reader.Close()

	store := w.container.Repositories().CallStore
	retryScheduler := w.container.Dispatchers().RetryScheduler
	logger := w.container.Logger

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("status worker: fetch", zap.Error(err))
			continue
		}

		var status queue.StatusMessage
		if err := json.Unmarshal(msg.Value, &status); err != nil {
			logger.Error("status worker: unmarshal", zap.Error(err))
			_ = reader.CommitMessages(ctx, msg)
			continue
		}

		tracer := otel.Tracer("outcall.statusworker")
		sctx, span := tracer.Start(ctx, "pipeline.status", trace.WithAttributes(
			attribute.String("call.id", status.CallID.String()),
			attribute.String("stage", string(status.Stage)),
			attribute.Int("attempt", status.Attempt),
		))

		update := repository.CallUpdate{
			CallID:         status.CallID,
			Stage:          status.Stage,
			AttemptCount:   status.Attempt,
			AudioURI:       status.AudioURI,
			ScriptURI:      status.ScriptURI,
			ProviderCallID: status.ProviderCallID,
			LastError:      optionalString(status.Error),
		}
		if err := store.UpdateCall(sctx, update); err != nil {
			span.RecordError(err)
			logger.Error("status worker: update call", zap.Error(err))
		}

		if status.Retryable && status.NextAttempt != nil && status.Job != nil {
			retryMsg := queue.RetryMessage{
				PipelineJob: *status.Job,
				NextAttempt: *status.NextAttempt,
			}
			if err := retryScheduler.ScheduleRetry(sctx, status.Attempt, retryMsg); err != nil {
				span.RecordError(err)
				logger.Error("status worker: schedule retry", zap.Error(err))
			}
		}

		if err := reader.CommitMessages(sctx, msg); err != nil {
			span.RecordError(err)
			logger.Error("status worker: commit", zap.Error(err))
		}
		span.End()
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
