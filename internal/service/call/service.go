package call

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/acme/text-to-call/internal/config"
	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/queue"
	"github.com/acme/text-to-call/internal/repository"
	"github.com/acme/text-to-call/internal/service/common"
	"github.com/acme/text-to-call/internal/storage"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

// Dispatcher pushes pipeline jobs onto the queue.
type Dispatcher interface {
	DispatchJob(ctx context.Context, job queue.PipelineJob) error
}

// Service coordinates call intake: validation, persistence, enqueue.
type Service struct {
	calls        repository.CallStore
	dispatcher   Dispatcher
	retry        config.RetryConfig
	callerNumber string
}

// NewService builds the call intake service. callerNumber is the
// default originating number when a request does not carry one.
func NewService(store repository.CallStore, dispatcher Dispatcher, retry config.RetryConfig, callerNumber string) *Service {
	return &Service{
		calls:        store,
		dispatcher:   dispatcher,
		retry:        retry,
		callerNumber: callerNumber,
	}
}

// TriggerCallInput encapsulates the arguments for triggering a call.
type TriggerCallInput struct {
	Text         string
	TemplateKey  string
	UseTemplate  bool
	VoiceType    string
	Locale       string
	Container    string
	BlobName     string
	CallerNumber string
	CalleeNumber string
}

// TriggerCall validates the request, records it, and enqueues the job.
func (s *Service) TriggerCall(ctx context.Context, input TriggerCallInput) (*domain.Call, error) {
	if input.CalleeNumber == "" {
		return nil, fmt.Errorf("%w: callee number is required", apperrors.ErrValidation)
	}
	if input.Text == "" && input.TemplateKey == "" {
		return nil, fmt.Errorf("%w: text or template key is required", apperrors.ErrValidation)
	}
	if input.Container == "" || input.BlobName == "" {
		return nil, fmt.Errorf("%w: container and blob name are required", apperrors.ErrMissingStorageConfig)
	}
	if err := storage.ValidateAudioBlobName(input.BlobName); err != nil {
		return nil, err
	}

	caller := input.CallerNumber
	if caller == "" {
		caller = s.callerNumber
	}

	now := time.Now().UTC()
	record := &domain.Call{
		ID:           uuid.New(),
		Stage:        domain.StageIdle,
		CalleeNumber: input.CalleeNumber,
		CallerNumber: caller,
		Container:    input.Container,
		BlobName:     input.BlobName,
		AttemptCount: 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.calls.CreateCall(ctx, record); err != nil {
		return nil, fmt.Errorf("call service: persist call: %w", err)
	}

	job := queue.PipelineJob{
		CallID:       record.ID,
		Text:         input.Text,
		TemplateKey:  input.TemplateKey,
		UseTemplate:  input.UseTemplate,
		VoiceType:    input.VoiceType,
		Locale:       input.Locale,
		Container:    input.Container,
		BlobName:     input.BlobName,
		CallerNumber: caller,
		CalleeNumber: input.CalleeNumber,
		Attempt:      1,
		MaxAttempts:  s.retry.MaxAttempts,
		RetryBaseMs:  s.retry.BaseDelay.Milliseconds(),
		RetryMaxMs:   s.retry.MaxDelay.Milliseconds(),
		RetryJitter:  s.retry.Jitter,
		EnqueuedAt:   now,
	}

	if err := s.dispatcher.DispatchJob(ctx, job); err != nil {
		return nil, fmt.Errorf("call service: dispatch job: %w", err)
	}

	return record, nil
}

// GetCall retrieves a call by id.
func (s *Service) GetCall(ctx context.Context, id uuid.UUID) (*domain.Call, error) {
	return s.calls.GetCall(ctx, id)
}

// ListRecentCallsResult carries one page of recent calls.
type ListRecentCallsResult struct {
	Calls       []domain.Call
	PagingState []byte
}

// ListRecentCalls lists calls with pagination token.
func (s *Service) ListRecentCalls(ctx context.Context, limit int, pagingState []byte) (*ListRecentCallsResult, error) {
	calls, next, err := s.calls.ListRecentCalls(ctx, limit, pagingState)
	if err != nil {
		return nil, err
	}
	return &ListRecentCallsResult{Calls: calls, PagingState: next}, nil
}

// EncodePagingState converts the paging state to base64 for API responses.
func EncodePagingState(state []byte) string {
	if len(state) == 0 {
		return ""
	}
	return common.EncodeBase64(state)
}

// DecodePagingState decodes a base64 token to paging state bytes.
func DecodePagingState(token string) ([]byte, error) {
	if token == "" {
		return nil, nil
	}
	return common.DecodeBase64(token)
}
