package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/acme/text-to-call/internal/domain"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

var (
	// ErrNotFound indicates the entity was not located.
	ErrNotFound = apperrors.ErrNotFound
	// ErrConflict indicates a unique constraint violation.
	ErrConflict = apperrors.ErrConflict
)

// CallStore persists pipeline execution records.
type CallStore interface {
	CreateCall(ctx context.Context, record *domain.Call) error
	UpdateCall(ctx context.Context, update CallUpdate) error
	GetCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	ListRecentCalls(ctx context.Context, limit int, pagingState []byte) ([]domain.Call, []byte, error)
	AppendTransition(ctx context.Context, transition domain.StageTransition) error
}

// CallUpdate carries the fields touched by a status event.
type CallUpdate struct {
	CallID         uuid.UUID
	Stage          domain.Stage
	AttemptCount   int
	AudioURI       string
	ScriptURI      string
	ProviderCallID string
	LastError      *string
}

// TemplateRepository manages the greeting template catalog.
type TemplateRepository interface {
	Upsert(ctx context.Context, template domain.GreetingTemplate) error
	Get(ctx context.Context, key string) (*domain.GreetingTemplate, error)
	List(ctx context.Context) ([]domain.GreetingTemplate, error)
	Delete(ctx context.Context, key string) error
}
