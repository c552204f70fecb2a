package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/repository"
)

// CallStore persists call records in Scylla.
type CallStore struct {
	session *gocql.Session
}

// NewCallStore creates a new call store.
func NewCallStore(session *gocql.Session) *CallStore {
	return &CallStore{session: session}
}

// CreateCall inserts a call record into the lookup and day-bucket tables.
func (s *CallStore) CreateCall(ctx context.Context, record *domain.Call) error {
	if err := s.session.Query(`INSERT INTO calls (call_id, stage, callee_number, caller_number, container, blob_name, audio_uri, script_uri, provider_call_id, attempt_count, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(), string(record.Stage), record.CalleeNumber, record.CallerNumber,
		record.Container, record.BlobName, record.AudioURI, record.ScriptURI, record.ProviderCallID,
		record.AttemptCount, record.LastError, record.CreatedAt, record.UpdatedAt,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("call store: insert calls: %w", err)
	}

	if err := s.session.Query(`INSERT INTO calls_by_day (bucket, created_at, call_id, callee_number, stage)
		VALUES (?, ?, ?, ?, ?)`,
		bucketDate(record.CreatedAt), record.CreatedAt, record.ID.String(), record.CalleeNumber, string(record.Stage),
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("call store: insert calls_by_day: %w", err)
	}

	return nil
}

// UpdateCall applies a status event to the call record.
func (s *CallStore) UpdateCall(ctx context.Context, update repository.CallUpdate) error {
	call, err := s.GetCall(ctx, update.CallID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	audioURI := pick(update.AudioURI, call.AudioURI)
	scriptURI := pick(update.ScriptURI, call.ScriptURI)
	providerCallID := pick(update.ProviderCallID, call.ProviderCallID)

	if err := s.session.Query(`UPDATE calls SET stage = ?, attempt_count = ?, audio_uri = ?, script_uri = ?, provider_call_id = ?, last_error = ?, updated_at = ?
		WHERE call_id = ?`,
		string(update.Stage), update.AttemptCount, audioURI, scriptURI, providerCallID, update.LastError, now,
		update.CallID.String(),
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("call store: update calls: %w", err)
	}

	if err := s.session.Query(`UPDATE calls_by_day SET stage = ? WHERE bucket = ? AND created_at = ? AND call_id = ?`,
		string(update.Stage), bucketDate(call.CreatedAt), call.CreatedAt, update.CallID.String(),
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("call store: update calls_by_day: %w", err)
	}

	return nil
}

// GetCall retrieves a call by ID.
func (s *CallStore) GetCall(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	var (
		idStr          string
		stage          string
		callee         string
		caller         string
		container      string
		blobName       string
		audioURI       string
		scriptURI      string
		providerCallID string
		attemptCount   int
		lastError      *string
		created        time.Time
		updated        time.Time
	)

	err := s.session.Query(`SELECT call_id, stage, callee_number, caller_number, container, blob_name, audio_uri, script_uri, provider_call_id, attempt_count, last_error, created_at, updated_at
		FROM calls WHERE call_id = ?`, callID.String()).WithContext(ctx).
		Scan(&idStr, &stage, &callee, &caller, &container, &blobName, &audioURI, &scriptURI, &providerCallID, &attemptCount, &lastError, &created, &updated)
	if err != nil {
		if err == gocql.ErrNotFound {
			return nil, fmt.Errorf("call store: call %s: %w", callID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("call store: fetch call: %w", err)
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("call store: parse call_id: %w", err)
	}

	return &domain.Call{
		ID:             id,
		Stage:          domain.Stage(stage),
		CalleeNumber:   callee,
		CallerNumber:   caller,
		Container:      container,
		BlobName:       blobName,
		AudioURI:       audioURI,
		ScriptURI:      scriptURI,
		ProviderCallID: providerCallID,
		AttemptCount:   attemptCount,
		LastError:      lastError,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}, nil
}

// ListRecentCalls pages through today's bucket, newest first.
func (s *CallStore) ListRecentCalls(ctx context.Context, limit int, pagingState []byte) ([]domain.Call, []byte, error) {
	if limit <= 0 {
		limit = 100
	}

	query := s.session.Query(`SELECT created_at, call_id, callee_number, stage
		FROM calls_by_day WHERE bucket = ? ORDER BY created_at DESC`,
		bucketDate(time.Now().UTC())).WithContext(ctx)
	query = query.PageSize(limit)
	if len(pagingState) > 0 {
		query = query.PageState(pagingState)
	}

	iter := query.Iter()
	calls := make([]domain.Call, 0, limit)

	var (
		created   time.Time
		callIDStr string
		callee    string
		stage     string
	)

	for iter.Scan(&created, &callIDStr, &callee, &stage) {
		callID, err := uuid.Parse(callIDStr)
		if err != nil {
			continue
		}
		calls = append(calls, domain.Call{
			ID:           callID,
			Stage:        domain.Stage(stage),
			CalleeNumber: callee,
			CreatedAt:    created,
		})
	}

	if err := iter.Close(); err != nil {
		return nil, nil, fmt.Errorf("call store: iter close: %w", err)
	}

	return calls, iter.PageState(), nil
}

// AppendTransition appends a stage transition record.
func (s *CallStore) AppendTransition(ctx context.Context, transition domain.StageTransition) error {
	durationMs := int64(transition.Duration / time.Millisecond)
	if err := s.session.Query(`INSERT INTO call_transitions (call_id, occurred_at, transition_id, attempt_number, stage, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		transition.CallID.String(), transition.OccurredAt, transition.ID.String(),
		transition.AttemptNum, string(transition.Stage), transition.Error, durationMs,
	).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("call store: append transition: %w", err)
	}
	return nil
}

func pick(updated, current string) string {
	if updated != "" {
		return updated
	}
	return current
}

func bucketDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
