package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/acme/text-to-call/internal/domain"
)

// PipelineJob instructs a worker to run one text-to-call execution.
type PipelineJob struct {
	CallID       uuid.UUID `json:"call_id"`
	Text         string    `json:"text"`
	TemplateKey  string    `json:"template_key,omitempty"`
	UseTemplate  bool      `json:"use_template"`
	VoiceType    string    `json:"voice_type"`
	Locale       string    `json:"locale"`
	Container    string    `json:"container"`
	BlobName     string    `json:"blob_name"`
	CallerNumber string    `json:"caller_number"`
	CalleeNumber string    `json:"callee_number"`
	Attempt      int       `json:"attempt"`
	MaxAttempts  int       `json:"max_attempts"`
	RetryBaseMs  int64     `json:"retry_base_ms"`
	RetryMaxMs   int64     `json:"retry_max_ms"`
	RetryJitter  float64   `json:"retry_jitter"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Request converts the job payload into the pipeline input.
func (j PipelineJob) Request() domain.CallRequest {
	return domain.CallRequest{
		Text:        j.Text,
		TemplateKey: j.TemplateKey,
		UseTemplate: j.UseTemplate,
		VoiceGender: domain.ParseVoiceGender(j.VoiceType),
		Locale:      j.Locale,
		Storage: domain.StorageTarget{
			Container: j.Container,
			BlobName:  j.BlobName,
		},
		CallerNumber: j.CallerNumber,
		CalleeNumber: j.CalleeNumber,
	}
}

// StatusMessage reports the outcome of one pipeline execution attempt.
type StatusMessage struct {
	CallID         uuid.UUID    `json:"call_id"`
	CalleeNumber   string       `json:"callee_number"`
	Stage          domain.Stage `json:"stage"`
	Attempt        int          `json:"attempt"`
	MaxAttempts    int          `json:"max_attempts"`
	Retryable      bool         `json:"retryable"`
	RetryBaseMs    int64        `json:"retry_base_ms"`
	RetryMaxMs     int64        `json:"retry_max_ms"`
	RetryJitter    float64      `json:"retry_jitter"`
	AudioURI       string       `json:"audio_uri,omitempty"`
	ScriptURI      string       `json:"script_uri,omitempty"`
	ProviderCallID string       `json:"provider_call_id,omitempty"`
	DurationMs     int64        `json:"duration_ms"`
	Error          string       `json:"error,omitempty"`
	OccurredAt     time.Time    `json:"occurred_at"`
	NextAttempt    *time.Time   `json:"next_attempt,omitempty"`
	Job            *PipelineJob `json:"job,omitempty"`
}

// RetryMessage schedules a deferred re-run of a failed job.
type RetryMessage struct {
	PipelineJob
	NextAttempt time.Time `json:"next_attempt"`
}
