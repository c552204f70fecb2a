package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Stage enumerates the pipeline stages of a text-to-call execution.
type Stage string

const (
	StageIdle           Stage = "idle"
	StageSynthesizing   Stage = "synthesizing"
	StageAudioReady     Stage = "audio_ready"
	StageUploading      Stage = "uploading"
	StageScriptComposed Stage = "script_composed"
	StageScriptUploaded Stage = "script_uploaded"
	StageCallPlaced     Stage = "call_placed"
	StageDone           Stage = "done"
	StageAborted        Stage = "aborted"
)

// Terminal reports whether the stage ends the pipeline.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageAborted
}

// VoiceGender selects the synthesis voice.
type VoiceGender string

const (
	VoiceFemale VoiceGender = "female"
	VoiceMale   VoiceGender = "male"
)

// ParseVoiceGender resolves a free-form voice type string.
// Anything other than "male" (case-insensitive) selects the female voice.
func ParseVoiceGender(raw string) VoiceGender {
	if strings.EqualFold(raw, string(VoiceMale)) {
		return VoiceMale
	}
	return VoiceFemale
}

// StorageTarget names the destination of the uploaded artifacts.
type StorageTarget struct {
	Container string
	BlobName  string
}

// CallRequest is the immutable input of one pipeline execution.
type CallRequest struct {
	Text         string
	TemplateKey  string
	UseTemplate  bool
	VoiceGender  VoiceGender
	Locale       string
	Storage      StorageTarget
	CallerNumber string
	CalleeNumber string
}

// Call is the persisted record of a pipeline execution.
type Call struct {
	ID             uuid.UUID
	Stage          Stage
	CalleeNumber   string
	CallerNumber   string
	Container      string
	BlobName       string
	AudioURI       string
	ScriptURI      string
	ProviderCallID string
	AttemptCount   int
	LastError      *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StageTransition records one stage change for observability.
type StageTransition struct {
	ID         uuid.UUID
	CallID     uuid.UUID
	AttemptNum int
	Stage      Stage
	Error      string
	OccurredAt time.Time
	Duration   time.Duration
}

// GreetingTemplate is a catalog entry mapping a key to a spoken phrase.
type GreetingTemplate struct {
	Key       string
	Text      string
	UpdatedAt time.Time
}
