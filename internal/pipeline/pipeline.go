package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/speech"
	"github.com/acme/text-to-call/internal/storage"
	"github.com/acme/text-to-call/internal/telephony"
	"github.com/acme/text-to-call/internal/twiml"
	apperrors "github.com/acme/text-to-call/pkg/errors"
	"github.com/acme/text-to-call/pkg/logger"
)

// ArtifactStore persists pipeline artifacts and returns their URIs.
type ArtifactStore interface {
	UploadAudio(ctx context.Context, target domain.StorageTarget, data []byte) (string, error)
	UploadScript(ctx context.Context, target domain.StorageTarget, document string) (string, error)
}

// StageObserver is notified on every stage transition. Observers must
// not block; the pipeline calls them inline.
type StageObserver func(stage domain.Stage)

// Result is the outcome of a completed pipeline run. AudioURI is the
// externally observable result; the placed call is fire-and-forget.
type Result struct {
	AudioURI       string
	ScriptURI      string
	ProviderCallID string
}

// Options tune a single orchestrator instance.
type Options struct {
	SynthesisTimeout time.Duration
	IntroPhrase      string
}

// Orchestrator owns the end-to-end text-to-call sequence.
type Orchestrator struct {
	synth      speech.Synthesizer
	store      ArtifactStore
	dispatcher telephony.Dispatcher
	catalog    Catalog
	logger     *logger.Logger
	opts       Options
}

// New builds an orchestrator.
func New(synth speech.Synthesizer, store ArtifactStore, dispatcher telephony.Dispatcher, catalog Catalog, lg *logger.Logger, opts Options) *Orchestrator {
	if opts.SynthesisTimeout <= 0 {
		opts.SynthesisTimeout = 60 * time.Second
	}
	if opts.IntroPhrase == "" {
		opts.IntroPhrase = twiml.DefaultIntroPhrase
	}
	return &Orchestrator{
		synth:      synth,
		store:      store,
		dispatcher: dispatcher,
		catalog:    catalog,
		logger:     lg,
		opts:       opts,
	}
}

// execution holds all per-invocation state so that concurrent runs on
// the same orchestrator never share mutable fields.
type execution struct {
	req     domain.CallRequest
	text    string
	audio   speech.Audio
	result  Result
	observe StageObserver
}

func (e *execution) transition(stage domain.Stage) {
	if e.observe != nil {
		e.observe(stage)
	}
}

// Run executes the pipeline for one request. Each stage is a hard
// precondition for the next; the first failure aborts the remainder.
func (o *Orchestrator) Run(ctx context.Context, req domain.CallRequest, observe StageObserver) (Result, error) {
	exec := &execution{req: req, observe: observe}

	tracer := otel.Tracer("outcall.pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("callee.number", req.CalleeNumber),
		attribute.String("storage.container", req.Storage.Container),
		attribute.String("storage.blob", req.Storage.BlobName),
	))
	defer span.End()

	steps := []struct {
		stage domain.Stage
		fn    func(context.Context, *execution) error
	}{
		{domain.StageIdle, o.precheck},
		{domain.StageSynthesizing, o.synthesize},
		{domain.StageUploading, o.uploadAudio},
		{domain.StageScriptComposed, o.uploadScript},
		{domain.StageCallPlaced, o.placeCall},
	}

	for _, step := range steps {
		exec.transition(step.stage)
		if err := step.fn(ctx, exec); err != nil {
			exec.transition(domain.StageAborted)
			span.RecordError(err)
			return Result{}, err
		}
	}

	exec.transition(domain.StageDone)
	return exec.result, nil
}

// precheck resolves the text and validates everything that can fail
// without touching the network.
func (o *Orchestrator) precheck(ctx context.Context, exec *execution) error {
	text := exec.req.Text
	if exec.req.UseTemplate {
		key := exec.req.TemplateKey
		if key == "" {
			key = exec.req.Text
		}
		resolved, err := o.catalog.Resolve(ctx, key)
		if err != nil {
			return err
		}
		text = resolved
	}
	if text == "" {
		return fmt.Errorf("%w: no text to synthesize", apperrors.ErrMissingInput)
	}
	exec.text = text

	if exec.req.Storage.Container == "" || exec.req.Storage.BlobName == "" {
		return fmt.Errorf("%w: container and blob name are required", apperrors.ErrMissingStorageConfig)
	}
	if err := storage.ValidateAudioBlobName(exec.req.Storage.BlobName); err != nil {
		return err
	}
	return nil
}

// synthesize blocks on the completion barrier with a bounded wait.
func (o *Orchestrator) synthesize(ctx context.Context, exec *execution) error {
	tracer := otel.Tracer("outcall.pipeline")
	sctx, span := tracer.Start(ctx, "pipeline.synthesize")
	defer span.End()

	waitCtx, cancel := context.WithTimeout(sctx, o.opts.SynthesisTimeout)
	defer cancel()

	pending := o.synth.Synthesize(waitCtx, speech.Request{
		Text:   exec.text,
		Gender: exec.req.VoiceGender,
		Locale: exec.req.Locale,
	})

	audio, err := pending.Await(waitCtx)
	if err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return fmt.Errorf("%w: synthesis timed out after %s", apperrors.ErrSynthesisFailed, o.opts.SynthesisTimeout)
		}
		return err
	}

	exec.audio = audio
	exec.transition(domain.StageAudioReady)
	return nil
}

func (o *Orchestrator) uploadAudio(ctx context.Context, exec *execution) error {
	tracer := otel.Tracer("outcall.pipeline")
	sctx, span := tracer.Start(ctx, "pipeline.upload_audio")
	defer span.End()

	uri, err := o.store.UploadAudio(sctx, exec.req.Storage, exec.audio.Data)
	if err != nil {
		return err
	}
	exec.result.AudioURI = uri
	o.logger.Debug("pipeline: audio uploaded", zap.String("uri", uri))
	return nil
}

func (o *Orchestrator) uploadScript(ctx context.Context, exec *execution) error {
	tracer := otel.Tracer("outcall.pipeline")
	sctx, span := tracer.Start(ctx, "pipeline.upload_script")
	defer span.End()

	document, err := twiml.Compose(exec.req.VoiceGender, o.opts.IntroPhrase, exec.result.AudioURI)
	if err != nil {
		return fmt.Errorf("%w: compose script: %v", apperrors.ErrStorageUploadFailed, err)
	}

	uri, err := o.store.UploadScript(sctx, exec.req.Storage, document)
	if err != nil {
		return err
	}
	exec.result.ScriptURI = uri
	exec.transition(domain.StageScriptUploaded)
	return nil
}

func (o *Orchestrator) placeCall(ctx context.Context, exec *execution) error {
	tracer := otel.Tracer("outcall.pipeline")
	sctx, span := tracer.Start(ctx, "pipeline.place_call")
	defer span.End()

	call, err := o.dispatcher.PlaceCall(sctx, telephony.Request{
		CallerNumber: exec.req.CallerNumber,
		CalleeNumber: exec.req.CalleeNumber,
		ScriptURI:    exec.result.ScriptURI,
	})
	if err != nil {
		return err
	}
	exec.result.ProviderCallID = call.ProviderCallID
	o.logger.Info("pipeline: call placed",
		zap.String("provider_call_id", call.ProviderCallID),
		zap.String("status", call.Status),
	)
	return nil
}
