package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/speech"
	"github.com/acme/text-to-call/internal/storage"
	"github.com/acme/text-to-call/internal/telephony"
	apperrors "github.com/acme/text-to-call/pkg/errors"
	"github.com/acme/text-to-call/pkg/logger"
)

type fakeSynth struct {
	called bool
	req    speech.Request
	audio  []byte
	err    error
	never  bool
}

func (f *fakeSynth) Synthesize(_ context.Context, req speech.Request) *speech.Pending {
	f.called = true
	f.req = req
	pending := speech.NewPending()
	if f.never {
		return pending
	}
	if f.err != nil {
		pending.Reject(f.err)
		return pending
	}
	pending.ResolveAudio(speech.Audio{Data: f.audio, Format: speech.OutputFormat})
	return pending
}

type fakeStore struct {
	audioErr    error
	scriptErr   error
	audioCalls  int
	scriptCalls int
	audioData   []byte
	scriptDoc   string
}

func (f *fakeStore) UploadAudio(_ context.Context, target domain.StorageTarget, data []byte) (string, error) {
	f.audioCalls++
	if f.audioErr != nil {
		return "", f.audioErr
	}
	f.audioData = data
	return "http://files.local/" + target.Container + "/" + target.BlobName, nil
}

func (f *fakeStore) UploadScript(_ context.Context, target domain.StorageTarget, document string) (string, error) {
	f.scriptCalls++
	if f.scriptErr != nil {
		return "", f.scriptErr
	}
	f.scriptDoc = document
	return "http://files.local/" + target.Container + "/" + storage.ScriptBlobName(target.BlobName), nil
}

type fakeDispatcher struct {
	called bool
	req    telephony.Request
	err    error
}

func (f *fakeDispatcher) PlaceCall(_ context.Context, req telephony.Request) (telephony.Call, error) {
	f.called = true
	f.req = req
	if f.err != nil {
		return telephony.Call{}, f.err
	}
	return telephony.Call{ProviderCallID: "CA123", Status: "queued"}, nil
}

func testLogger() *logger.Logger {
	return &logger.Logger{Logger: zap.NewNop()}
}

func validRequest() domain.CallRequest {
	return domain.CallRequest{
		Text:         "hello there",
		VoiceGender:  domain.VoiceFemale,
		Storage:      domain.StorageTarget{Container: "speech", BlobName: "greet.wav"},
		CallerNumber: "+15550001111",
		CalleeNumber: "+15550002222",
	}
}

func TestRunSuccess(t *testing.T) {
	synth := &fakeSynth{audio: []byte("RIFFdata")}
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}

	o := New(synth, store, dispatcher, StaticCatalog{}, testLogger(), Options{})

	var stages []domain.Stage
	result, err := o.Run(context.Background(), validRequest(), func(stage domain.Stage) {
		stages = append(stages, stage)
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.AudioURI != "http://files.local/speech/greet.wav" {
		t.Errorf("unexpected audio uri: %s", result.AudioURI)
	}
	if result.ScriptURI != "http://files.local/speech/greet.xml" {
		t.Errorf("unexpected script uri: %s", result.ScriptURI)
	}
	if result.ProviderCallID != "CA123" {
		t.Errorf("unexpected provider call id: %s", result.ProviderCallID)
	}
	if dispatcher.req.ScriptURI != result.ScriptURI {
		t.Errorf("dispatcher received script uri %q, want %q", dispatcher.req.ScriptURI, result.ScriptURI)
	}
	if string(store.audioData) != "RIFFdata" {
		t.Errorf("uploaded audio mismatch: %q", store.audioData)
	}

	want := []domain.Stage{
		domain.StageIdle,
		domain.StageSynthesizing,
		domain.StageAudioReady,
		domain.StageUploading,
		domain.StageScriptComposed,
		domain.StageScriptUploaded,
		domain.StageCallPlaced,
		domain.StageDone,
	}
	if len(stages) != len(want) {
		t.Fatalf("stage sequence %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage[%d] = %s, want %s", i, stages[i], want[i])
		}
	}
}

func TestRunMissingStorageConfig(t *testing.T) {
	synth := &fakeSynth{audio: []byte("x")}
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}

	o := New(synth, store, dispatcher, StaticCatalog{}, testLogger(), Options{})

	req := validRequest()
	req.Storage.Container = ""

	_, err := o.Run(context.Background(), req, nil)
	if !errors.Is(err, apperrors.ErrMissingStorageConfig) {
		t.Fatalf("error = %v, want ErrMissingStorageConfig", err)
	}
	if synth.called {
		t.Error("synthesizer invoked despite invalid storage config")
	}
	if store.audioCalls != 0 || dispatcher.called {
		t.Error("later stages ran despite precheck failure")
	}
}

func TestRunUnsupportedFormat(t *testing.T) {
	synth := &fakeSynth{audio: []byte("x")}
	o := New(synth, &fakeStore{}, &fakeDispatcher{}, StaticCatalog{}, testLogger(), Options{})

	req := validRequest()
	req.Storage.BlobName = "greet.mp3"

	_, err := o.Run(context.Background(), req, nil)
	if !errors.Is(err, apperrors.ErrUnsupportedFormat) {
		t.Fatalf("error = %v, want ErrUnsupportedFormat", err)
	}
	if synth.called {
		t.Error("synthesizer invoked despite unsupported blob name")
	}
}

func TestRunEmptyText(t *testing.T) {
	synth := &fakeSynth{}
	o := New(synth, &fakeStore{}, &fakeDispatcher{}, StaticCatalog{}, testLogger(), Options{})

	req := validRequest()
	req.Text = ""

	_, err := o.Run(context.Background(), req, nil)
	if !errors.Is(err, apperrors.ErrMissingInput) {
		t.Fatalf("error = %v, want ErrMissingInput", err)
	}
	if synth.called {
		t.Error("synthesizer invoked with no text")
	}
}

func TestRunTemplateUnknownKey(t *testing.T) {
	synth := &fakeSynth{}
	o := New(synth, &fakeStore{}, &fakeDispatcher{}, StaticCatalog{"Greeting1": "hi"}, testLogger(), Options{})

	req := validRequest()
	req.UseTemplate = true
	req.TemplateKey = "Missing"

	_, err := o.Run(context.Background(), req, nil)
	if !errors.Is(err, apperrors.ErrMissingInput) {
		t.Fatalf("error = %v, want ErrMissingInput", err)
	}
	if synth.called {
		t.Error("synthesizer invoked for unknown template key")
	}
}

func TestRunTemplateResolvesText(t *testing.T) {
	synth := &fakeSynth{audio: []byte("x")}
	o := New(synth, &fakeStore{}, &fakeDispatcher{}, StaticCatalog{"Greeting1": "resolved phrase"}, testLogger(), Options{})

	req := validRequest()
	req.UseTemplate = true
	req.TemplateKey = "Greeting1"
	req.Text = ""

	if _, err := o.Run(context.Background(), req, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if synth.req.Text != "resolved phrase" {
		t.Errorf("synthesized text %q, want resolved template", synth.req.Text)
	}
}

func TestRunTemplateKeyFallsBackToText(t *testing.T) {
	synth := &fakeSynth{audio: []byte("x")}
	o := New(synth, &fakeStore{}, &fakeDispatcher{}, StaticCatalog{"Greeting2": "from text field"}, testLogger(), Options{})

	req := validRequest()
	req.UseTemplate = true
	req.Text = "Greeting2"

	if _, err := o.Run(context.Background(), req, nil); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if synth.req.Text != "from text field" {
		t.Errorf("synthesized text %q, want template resolved via text field", synth.req.Text)
	}
}

func TestRunSynthesisFailure(t *testing.T) {
	synthErr := apperrors.Wrap(apperrors.ErrSynthesisFailed, "provider returned 500")
	synth := &fakeSynth{err: synthErr}
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{}

	o := New(synth, store, dispatcher, StaticCatalog{}, testLogger(), Options{})

	var last domain.Stage
	_, err := o.Run(context.Background(), validRequest(), func(stage domain.Stage) { last = stage })
	if !errors.Is(err, apperrors.ErrSynthesisFailed) {
		t.Fatalf("error = %v, want ErrSynthesisFailed", err)
	}
	if store.audioCalls != 0 {
		t.Error("upload attempted after synthesis failure")
	}
	if dispatcher.called {
		t.Error("call placed after synthesis failure")
	}
	if last != domain.StageAborted {
		t.Errorf("final stage %s, want aborted", last)
	}
}

func TestRunSynthesisTimeout(t *testing.T) {
	synth := &fakeSynth{never: true}
	o := New(synth, &fakeStore{}, &fakeDispatcher{}, StaticCatalog{}, testLogger(), Options{
		SynthesisTimeout: 30 * time.Millisecond,
	})

	_, err := o.Run(context.Background(), validRequest(), nil)
	if !errors.Is(err, apperrors.ErrSynthesisFailed) {
		t.Fatalf("error = %v, want ErrSynthesisFailed", err)
	}
}

func TestRunUploadFailure(t *testing.T) {
	uploadErr := apperrors.Wrap(apperrors.ErrStorageUploadFailed, "connection refused")
	synth := &fakeSynth{audio: []byte("x")}
	store := &fakeStore{audioErr: uploadErr}
	dispatcher := &fakeDispatcher{}

	o := New(synth, store, dispatcher, StaticCatalog{}, testLogger(), Options{})

	_, err := o.Run(context.Background(), validRequest(), nil)
	if !errors.Is(err, apperrors.ErrStorageUploadFailed) {
		t.Fatalf("error = %v, want ErrStorageUploadFailed", err)
	}
	if store.scriptCalls != 0 {
		t.Error("script uploaded after audio upload failure")
	}
	if dispatcher.called {
		t.Error("call placed after upload failure")
	}
}

func TestRunDispatchFailure(t *testing.T) {
	dispatchErr := apperrors.Wrap(apperrors.ErrDispatchFailed, "provider returned 401")
	synth := &fakeSynth{audio: []byte("x")}
	store := &fakeStore{}
	dispatcher := &fakeDispatcher{err: dispatchErr}

	o := New(synth, store, dispatcher, StaticCatalog{}, testLogger(), Options{})

	_, err := o.Run(context.Background(), validRequest(), nil)
	if !errors.Is(err, apperrors.ErrDispatchFailed) {
		t.Fatalf("error = %v, want ErrDispatchFailed", err)
	}
	if store.audioCalls != 1 || store.scriptCalls != 1 {
		t.Error("artifacts should be uploaded before dispatch fails")
	}
}
