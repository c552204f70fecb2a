package polly

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/speech"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

type fakeSynthClient struct {
	input *polly.SynthesizeSpeechInput
	pcm   []byte
	err   error
}

func (f *fakeSynthClient) SynthesizeSpeech(_ context.Context, params *polly.SynthesizeSpeechInput, _ ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &polly.SynthesizeSpeechOutput{
		AudioStream: io.NopCloser(bytes.NewReader(f.pcm)),
	}, nil
}

func TestSynthesizeWrapsWAV(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	fake := &fakeSynthClient{pcm: pcm}
	provider := NewWithClient(fake)

	pending := provider.Synthesize(context.Background(), speech.Request{
		Text:   "hello",
		Gender: domain.VoiceMale,
	})

	audio, err := pending.Await(context.Background())
	if err != nil {
		t.Fatalf("Await returned error: %v", err)
	}

	if len(audio.Data) != 44+len(pcm) {
		t.Fatalf("audio length = %d, want header plus %d samples", len(audio.Data), len(pcm))
	}
	if string(audio.Data[0:4]) != "RIFF" {
		t.Errorf("missing RIFF magic: %q", audio.Data[0:4])
	}
	if string(audio.Data[8:12]) != "WAVE" {
		t.Errorf("missing WAVE magic: %q", audio.Data[8:12])
	}
	if !bytes.Equal(audio.Data[44:], pcm) {
		t.Errorf("pcm payload altered: %v", audio.Data[44:])
	}

	if fake.input.VoiceId != pollytypes.VoiceIdMatthew {
		t.Errorf("voice = %s, want Matthew for male", fake.input.VoiceId)
	}
	if *fake.input.Text != "hello" {
		t.Errorf("text = %q", *fake.input.Text)
	}
	if fake.input.OutputFormat != pollytypes.OutputFormatPcm {
		t.Errorf("output format = %s", fake.input.OutputFormat)
	}
}

func TestSynthesizeFemaleVoice(t *testing.T) {
	fake := &fakeSynthClient{pcm: []byte{0}}
	provider := NewWithClient(fake)

	pending := provider.Synthesize(context.Background(), speech.Request{Text: "hi"})
	if _, err := pending.Await(context.Background()); err != nil {
		t.Fatalf("Await returned error: %v", err)
	}
	if fake.input.VoiceId != pollytypes.VoiceIdJoanna {
		t.Errorf("voice = %s, want Joanna for female default", fake.input.VoiceId)
	}
}

func TestSynthesizeProviderError(t *testing.T) {
	fake := &fakeSynthClient{err: errors.New("throttled")}
	provider := NewWithClient(fake)

	pending := provider.Synthesize(context.Background(), speech.Request{Text: "hi"})
	_, err := pending.Await(context.Background())
	if !errors.Is(err, apperrors.ErrSynthesisFailed) {
		t.Fatalf("error = %v, want ErrSynthesisFailed", err)
	}
}
