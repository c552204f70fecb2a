package polly

import (
	"context"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"

	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/speech"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

type synthClient interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// Provider synthesizes speech through Amazon Polly as an alternative to
// the default HTTP synthesis endpoint.
type Provider struct {
	client synthClient
}

// New builds a Polly-backed provider for the given region.
func New(ctx context.Context, region string) (*Provider, error) {
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("polly: load aws config: %w", err)
	}
	return &Provider{client: polly.NewFromConfig(awsCfg)}, nil
}

// NewWithClient injects a synthesis client, used by tests.
func NewWithClient(client synthClient) *Provider {
	return &Provider{client: client}
}

// Synthesize issues the request asynchronously.
func (p *Provider) Synthesize(ctx context.Context, req speech.Request) *speech.Pending {
	pending := speech.NewPending()
	go p.run(ctx, req, pending)
	return pending
}

func (p *Provider) run(ctx context.Context, req speech.Request, pending *speech.Pending) {
	sampleRate := "16000"
	text := req.Text

	out, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       pollytypes.EngineStandard,
		OutputFormat: pollytypes.OutputFormatPcm,
		SampleRate:   &sampleRate,
		Text:         &text,
		TextType:     pollytypes.TextTypeText,
		VoiceId:      voiceFor(req),
		LanguageCode: pollytypes.LanguageCode(locale(req)),
	})
	if err != nil {
		pending.Reject(fmt.Errorf("%w: polly: %v", apperrors.ErrSynthesisFailed, err))
		return
	}
	if out == nil || out.AudioStream == nil {
		pending.Reject(fmt.Errorf("%w: polly returned no audio stream", apperrors.ErrSynthesisFailed))
		return
	}
	defer out.AudioStream.Close()

	pcm, err := io.ReadAll(out.AudioStream)
	if err != nil {
		pending.Reject(fmt.Errorf("%w: read polly stream: %v", apperrors.ErrSynthesisFailed, err))
		return
	}

	// Polly PCM output has no container; wrap it so the storage stage
	// receives the same WAV payload as the default provider.
	pending.ResolveAudio(speech.Audio{Data: wrapWAV(pcm, 16000), Format: speech.OutputFormat})
}

func locale(req speech.Request) string {
	if req.Locale != "" {
		return req.Locale
	}
	return speech.DefaultLocale
}

func voiceFor(req speech.Request) pollytypes.VoiceId {
	if req.Gender == domain.VoiceMale {
		return pollytypes.VoiceIdMatthew
	}
	return pollytypes.VoiceIdJoanna
}

// wrapWAV prefixes raw 16-bit mono PCM samples with a RIFF header.
func wrapWAV(pcm []byte, sampleRate uint32) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := uint16(channels * bitsPerSample / 8)
	dataLen := uint32(len(pcm))

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	putUint32(header[4:8], 36+dataLen)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	putUint32(header[16:20], 16)
	putUint16(header[20:22], 1) // PCM
	putUint16(header[22:24], channels)
	putUint32(header[24:28], sampleRate)
	putUint32(header[28:32], byteRate)
	putUint16(header[32:34], blockAlign)
	putUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	putUint32(header[40:44], dataLen)

	return append(header, pcm...)
}

func putUint16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
