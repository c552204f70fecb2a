package speech

import (
	"context"
	"fmt"

	"github.com/acme/text-to-call/internal/domain"
)

// DefaultLocale is used when a request carries no locale.
const DefaultLocale = "en-US"

// OutputFormat is the wire name of the synthesis audio encoding.
// The pipeline only handles PCM WAV containers.
const OutputFormat = "riff-16khz-16bit-mono-pcm"

// Request carries the parameters of one synthesis call.
type Request struct {
	Text      string
	Gender    domain.VoiceGender
	Locale    string
	VoiceName string
}

// Audio is the synthesized result.
type Audio struct {
	Data   []byte
	Format string
}

// Synthesizer starts an asynchronous synthesis request. The returned
// Pending resolves exactly once, with either audio or an error.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) *Pending
}

// serverVoices maps locale/gender pairs to the provider voice identity.
var serverVoices = map[string]map[domain.VoiceGender]string{
	"en-US": {
		domain.VoiceFemale: "Microsoft Server Speech Text to Speech Voice (en-US, ZiraRUS)",
		domain.VoiceMale:   "Microsoft Server Speech Text to Speech Voice (en-US, BenjaminRUS)",
	},
	"en-GB": {
		domain.VoiceFemale: "Microsoft Server Speech Text to Speech Voice (en-GB, Susan, Apollo)",
		domain.VoiceMale:   "Microsoft Server Speech Text to Speech Voice (en-GB, George, Apollo)",
	},
}

// VoiceName resolves the voice identity for a locale and gender,
// falling back to the generic server voice naming scheme.
func VoiceName(locale string, gender domain.VoiceGender) string {
	if locale == "" {
		locale = DefaultLocale
	}
	if voices, ok := serverVoices[locale]; ok {
		if name, ok := voices[gender]; ok {
			return name
		}
	}
	return fmt.Sprintf("Microsoft Server Speech Text to Speech Voice (%s)", locale)
}
