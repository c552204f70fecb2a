package twiml

import (
	"bytes"
	"encoding/xml"

	"github.com/acme/text-to-call/internal/domain"
)

// DefaultIntroPhrase is spoken before the synthesized audio plays.
const DefaultIntroPhrase = "Hello! You have a new voice message."

// Voice personas understood by the telephony gateway.
const (
	VoiceAlice = "alice"
	VoiceMan   = "man"
)

// Persona maps the synthesis gender onto the gateway speaking voice.
func Persona(gender domain.VoiceGender) string {
	if gender == domain.VoiceMale {
		return VoiceMan
	}
	return VoiceAlice
}

// Compose renders the call-control document: a spoken introduction
// followed by playback of the uploaded audio. All interpolated values
// are XML-escaped.
func Compose(gender domain.VoiceGender, introPhrase, audioURI string) (string, error) {
	if introPhrase == "" {
		introPhrase = DefaultIntroPhrase
	}

	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	buf.WriteString("<Response>\n")

	buf.WriteString(`<Say voice="` + Persona(gender) + `">`)
	if err := xml.EscapeText(&buf, []byte(introPhrase)); err != nil {
		return "", err
	}
	buf.WriteString("</Say>\n")

	buf.WriteString("<Play>")
	if err := xml.EscapeText(&buf, []byte(audioURI)); err != nil {
		return "", err
	}
	buf.WriteString("</Play>\n")

	buf.WriteString("</Response>\n")
	return buf.String(), nil
}
