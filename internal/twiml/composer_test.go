package twiml

import (
	"strings"
	"testing"

	"github.com/acme/text-to-call/internal/domain"
)

func TestPersona(t *testing.T) {
	if got := Persona(domain.VoiceMale); got != VoiceMan {
		t.Errorf("Persona(male) = %s, want %s", got, VoiceMan)
	}
	if got := Persona(domain.VoiceFemale); got != VoiceAlice {
		t.Errorf("Persona(female) = %s, want %s", got, VoiceAlice)
	}
}

func TestComposeFemale(t *testing.T) {
	doc, err := Compose(domain.VoiceFemale, "Hello caller", "http://files.local/speech/greet.wav")
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}

	if !strings.HasPrefix(doc, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("missing xml declaration")
	}
	if !strings.Contains(doc, `<Say voice="alice">Hello caller</Say>`) {
		t.Errorf("missing say element: %s", doc)
	}
	if !strings.Contains(doc, "<Play>http://files.local/speech/greet.wav</Play>") {
		t.Errorf("missing play element: %s", doc)
	}
}

func TestComposeMale(t *testing.T) {
	doc, err := Compose(domain.VoiceMale, "Hi", "http://files.local/a.wav")
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if !strings.Contains(doc, `<Say voice="man">Hi</Say>`) {
		t.Errorf("male voice not mapped to man persona: %s", doc)
	}
}

func TestComposeDefaultIntro(t *testing.T) {
	doc, err := Compose(domain.VoiceFemale, "", "http://files.local/a.wav")
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if !strings.Contains(doc, DefaultIntroPhrase) {
		t.Errorf("empty intro should fall back to default: %s", doc)
	}
}

func TestComposeEscapesInterpolations(t *testing.T) {
	doc, err := Compose(domain.VoiceFemale, `Tom & "Jerry" <show>`, "http://files.local/a.wav?x=1&y=2")
	if err != nil {
		t.Fatalf("Compose returned error: %v", err)
	}
	if strings.Contains(doc, "<show>") {
		t.Errorf("intro phrase not escaped: %s", doc)
	}
	if !strings.Contains(doc, "Tom &amp;") {
		t.Errorf("ampersand not escaped in phrase: %s", doc)
	}
	if !strings.Contains(doc, "x=1&amp;y=2") {
		t.Errorf("ampersand not escaped in uri: %s", doc)
	}
}
