package twilio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/acme/text-to-call/internal/config"
	"github.com/acme/text-to-call/internal/telephony"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

func TestPlaceCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC123/Calls.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "AC123" || pass != "tok" {
			t.Errorf("basic auth = %s:%s", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("To"); got != "+15550002222" {
			t.Errorf("To = %q", got)
		}
		if got := r.PostForm.Get("From"); got != "+15550001111" {
			t.Errorf("From = %q", got)
		}
		if got := r.PostForm.Get("Url"); got != "http://files.local/speech/greet.xml" {
			t.Errorf("Url = %q", got)
		}
		if got := r.PostForm.Get("Method"); got != http.MethodGet {
			t.Errorf("Method = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"CA999","status":"queued"}`))
	}))
	defer srv.Close()

	provider := NewProvider(config.TelephonyConfig{
		BaseURL:    srv.URL,
		AccountSID: "AC123",
		AuthToken:  "tok",
	})

	call, err := provider.PlaceCall(context.Background(), telephony.Request{
		CallerNumber: "+15550001111",
		CalleeNumber: "+15550002222",
		ScriptURI:    "http://files.local/speech/greet.xml",
	})
	if err != nil {
		t.Fatalf("PlaceCall returned error: %v", err)
	}
	if call.ProviderCallID != "CA999" {
		t.Errorf("provider call id = %q", call.ProviderCallID)
	}
	if call.Status != "queued" {
		t.Errorf("status = %q", call.Status)
	}
}

func TestPlaceCallMissingConfig(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	provider := NewProvider(config.TelephonyConfig{BaseURL: srv.URL})

	_, err := provider.PlaceCall(context.Background(), telephony.Request{
		ScriptURI: "http://files.local/speech/greet.xml",
	})
	if !errors.Is(err, apperrors.ErrMissingTelephonyConfig) {
		t.Fatalf("error = %v, want ErrMissingTelephonyConfig", err)
	}
	if atomic.LoadInt32(&hits) != 0 {
		t.Error("provider was contacted despite missing configuration")
	}
}

func TestPlaceCallProviderRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	provider := NewProvider(config.TelephonyConfig{
		BaseURL:    srv.URL,
		AccountSID: "AC123",
		AuthToken:  "bad",
	})

	_, err := provider.PlaceCall(context.Background(), telephony.Request{
		CallerNumber: "+15550001111",
		CalleeNumber: "+15550002222",
		ScriptURI:    "http://files.local/speech/greet.xml",
	})
	if !errors.Is(err, apperrors.ErrDispatchFailed) {
		t.Fatalf("error = %v, want ErrDispatchFailed", err)
	}
}
