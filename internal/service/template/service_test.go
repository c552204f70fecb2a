package template

import (
	"context"
	"errors"
	"testing"

	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/repository"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

type fakeRepo struct {
	templates map[string]domain.GreetingTemplate
	failWith  error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{templates: map[string]domain.GreetingTemplate{}}
}

func (f *fakeRepo) Upsert(_ context.Context, tmpl domain.GreetingTemplate) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.templates[tmpl.Key] = tmpl
	return nil
}

func (f *fakeRepo) Get(_ context.Context, key string) (*domain.GreetingTemplate, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	tmpl, ok := f.templates[key]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &tmpl, nil
}

func (f *fakeRepo) List(_ context.Context) ([]domain.GreetingTemplate, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]domain.GreetingTemplate, 0, len(f.templates))
	for _, tmpl := range f.templates {
		out = append(out, tmpl)
	}
	return out, nil
}

func (f *fakeRepo) Delete(_ context.Context, key string) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.templates[key]; !ok {
		return repository.ErrNotFound
	}
	delete(f.templates, key)
	return nil
}

func TestResolveStoredTemplate(t *testing.T) {
	repo := newFakeRepo()
	repo.templates["Greeting1"] = domain.GreetingTemplate{Key: "Greeting1", Text: "stored text"}
	svc := NewService(repo, map[string]string{"Greeting1": "default text"})

	text, err := svc.Resolve(context.Background(), "Greeting1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if text != "stored text" {
		t.Errorf("stored template should win over default, got %q", text)
	}
}

func TestResolveDefaultFallback(t *testing.T) {
	svc := NewService(newFakeRepo(), map[string]string{"Greeting2": "default text"})

	text, err := svc.Resolve(context.Background(), "Greeting2")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if text != "default text" {
		t.Errorf("text = %q", text)
	}
}

func TestResolveUnknownKey(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	_, err := svc.Resolve(context.Background(), "Missing")
	if !errors.Is(err, apperrors.ErrMissingInput) {
		t.Fatalf("error = %v, want ErrMissingInput", err)
	}
}

func TestUpsertValidation(t *testing.T) {
	svc := NewService(newFakeRepo(), nil)

	if _, err := svc.Upsert(context.Background(), "", "text"); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty key: error = %v, want ErrValidation", err)
	}
	if _, err := svc.Upsert(context.Background(), "key", ""); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty text: error = %v, want ErrValidation", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	if _, err := svc.Upsert(context.Background(), "Custom", "hello"); err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}

	tmpl, err := svc.Get(context.Background(), "Custom")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if tmpl.Text != "hello" {
		t.Errorf("text = %q", tmpl.Text)
	}
}

func TestListMergesDefaults(t *testing.T) {
	repo := newFakeRepo()
	repo.templates["Greeting1"] = domain.GreetingTemplate{Key: "Greeting1", Text: "stored"}
	svc := NewService(repo, map[string]string{"Greeting1": "default", "Greeting2": "default two"})

	templates, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("got %d templates, want 2", len(templates))
	}

	byKey := map[string]string{}
	for _, tmpl := range templates {
		byKey[tmpl.Key] = tmpl.Text
	}
	if byKey["Greeting1"] != "stored" {
		t.Errorf("Greeting1 = %q, stored entry should win", byKey["Greeting1"])
	}
	if byKey["Greeting2"] != "default two" {
		t.Errorf("Greeting2 = %q", byKey["Greeting2"])
	}
}

func TestWritesWithoutRepo(t *testing.T) {
	svc := NewService(nil, map[string]string{"Greeting1": "hi"})

	if _, err := svc.Upsert(context.Background(), "k", "v"); !errors.Is(err, apperrors.ErrUnavailable) {
		t.Errorf("Upsert error = %v, want ErrUnavailable", err)
	}
	if err := svc.Delete(context.Background(), "k"); !errors.Is(err, apperrors.ErrUnavailable) {
		t.Errorf("Delete error = %v, want ErrUnavailable", err)
	}

	// Reads still work against defaults.
	if _, err := svc.Resolve(context.Background(), "Greeting1"); err != nil {
		t.Errorf("Resolve returned error: %v", err)
	}
}
