package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/repository"
	apperrors "github.com/acme/text-to-call/pkg/errors"
)

// Service manages the greeting template catalog. Lookups consult the
// repository first and fall back to the config-injected defaults, so
// the pipeline works without a database row for every key.
type Service struct {
	repo     repository.TemplateRepository
	defaults map[string]string
}

// NewService builds the template service. repo may be nil, in which
// case only the injected defaults are served.
func NewService(repo repository.TemplateRepository, defaults map[string]string) *Service {
	if defaults == nil {
		defaults = map[string]string{}
	}
	return &Service{repo: repo, defaults: defaults}
}

// Resolve implements the pipeline catalog contract: an unknown key is
// an error, never an empty phrase.
func (s *Service) Resolve(ctx context.Context, key string) (string, error) {
	if s.repo != nil {
		tmpl, err := s.repo.Get(ctx, key)
		if err == nil {
			return tmpl.Text, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return "", err
		}
	}

	if text, ok := s.defaults[key]; ok && text != "" {
		return text, nil
	}
	return "", fmt.Errorf("%w: no template registered for key %q", apperrors.ErrMissingInput, key)
}

// Upsert stores a template.
func (s *Service) Upsert(ctx context.Context, key, text string) (*domain.GreetingTemplate, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: template key is required", apperrors.ErrValidation)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: template text is required", apperrors.ErrValidation)
	}
	if s.repo == nil {
		return nil, fmt.Errorf("%w: template storage is not configured", apperrors.ErrUnavailable)
	}

	tmpl := domain.GreetingTemplate{Key: key, Text: text}
	if err := s.repo.Upsert(ctx, tmpl); err != nil {
		return nil, err
	}
	return &tmpl, nil
}

// Get retrieves one template, considering defaults.
func (s *Service) Get(ctx context.Context, key string) (*domain.GreetingTemplate, error) {
	if s.repo != nil {
		tmpl, err := s.repo.Get(ctx, key)
		if err == nil {
			return tmpl, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}
	if text, ok := s.defaults[key]; ok {
		return &domain.GreetingTemplate{Key: key, Text: text}, nil
	}
	return nil, fmt.Errorf("templates: %q: %w", key, repository.ErrNotFound)
}

// List returns stored templates merged with defaults.
func (s *Service) List(ctx context.Context) ([]domain.GreetingTemplate, error) {
	seen := map[string]bool{}
	var out []domain.GreetingTemplate

	if s.repo != nil {
		stored, err := s.repo.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, tmpl := range stored {
			seen[tmpl.Key] = true
			out = append(out, tmpl)
		}
	}

	for key, text := range s.defaults {
		if !seen[key] {
			out = append(out, domain.GreetingTemplate{Key: key, Text: text})
		}
	}
	return out, nil
}

// Delete removes a stored template. Defaults cannot be deleted.
func (s *Service) Delete(ctx context.Context, key string) error {
	if s.repo == nil {
		return fmt.Errorf("%w: template storage is not configured", apperrors.ErrUnavailable)
	}
	return s.repo.Delete(ctx, key)
}
