package pipeline

import (
	"context"
	"fmt"

	apperrors "github.com/acme/text-to-call/pkg/errors"
)

// Catalog resolves a greeting template key to its phrase. An unknown
// key is a configuration error, never an empty synthesis.
type Catalog interface {
	Resolve(ctx context.Context, key string) (string, error)
}

// StaticCatalog is an injected, fixed template map.
type StaticCatalog map[string]string

// Resolve looks up the key in the map.
func (c StaticCatalog) Resolve(_ context.Context, key string) (string, error) {
	text, ok := c[key]
	if !ok || text == "" {
		return "", fmt.Errorf("%w: no template registered for key %q", apperrors.ErrMissingInput, key)
	}
	return text, nil
}

// DefaultTemplates returns the built-in greeting catalog, used when the
// configuration provides none.
func DefaultTemplates() map[string]string {
	return map[string]string{
		"Greeting1": "Thank you for calling. We will get back to you shortly.",
		"Greeting2": "This is a courtesy reminder about your upcoming appointment.",
	}
}
