package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/acme/text-to-call/internal/domain"
	"github.com/acme/text-to-call/internal/repository"
)

// TemplateRepository persists the greeting template catalog.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository creates a new repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

type templateRow struct {
	Key       string    `db:"key"`
	Text      string    `db:"text"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Upsert creates or replaces a template.
func (r *TemplateRepository) Upsert(ctx context.Context, template domain.GreetingTemplate) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO greeting_templates (key, text, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET text = EXCLUDED.text, updated_at = EXCLUDED.updated_at`,
		template.Key, template.Text, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("templates: upsert: %w", err)
	}
	return nil
}

// Get retrieves a template by key.
func (r *TemplateRepository) Get(ctx context.Context, key string) (*domain.GreetingTemplate, error) {
	var row templateRow
	err := r.db.GetContext(ctx, &row, `SELECT key, text, updated_at FROM greeting_templates WHERE key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("templates: %q: %w", key, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("templates: get: %w", err)
	}
	return &domain.GreetingTemplate{Key: row.Key, Text: row.Text, UpdatedAt: row.UpdatedAt}, nil
}

// List returns all templates ordered by key.
func (r *TemplateRepository) List(ctx context.Context) ([]domain.GreetingTemplate, error) {
	var rows []templateRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT key, text, updated_at FROM greeting_templates ORDER BY key`); err != nil {
		return nil, fmt.Errorf("templates: list: %w", err)
	}

	templates := make([]domain.GreetingTemplate, 0, len(rows))
	for _, row := range rows {
		templates = append(templates, domain.GreetingTemplate{Key: row.Key, Text: row.Text, UpdatedAt: row.UpdatedAt})
	}
	return templates, nil
}

// Delete removes a template.
func (r *TemplateRepository) Delete(ctx context.Context, key string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM greeting_templates WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("templates: delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("templates: delete rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("templates: %q: %w", key, repository.ErrNotFound)
	}
	return nil
}
