package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mixelka/avitorelay/pkg/models"
)

// CreatePrompt creates a stored AI prompt
func (db *DB) CreatePrompt(ctx context.Context, prompt *models.Prompt) error {
	result, err := db.ExecContext(ctx,
		`INSERT INTO prompts (name, prompt_text) VALUES (?, ?)`,
		prompt.Name, prompt.PromptText)
	if err != nil {
		return fmt.Errorf("failed to create prompt: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	prompt.ID = id
	return nil
}

// GetPromptByID returns a prompt by id
func (db *DB) GetPromptByID(ctx context.Context, id int64) (*models.Prompt, error) {
	var prompt models.Prompt
	err := db.GetContext(ctx, &prompt, `SELECT * FROM prompts WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return &prompt, nil
}

// GetPrompts returns all prompts ordered by name
func (db *DB) GetPrompts(ctx context.Context) ([]models.Prompt, error) {
	var prompts []models.Prompt
	err := db.SelectContext(ctx, &prompts, `SELECT * FROM prompts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get prompts: %w", err)
	}
	return prompts, nil
}

// UpdatePromptText updates the prompt body
func (db *DB) UpdatePromptText(ctx context.Context, id int64, text string) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE prompts SET prompt_text = ? WHERE id = ?`, text, id); err != nil {
		return fmt.Errorf("failed to update prompt: %w", err)
	}
	return nil
}

// DeletePrompt deletes a prompt; accounts referencing it fall back to
// the built-in default.
func (db *DB) DeletePrompt(ctx context.Context, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM prompts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete prompt: %w", err)
	}
	return nil
}
