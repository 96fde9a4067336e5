package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mixelka/avitorelay/pkg/models"
)

// CreateCategory creates a response category
func (db *DB) CreateCategory(ctx context.Context, category *models.ResponseCategory) error {
	result, err := db.ExecContext(ctx,
		`INSERT INTO response_categories (name) VALUES (?)`, category.Name)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	category.ID = id
	return nil
}

// GetCategories returns all response categories ordered by name
func (db *DB) GetCategories(ctx context.Context) ([]models.ResponseCategory, error) {
	var categories []models.ResponseCategory
	err := db.SelectContext(ctx, &categories,
		`SELECT * FROM response_categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// DeleteCategory deletes a category; its templates keep existing with a
// NULL category.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM response_categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// CreateCannedResponse creates a reply template
func (db *DB) CreateCannedResponse(ctx context.Context, response *models.CannedResponse) error {
	result, err := db.ExecContext(ctx,
		`INSERT INTO canned_responses (short_name, response_text, category_id) VALUES (?, ?, ?)`,
		response.ShortName, response.ResponseText, response.CategoryID)
	if err != nil {
		return fmt.Errorf("failed to create canned response: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	response.ID = id
	return nil
}

// GetCannedResponseByID returns a reply template by id
func (db *DB) GetCannedResponseByID(ctx context.Context, id int64) (*models.CannedResponse, error) {
	var response models.CannedResponse
	err := db.GetContext(ctx, &response, `SELECT * FROM canned_responses WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get canned response: %w", err)
	}
	return &response, nil
}

// GetCannedResponsesByCategory returns the templates of one category
func (db *DB) GetCannedResponsesByCategory(ctx context.Context, categoryID int64) ([]models.CannedResponse, error) {
	var responses []models.CannedResponse
	err := db.SelectContext(ctx, &responses,
		`SELECT * FROM canned_responses WHERE category_id = ? ORDER BY short_name`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to get canned responses: %w", err)
	}
	return responses, nil
}

// UpdateCannedResponseText updates the template text
func (db *DB) UpdateCannedResponseText(ctx context.Context, id int64, text string) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE canned_responses SET response_text = ? WHERE id = ?`, text, id); err != nil {
		return fmt.Errorf("failed to update canned response: %w", err)
	}
	return nil
}

// DeleteCannedResponse deletes a reply template
func (db *DB) DeleteCannedResponse(ctx context.Context, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM canned_responses WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete canned response: %w", err)
	}
	return nil
}
