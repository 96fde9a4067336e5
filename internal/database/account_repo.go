package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mixelka/avitorelay/pkg/models"
)

// ErrNotFound is returned when a record is not found
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists is returned when trying to insert a duplicate record
var ErrAlreadyExists = errors.New("record already exists")

// CreateAccount creates a new Avito account
func (db *DB) CreateAccount(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (name, client_id, client_secret, profile_id, notification_chat_id,
			is_active, automation_mode, ai_provider, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	provider := account.Provider
	if provider == "" {
		provider = "openai"
	}
	result, err := db.ExecContext(ctx, query,
		account.Name,
		account.ClientID,
		account.ClientSecret,
		account.ProfileID,
		account.NotificationChatID,
		account.IsActive,
		account.Mode,
		provider,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	account.ID = id
	account.Provider = provider
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// GetAccountByID returns an account by ID
func (db *DB) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	query := `SELECT * FROM accounts WHERE id = ?`
	err := db.GetContext(ctx, &account, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// GetAllAccounts returns every configured account
func (db *DB) GetAllAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	query := `SELECT * FROM accounts ORDER BY id DESC`
	err := db.SelectContext(ctx, &accounts, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	return accounts, nil
}

// GetAllActiveAccounts returns all active accounts
func (db *DB) GetAllActiveAccounts(ctx context.Context) ([]*models.Account, error) {
	var accounts []*models.Account
	query := `SELECT * FROM accounts WHERE is_active = true ORDER BY id DESC`
	err := db.SelectContext(ctx, &accounts, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get active accounts: %w", err)
	}
	return accounts, nil
}

// UpdateAccountMode updates the automation mode
func (db *DB) UpdateAccountMode(ctx context.Context, id int64, mode models.AutomationMode) error {
	query := `UPDATE accounts SET automation_mode = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, mode, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update automation mode: %w", err)
	}
	return nil
}

// UpdateAccountReplyDelay sets the per-account reply delay; nil restores
// the global default.
func (db *DB) UpdateAccountReplyDelay(ctx context.Context, id int64, minutes *int64) error {
	query := `UPDATE accounts SET reply_delay_minutes = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, minutes, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update reply delay: %w", err)
	}
	return nil
}

// UpdateAccountProvider updates the AI provider selection
func (db *DB) UpdateAccountProvider(ctx context.Context, id int64, provider string) error {
	query := `UPDATE accounts SET ai_provider = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, provider, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update provider: %w", err)
	}
	return nil
}

// UpdateAccountPrompts updates the limited and full prompt references
func (db *DB) UpdateAccountPrompts(ctx context.Context, id int64, limited, full *int64) error {
	query := `UPDATE accounts SET prompt_id_limited = ?, prompt_id_full = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, limited, full, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update prompts: %w", err)
	}
	return nil
}

// UpdateAccountTemplate updates the auto-reply template reference
func (db *DB) UpdateAccountTemplate(ctx context.Context, id int64, templateID *int64) error {
	query := `UPDATE accounts SET auto_reply_template_id = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, templateID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	return nil
}

// UpdateAccountCategory updates the default template category
func (db *DB) UpdateAccountCategory(ctx context.Context, id int64, categoryID *int64) error {
	query := `UPDATE accounts SET default_category_id = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, categoryID, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	return nil
}

// SetAccountActive sets the active status of an account
func (db *DB) SetAccountActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE accounts SET is_active = ?, updated_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set account active: %w", err)
	}
	return nil
}

// DeleteAccount deletes an account; delivery log entries and watermarks
// cascade with it.
func (db *DB) DeleteAccount(ctx context.Context, id int64) error {
	query := `DELETE FROM accounts WHERE id = ?`
	_, err := db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}
