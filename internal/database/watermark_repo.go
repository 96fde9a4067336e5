package database

import (
	"context"
	"fmt"
)

// GetWatermarks loads the per-conversation watermark map for an
// account: Avito chat id -> last processed inbound timestamp. Read once
// at the start of a poll cycle.
func (db *DB) GetWatermarks(ctx context.Context, accountID int64) (map[string]int64, error) {
	rows, err := db.QueryxContext(ctx,
		`SELECT chat_id, last_inbound_at FROM watermarks WHERE account_id = ?`, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get watermarks: %w", err)
	}
	defer rows.Close()

	marks := make(map[string]int64)
	for rows.Next() {
		var chatID string
		var ts int64
		if err := rows.Scan(&chatID, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan watermark: %w", err)
		}
		marks[chatID] = ts
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read watermarks: %w", err)
	}
	return marks, nil
}

// SaveWatermarks upserts the account's watermark map in one
// transaction. The timestamp never moves backward even if the caller
// passes a stale value.
func (db *DB) SaveWatermarks(ctx context.Context, accountID int64, marks map[string]int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO watermarks (account_id, chat_id, last_inbound_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account_id, chat_id) DO UPDATE SET
			last_inbound_at = MAX(last_inbound_at, excluded.last_inbound_at),
			updated_at = CURRENT_TIMESTAMP
	`
	for chatID, ts := range marks {
		if _, err := tx.ExecContext(ctx, query, accountID, chatID, ts); err != nil {
			return fmt.Errorf("failed to upsert watermark for chat %s: %w", chatID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit watermarks: %w", err)
	}
	return nil
}

// ResetWatermarks drops all watermarks for an account, forcing a full
// cold-start rediscovery of its mailbox on the next cycle. Used to
// recover from corrupted state.
func (db *DB) ResetWatermarks(ctx context.Context, accountID int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM watermarks WHERE account_id = ?`, accountID)
	if err != nil {
		return fmt.Errorf("failed to reset watermarks: %w", err)
	}
	return nil
}
