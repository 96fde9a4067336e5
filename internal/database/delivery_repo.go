package database

import (
	"context"
	"fmt"
	"time"

	"github.com/mixelka/avitorelay/pkg/models"
)

// LogDelivery appends an immutable delivery-log entry. Inbound entries
// are written before the operator notification is dispatched so a retry
// never double-counts.
func (db *DB) LogDelivery(ctx context.Context, entry *models.DeliveryEntry) error {
	query := `
		INSERT INTO delivery_log (account_id, chat_id, direction, reply_kind, message_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := db.ExecContext(ctx, query,
		entry.AccountID,
		entry.ChatID,
		entry.Direction,
		entry.ReplyKind,
		entry.MessageText,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to log delivery: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	entry.CreatedAt = now
	return nil
}

// DeliveryStats aggregates log entries since the given time, grouped by
// account, direction and reply kind.
func (db *DB) DeliveryStats(ctx context.Context, since time.Time) ([]models.DeliveryStat, error) {
	var stats []models.DeliveryStat
	query := `
		SELECT a.name AS account_name, d.direction, d.reply_kind, COUNT(*) AS cnt
		FROM delivery_log d
		JOIN accounts a ON d.account_id = a.id
		WHERE d.created_at >= ?
		GROUP BY a.name, d.direction, d.reply_kind
		ORDER BY a.name, d.direction
	`
	err := db.SelectContext(ctx, &stats, query, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery stats: %w", err)
	}
	return stats, nil
}

// DeliveriesForChat returns log entries for one conversation, newest
// first.
func (db *DB) DeliveriesForChat(ctx context.Context, accountID int64, chatID string, limit int) ([]models.DeliveryEntry, error) {
	var entries []models.DeliveryEntry
	query := `
		SELECT * FROM delivery_log
		WHERE account_id = ? AND chat_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	err := db.SelectContext(ctx, &entries, query, accountID, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get deliveries: %w", err)
	}
	return entries, nil
}
