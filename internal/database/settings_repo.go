package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Setting keys. Runtime-mutable process state lives here instead of
// loose JSON files on disk.
const (
	SettingPolling     = "polling_enabled"
	SettingGlobalDelay = "global_reply_delay" // minutes
	settingAPIKeyFmt   = "api_key_%s"
)

// GetSetting returns a settings value, or ErrNotFound.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a settings value.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`
	if _, err := db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// PollingEnabled reports the run/stop flag. A missing flag means
// stopped, matching a fresh installation.
func (db *DB) PollingEnabled(ctx context.Context) (bool, error) {
	value, err := db.GetSetting(ctx, SettingPolling)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return value == "true", nil
}

// SetPollingEnabled flips the run/stop flag.
func (db *DB) SetPollingEnabled(ctx context.Context, enabled bool) error {
	return db.SetSetting(ctx, SettingPolling, strconv.FormatBool(enabled))
}

// GlobalReplyDelay returns the process-wide auto-reply delay override
// in minutes, or 0 when unset.
func (db *DB) GlobalReplyDelay(ctx context.Context) (int64, error) {
	value, err := db.GetSetting(ctx, SettingGlobalDelay)
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid global reply delay %q: %w", value, err)
	}
	return minutes, nil
}

// SetGlobalReplyDelay stores the process-wide auto-reply delay.
func (db *DB) SetGlobalReplyDelay(ctx context.Context, minutes int64) error {
	return db.SetSetting(ctx, SettingGlobalDelay, strconv.FormatInt(minutes, 10))
}

// APIKey returns the stored key for an AI provider, or ErrNotFound.
func (db *DB) APIKey(ctx context.Context, provider string) (string, error) {
	return db.GetSetting(ctx, fmt.Sprintf(settingAPIKeyFmt, provider))
}

// SetAPIKey stores the key for an AI provider.
func (db *DB) SetAPIKey(ctx context.Context, provider, key string) error {
	return db.SetSetting(ctx, fmt.Sprintf(settingAPIKeyFmt, provider), key)
}
