package database

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    client_id TEXT NOT NULL,
    client_secret TEXT NOT NULL,
    profile_id TEXT NOT NULL,
    notification_chat_id INTEGER NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT true,
    automation_mode INTEGER NOT NULL DEFAULT 0,
    reply_delay_minutes INTEGER,
    ai_provider TEXT NOT NULL DEFAULT 'openai',
    prompt_id_limited INTEGER REFERENCES prompts(id) ON DELETE SET NULL,
    prompt_id_full INTEGER REFERENCES prompts(id) ON DELETE SET NULL,
    default_category_id INTEGER REFERENCES response_categories(id) ON DELETE SET NULL,
    auto_reply_template_id INTEGER REFERENCES canned_responses(id) ON DELETE SET NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS response_categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS canned_responses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    short_name TEXT NOT NULL UNIQUE,
    response_text TEXT NOT NULL,
    category_id INTEGER REFERENCES response_categories(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS prompts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    prompt_text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS watermarks (
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    chat_id TEXT NOT NULL,
    last_inbound_at INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (account_id, chat_id)
);

CREATE TABLE IF NOT EXISTS delivery_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    chat_id TEXT NOT NULL,
    direction TEXT NOT NULL,
    reply_kind TEXT NOT NULL DEFAULT '',
    message_text TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_accounts_active ON accounts(is_active);
CREATE INDEX IF NOT EXISTS idx_delivery_account ON delivery_log(account_id);
CREATE INDEX IF NOT EXISTS idx_delivery_created ON delivery_log(created_at);
CREATE INDEX IF NOT EXISTS idx_responses_category ON canned_responses(category_id);
`
