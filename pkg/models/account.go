package models

import "time"

// AutomationMode defines whether and how an account answers incoming
// messages automatically. Stored as a small integer for compatibility
// with existing databases.
type AutomationMode int

const (
	ModeOff             AutomationMode = 0
	ModeAILimited       AutomationMode = 1
	ModeAIFull          AutomationMode = 2
	ModeTemplateLimited AutomationMode = 3
	ModeTemplateFull    AutomationMode = 4
)

// Enabled reports whether any kind of auto-reply is configured.
func (m AutomationMode) Enabled() bool {
	return m != ModeOff
}

// Limited reports whether the mode only answers the first inbound
// message of a conversation.
func (m AutomationMode) Limited() bool {
	return m == ModeAILimited || m == ModeTemplateLimited
}

// AI reports whether replies are generated by a language model.
func (m AutomationMode) AI() bool {
	return m == ModeAILimited || m == ModeAIFull
}

// Template reports whether replies come from a fixed canned response.
func (m AutomationMode) Template() bool {
	return m == ModeTemplateLimited || m == ModeTemplateFull
}

func (m AutomationMode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeAILimited:
		return "ai-limited"
	case ModeAIFull:
		return "ai-full"
	case ModeTemplateLimited:
		return "template-limited"
	case ModeTemplateFull:
		return "template-full"
	default:
		return "unknown"
	}
}

// Account represents a connected Avito tenant account
type Account struct {
	ID                  int64          `db:"id"`
	Name                string         `db:"name"`
	ClientID            string         `db:"client_id"`     // Avito API client id
	ClientSecret        string         `db:"client_secret"` // Avito API client secret
	ProfileID           string         `db:"profile_id"`    // Avito profile (mailbox) to poll
	NotificationChatID  int64          `db:"notification_chat_id"` // Telegram chat for operator notifications
	IsActive            bool           `db:"is_active"`
	Mode                AutomationMode `db:"automation_mode"`
	ReplyDelayMinutes   *int64         `db:"reply_delay_minutes"` // nil means the global default applies
	Provider            string         `db:"ai_provider"`         // openai, deepseek, gemini, claude
	PromptIDLimited     *int64         `db:"prompt_id_limited"`
	PromptIDFull        *int64         `db:"prompt_id_full"`
	DefaultCategoryID   *int64         `db:"default_category_id"`
	AutoReplyTemplateID *int64         `db:"auto_reply_template_id"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}
