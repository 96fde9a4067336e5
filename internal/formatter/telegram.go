package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/mixelka/avitorelay/pkg/models"
)

// TelegramFormatter formats operator notifications for Telegram
type TelegramFormatter struct {
	maxLength int
	location  *time.Location
}

// NewTelegramFormatter creates a new Telegram formatter
func NewTelegramFormatter() *TelegramFormatter {
	return &TelegramFormatter{
		maxLength: 4000, // Leave room for markup
		location:  time.FixedZone("MSK", 3*60*60),
	}
}

// FormatNewMessage renders the notification about a new inbound
// customer message.
func (f *TelegramFormatter) FormatNewMessage(account *models.Account, conv *models.Conversation, msg *models.Message) string {
	customer := conv.Customer()
	author := fmt.Sprintf("%s (%d)", customer.Name, customer.ID)
	if customer.Name == "" {
		author = "Неизвестно"
	}

	title := conv.Title()
	if title == "" {
		title = "Не указано"
	}

	date := time.Unix(msg.Created, 0).In(f.location).Format("02.01.2006, 15:04")

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📬 <b>Новое сообщение для «%s»</b>\n\n", f.escapeHTML(account.Name)))
	sb.WriteString(fmt.Sprintf("<b>От:</b> %s\n", f.escapeHTML(author)))
	sb.WriteString(fmt.Sprintf("<b>Объявление:</b> %s\n\n", f.escapeHTML(title)))
	text := f.truncate(msg.Content.Text, f.maxLength-sb.Len()-100)
	sb.WriteString(fmt.Sprintf("<b>Текст:</b> %s\n", f.escapeHTML(text)))
	sb.WriteString(fmt.Sprintf("<b>Дата:</b> %s", date))

	return sb.String()
}

// FormatAutoReply renders the operator confirmation after an automatic
// reply was sent.
func (f *TelegramFormatter) FormatAutoReply(account *models.Account, text string, kind models.ReplyKind) string {
	header := fmt.Sprintf("🤖 <b>ИИ автоматически ответил для «%s»</b>", f.escapeHTML(account.Name))
	if kind == models.ReplyTemplateAuto {
		header = fmt.Sprintf("📝 <b>Автоответчик отправил ответ для «%s»</b>", f.escapeHTML(account.Name))
	}
	body := f.truncate(text, f.maxLength-len(header)-50)
	return header + "\n\n" + f.escapeHTML(body)
}

// FormatTokenFailure renders the credential-trouble alert.
func (f *TelegramFormatter) FormatTokenFailure(account *models.Account) string {
	return fmt.Sprintf("⚠️ Ошибка получения токена Avito для аккаунта «%s»! Проверьте Client ID и Secret.",
		f.escapeHTML(account.Name))
}

// FormatHistory renders a conversation history view.
func (f *TelegramFormatter) FormatHistory(history string) string {
	body := f.truncate(history, f.maxLength-100)
	return "📜 <b>История переписки:</b>\n\n<code>" + f.escapeHTML(body) + "</code>"
}

// FormatStats renders the aggregated delivery-log report.
func (f *TelegramFormatter) FormatStats(periodName string, stats []models.DeliveryStat) string {
	if len(stats) == 0 {
		return fmt.Sprintf("📊 <b>Статистика за %s</b>\n\nСообщений нет.", f.escapeHTML(periodName))
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 <b>Статистика за %s</b>\n", f.escapeHTML(periodName)))

	current := ""
	for _, stat := range stats {
		if stat.AccountName != current {
			current = stat.AccountName
			sb.WriteString(fmt.Sprintf("\n<b>%s</b>\n", f.escapeHTML(current)))
		}
		label := "входящие"
		if stat.Direction == models.DirectionOut {
			label = "исходящие"
			if stat.ReplyKind != models.ReplyNone {
				label += " (" + string(stat.ReplyKind) + ")"
			}
		}
		sb.WriteString(fmt.Sprintf("  %s: %d\n", label, stat.Count))
	}
	return sb.String()
}

// escapeHTML escapes HTML special characters for Telegram
func (f *TelegramFormatter) escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// truncate truncates text to maxLen characters
func (f *TelegramFormatter) truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = 100
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "\n\n... (сообщение обрезано)"
}
