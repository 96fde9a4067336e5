package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// handleStart handles /start command
func (b *Bot) handleStart(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	b.handleHelp(ctx, tgBot, update)
}

// handleHelp handles /help command
func (b *Bot) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	msg := update.Message

	text := `<b>Avito Relay Bot</b>

Бот пересылает новые сообщения покупателей с Avito и отвечает на них автоматически.

<b>Команды:</b>
/run - запустить проверку сообщений
/stop - остановить проверку сообщений
/status - статус проверки и аккаунтов
/stats день|неделя|месяц - статистика сообщений
/accounts - список подключённых аккаунтов

Кнопки под каждым уведомлением позволяют ответить вручную, посмотреть историю, отправить шаблон или сгенерировать AI-ответ.`

	b.sendMessage(ctx, msg.Chat.ID, text)
}

// handleRun handles /run command
func (b *Bot) handleRun(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	msg := update.Message
	if err := b.db.SetPollingEnabled(ctx, true); err != nil {
		b.logger.Error("failed to enable polling", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "Не удалось запустить проверку.")
		return
	}
	b.sendMessage(ctx, msg.Chat.ID, "✅ Проверка сообщений запущена.")
}

// handleStop handles /stop command
func (b *Bot) handleStop(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	msg := update.Message
	if err := b.db.SetPollingEnabled(ctx, false); err != nil {
		b.logger.Error("failed to disable polling", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "Не удалось остановить проверку.")
		return
	}
	b.sendMessage(ctx, msg.Chat.ID, "✅ Проверка сообщений остановлена.")
}

// handleStatus handles /status command
func (b *Bot) handleStatus(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	msg := update.Message

	enabled, err := b.db.PollingEnabled(ctx)
	if err != nil {
		b.logger.Error("failed to read run flag", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "Ошибка чтения статуса.")
		return
	}

	accounts, err := b.db.GetAllActiveAccounts(ctx)
	if err != nil {
		b.logger.Error("failed to load accounts", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "Ошибка чтения аккаунтов.")
		return
	}

	state := "⛔ остановлена"
	if enabled {
		state = "▶️ запущена"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("<b>Проверка сообщений:</b> %s\n", state))
	sb.WriteString(fmt.Sprintf("<b>Интервал:</b> %s\n", b.config.PollInterval))
	sb.WriteString(fmt.Sprintf("<b>Активных аккаунтов:</b> %d\n", len(accounts)))
	for _, acc := range accounts {
		sb.WriteString(fmt.Sprintf("\n<b>%s</b> — режим: %s, провайдер: %s",
			acc.Name, acc.Mode, acc.Provider))
	}

	b.sendMessage(ctx, msg.Chat.ID, sb.String())
}

// handleStats handles /stats command
// Usage: /stats [день|неделя|месяц]
func (b *Bot) handleStats(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	msg := update.Message

	period := "день"
	parts := strings.Fields(msg.Text)
	if len(parts) > 1 {
		period = parts[1]
	}

	var since time.Time
	switch period {
	case "день":
		since = time.Now().AddDate(0, 0, -1)
	case "неделя":
		since = time.Now().AddDate(0, 0, -7)
	case "месяц":
		since = time.Now().AddDate(0, 0, -30)
	default:
		b.sendMessage(ctx, msg.Chat.ID, "Использование: <code>/stats день|неделя|месяц</code>")
		return
	}

	stats, err := b.db.DeliveryStats(ctx, since)
	if err != nil {
		b.logger.Error("failed to load stats", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "Ошибка чтения статистики.")
		return
	}

	b.sendMessage(ctx, msg.Chat.ID, b.formatter.FormatStats(period, stats))
}

// handleAccounts handles /accounts command
func (b *Bot) handleAccounts(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	msg := update.Message

	accounts, err := b.db.GetAllAccounts(ctx)
	if err != nil {
		b.logger.Error("failed to load accounts", "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "Ошибка чтения аккаунтов.")
		return
	}

	if len(accounts) == 0 {
		b.sendMessage(ctx, msg.Chat.ID, "Аккаунты ещё не подключены.")
		return
	}

	var sb strings.Builder
	sb.WriteString("<b>Аккаунты Avito:</b>\n")
	for _, acc := range accounts {
		status := "⛔"
		if acc.IsActive {
			status = "✅"
		}
		sb.WriteString(fmt.Sprintf("\n%s <b>%s</b> (id %d)\n  профиль: %s, режим: %s",
			status, acc.Name, acc.ID, acc.ProfileID, acc.Mode))
	}

	b.sendMessage(ctx, msg.Chat.ID, sb.String())
}
