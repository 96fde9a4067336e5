package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mixelka/avitorelay/internal/avito"
	"github.com/mixelka/avitorelay/internal/formatter"
	"github.com/mixelka/avitorelay/internal/llm"
	appmodels "github.com/mixelka/avitorelay/pkg/models"
)

// handleCallback routes inline button callbacks
func (b *Bot) handleCallback(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	data, err := formatter.DecodeCallback(callback.Data)
	if err != nil {
		b.logger.Warn("invalid callback data", "data", callback.Data, "error", err)
		b.answerCallback(ctx, callback.ID, "", false)
		return
	}

	switch data.Action {
	case appmodels.CallbackManualReply:
		b.handleManualReply(ctx, callback, data)
	case appmodels.CallbackHistory:
		b.handleHistory(ctx, callback, data)
	case appmodels.CallbackTemplates:
		b.handleTemplates(ctx, callback, data)
	case appmodels.CallbackSendTemplate:
		b.handleSendTemplate(ctx, callback, data)
	case appmodels.CallbackAIReply:
		b.handleAIReply(ctx, callback, data)
	default:
		b.answerCallback(ctx, callback.ID, "", false)
	}
}

// handleManualReply starts a manual-reply conversation: the operator's
// next text message goes to the Avito chat.
func (b *Bot) handleManualReply(ctx context.Context, callback *models.CallbackQuery, data appmodels.CallbackData) {
	b.answerCallback(ctx, callback.ID, "", false)

	b.pendingMu.Lock()
	b.pending[callback.From.ID] = pendingReply{accountID: data.AccountID, chatID: data.ChatID}
	b.pendingMu.Unlock()

	chatID := chatIDOf(callback)
	if _, err := b.sendForceReply(ctx, chatID, "Пожалуйста, введите ваш ответ на это сообщение:"); err != nil {
		b.logger.Error("failed to request manual reply", "error", err)
	}
}

// processManualReply sends the operator's text to Avito
func (b *Bot) processManualReply(ctx context.Context, msg *models.Message, reply pendingReply) {
	account, err := b.db.GetAccountByID(ctx, reply.accountID)
	if err != nil {
		b.logger.Error("manual reply: account lookup failed", "account_id", reply.accountID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "❌ Аккаунт не найден.")
		return
	}

	token, err := b.avito.Token(ctx, account.ClientID, account.ClientSecret)
	if err != nil {
		b.logger.Error("manual reply: token exchange failed", "account_id", account.ID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID, "❌ Ошибка авторизации Avito.")
		return
	}

	if err := b.avito.SendMessage(ctx, token, account.ProfileID, reply.chatID, msg.Text); err != nil {
		b.logger.Error("manual reply: send failed", "chat_id", reply.chatID, "error", err)
		b.sendMessage(ctx, msg.Chat.ID, fmt.Sprintf("❌ Не удалось отправить ответ: %v", err))
		return
	}

	b.logReply(ctx, account.ID, reply.chatID, appmodels.ReplyManual, msg.Text)
	b.sendMessage(ctx, msg.Chat.ID, "✅ Ваш ответ успешно отправлен на Avito.")
}

// handleHistory shows the recent conversation history
func (b *Bot) handleHistory(ctx context.Context, callback *models.CallbackQuery, data appmodels.CallbackData) {
	b.answerCallback(ctx, callback.ID, "", false)
	chatID := chatIDOf(callback)

	account, err := b.db.GetAccountByID(ctx, data.AccountID)
	if err != nil {
		b.sendMessage(ctx, chatID, "❌ Аккаунт не найден.")
		return
	}

	token, err := b.avito.Token(ctx, account.ClientID, account.ClientSecret)
	if err != nil {
		b.sendMessage(ctx, chatID, "❌ Ошибка авторизации Avito.")
		return
	}

	messages, err := b.avito.ListMessages(ctx, token, account.ProfileID, data.ChatID)
	if err != nil {
		b.logger.Error("history: fetch failed", "chat_id", data.ChatID, "error", err)
		b.sendMessage(ctx, chatID, "❌ Не удалось загрузить историю сообщений.")
		return
	}

	history := avito.RenderHistory(messages, b.config.HistoryLimit)
	b.sendMessage(ctx, chatID, b.formatter.FormatHistory(history))
}

// handleTemplates shows the account's default-category templates
func (b *Bot) handleTemplates(ctx context.Context, callback *models.CallbackQuery, data appmodels.CallbackData) {
	chatID := chatIDOf(callback)

	account, err := b.db.GetAccountByID(ctx, data.AccountID)
	if err != nil {
		b.answerCallback(ctx, callback.ID, "Аккаунт не найден", true)
		return
	}
	if account.DefaultCategoryID == nil {
		b.answerCallback(ctx, callback.ID, "Категория шаблонов не выбрана для аккаунта", true)
		return
	}

	templates, err := b.db.GetCannedResponsesByCategory(ctx, *account.DefaultCategoryID)
	if err != nil {
		b.logger.Error("templates: lookup failed", "error", err)
		b.answerCallback(ctx, callback.ID, "Ошибка чтения шаблонов", true)
		return
	}
	if len(templates) == 0 {
		b.answerCallback(ctx, callback.ID, "В категории нет шаблонов", true)
		return
	}

	b.answerCallback(ctx, callback.ID, "", false)
	keyboard := formatter.BuildTemplatesKeyboard(account, data.ChatID, templates)
	b.sendMessageWithKeyboard(ctx, chatID, "Выберите шаблон для отправки:", keyboard)
}

// handleSendTemplate sends the chosen canned response
func (b *Bot) handleSendTemplate(ctx context.Context, callback *models.CallbackQuery, data appmodels.CallbackData) {
	chatID := chatIDOf(callback)

	template, err := b.db.GetCannedResponseByID(ctx, data.TemplateID)
	if err != nil {
		b.answerCallback(ctx, callback.ID, "Шаблон не найден", true)
		return
	}

	account, err := b.db.GetAccountByID(ctx, data.AccountID)
	if err != nil {
		b.answerCallback(ctx, callback.ID, "Аккаунт не найден", true)
		return
	}

	token, err := b.avito.Token(ctx, account.ClientID, account.ClientSecret)
	if err != nil {
		b.answerCallback(ctx, callback.ID, "Ошибка авторизации Avito", true)
		return
	}

	if err := b.avito.SendMessage(ctx, token, account.ProfileID, data.ChatID, template.ResponseText); err != nil {
		b.logger.Error("template send failed", "chat_id", data.ChatID, "error", err)
		b.answerCallback(ctx, callback.ID, "Не удалось отправить шаблон", true)
		return
	}

	b.logReply(ctx, account.ID, data.ChatID, appmodels.ReplyCanned, template.ResponseText)
	b.answerCallback(ctx, callback.ID, "", false)
	b.sendMessage(ctx, chatID, fmt.Sprintf("✅ Шаблон «%s» отправлен.", template.ShortName))
}

// handleAIReply generates and sends an AI reply on the operator's
// demand, independent of the scheduled automation.
func (b *Bot) handleAIReply(ctx context.Context, callback *models.CallbackQuery, data appmodels.CallbackData) {
	b.answerCallback(ctx, callback.ID, "🤖 Генерирую ответ...", false)
	chatID := chatIDOf(callback)

	account, err := b.db.GetAccountByID(ctx, data.AccountID)
	if err != nil {
		b.sendMessage(ctx, chatID, "❌ Аккаунт не найден.")
		return
	}

	apiKey, err := b.db.APIKey(ctx, account.Provider)
	if err != nil {
		b.sendMessage(ctx, chatID,
			fmt.Sprintf("❌ API ключ для %s не найден. Укажите его в настройках.", account.Provider))
		return
	}

	generator, err := b.generators.Generator(account.Provider, apiKey)
	if err != nil {
		b.sendMessage(ctx, chatID, fmt.Sprintf("❌ %v", err))
		return
	}

	token, err := b.avito.Token(ctx, account.ClientID, account.ClientSecret)
	if err != nil {
		b.sendMessage(ctx, chatID, "❌ Ошибка авторизации Avito.")
		return
	}

	messages, err := b.avito.ListMessages(ctx, token, account.ProfileID, data.ChatID)
	if err != nil {
		b.sendMessage(ctx, chatID, "❌ Не удалось загрузить историю сообщений.")
		return
	}

	prompt := llm.DefaultPrompt
	if account.PromptIDFull != nil {
		if p, err := b.db.GetPromptByID(ctx, *account.PromptIDFull); err == nil {
			prompt = p.PromptText
		}
	}

	history := avito.RenderHistory(messages, b.config.HistoryLimit)
	reply, err := generator.GenerateReply(ctx, history, prompt)
	if err != nil || strings.TrimSpace(reply) == "" {
		b.logger.Error("on-demand AI generation failed", "chat_id", data.ChatID, "error", err)
		b.sendMessage(ctx, chatID, "❌ Не удалось сгенерировать ответ. ИИ вернул пустой результат.")
		return
	}

	if err := b.avito.SendMessage(ctx, token, account.ProfileID, data.ChatID, reply); err != nil {
		b.logger.Error("on-demand AI send failed", "chat_id", data.ChatID, "error", err)
		b.sendMessage(ctx, chatID, fmt.Sprintf("❌ Не удалось отправить AI-ответ: %v", err))
		return
	}

	b.logReply(ctx, account.ID, data.ChatID, appmodels.ReplyAIManual, reply)
	b.sendMessage(ctx, chatID, fmt.Sprintf("✅ AI-ответ успешно отправлен:\n\n<i>%s</i>", reply))
}

// logReply appends an outbound delivery-log entry, best effort.
func (b *Bot) logReply(ctx context.Context, accountID int64, chatID string, kind appmodels.ReplyKind, text string) {
	entry := &appmodels.DeliveryEntry{
		AccountID:   accountID,
		ChatID:      chatID,
		Direction:   appmodels.DirectionOut,
		ReplyKind:   kind,
		MessageText: text,
	}
	if err := b.db.LogDelivery(ctx, entry); err != nil {
		b.logger.Error("failed to log reply", "chat_id", chatID, "error", err)
	}
}

// chatIDOf returns the chat the callback's message lives in. Telegram
// reports messages older than 48 hours as inaccessible, with only the
// chat surviving.
func chatIDOf(callback *models.CallbackQuery) int64 {
	if callback.Message.Message != nil {
		return callback.Message.Message.Chat.ID
	}
	if callback.Message.InaccessibleMessage != nil {
		return callback.Message.InaccessibleMessage.Chat.ID
	}
	return 0
}
