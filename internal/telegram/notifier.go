package telegram

import (
	"context"

	"github.com/mixelka/avitorelay/internal/formatter"
	"github.com/mixelka/avitorelay/pkg/models"
)

// NotifyNewMessage forwards a newly detected inbound message to the
// account's operator chat and returns the Telegram message id for
// threading the eventual auto-reply confirmation.
func (b *Bot) NotifyNewMessage(ctx context.Context, account *models.Account, conv *models.Conversation, msg *models.Message) (int, error) {
	text := b.formatter.FormatNewMessage(account, conv, msg)
	keyboard := formatter.BuildChatKeyboard(account, conv.ID)

	sent, err := b.sendMessageWithKeyboard(ctx, account.NotificationChatID, text, keyboard)
	if err != nil {
		return 0, err
	}

	b.logger.Info("forwarded message to operator",
		"account_id", account.ID,
		"chat_id", conv.ID,
		"telegram_msg_id", sent.ID,
	)
	return sent.ID, nil
}

// NotifyAutoReply sends the operator confirmation for an automatic
// reply, threaded to the original notification when its id is known.
func (b *Bot) NotifyAutoReply(ctx context.Context, account *models.Account, text string, kind models.ReplyKind, replyToMessageID int) error {
	body := b.formatter.FormatAutoReply(account, text, kind)
	_, err := b.sendReply(ctx, account.NotificationChatID, replyToMessageID, body)
	return err
}

// NotifyTokenFailure alerts the operator about broken credentials,
// best effort.
func (b *Bot) NotifyTokenFailure(ctx context.Context, account *models.Account, err error) {
	chatID := account.NotificationChatID
	if b.config.AdminChatID != 0 {
		chatID = b.config.AdminChatID
	}
	if _, sendErr := b.sendMessage(ctx, chatID, b.formatter.FormatTokenFailure(account)); sendErr != nil {
		b.logger.Error("failed to send token-failure alert", "account_id", account.ID, "error", sendErr)
	}
}
