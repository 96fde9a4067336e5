package poller

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/mixelka/avitorelay/internal/autoreply"
	"github.com/mixelka/avitorelay/pkg/models"
)

// processConversation detects inbound messages newer than the stored
// watermark, dispatches a notification per message and schedules the
// delayed auto-reply. marks is the account's in-memory watermark map,
// persisted by the caller at cycle end.
func (e *Engine) processConversation(ctx context.Context, logger *slog.Logger, account *models.Account, token string, conv *models.Conversation, marks map[string]int64) {
	mark, seen := marks[conv.ID]

	// The chat-list preview already proves nothing new arrived; skip
	// without fetching message bodies.
	if seen && conv.LastActivity() <= mark {
		return
	}

	messages, err := e.avito.ListMessages(ctx, token, account.ProfileID, conv.ID)
	if err != nil {
		logger.Warn("failed to fetch messages, skipping conversation", "chat_id", conv.ID, "error", err)
		return
	}

	inbound := make([]models.Message, 0, len(messages))
	for i := range messages {
		if messages[i].Inbound() {
			inbound = append(inbound, messages[i])
		}
	}
	if len(inbound) == 0 {
		return
	}
	sort.Slice(inbound, func(i, j int) bool {
		return inbound[i].Created < inbound[j].Created
	})

	latest := inbound[len(inbound)-1].Created

	// Cold start: never replay a conversation's history as new.
	if !seen {
		marks[conv.ID] = latest
		return
	}
	if latest <= mark {
		return
	}

	for i := range inbound {
		msg := &inbound[i]
		if msg.Created <= mark {
			continue
		}

		// Non-text messages still advance the watermark but are never
		// surfaced.
		if msg.Type != models.MessageTypeText {
			logger.Info("skipping non-text message", "chat_id", conv.ID, "type", msg.Type)
			continue
		}

		e.dispatch(ctx, logger, account, conv, msg)
	}

	// The maximum inbound timestamp seen this cycle, notified or not;
	// latest > mark is already established above.
	marks[conv.ID] = latest
}

// dispatch records the inbound message, forwards it to the operator
// channel and, when automation is on, schedules the delayed reply.
func (e *Engine) dispatch(ctx context.Context, logger *slog.Logger, account *models.Account, conv *models.Conversation, msg *models.Message) {
	// The log entry must exist once notification has been attempted.
	entry := &models.DeliveryEntry{
		AccountID:   account.ID,
		ChatID:      conv.ID,
		Direction:   models.DirectionIn,
		ReplyKind:   models.ReplyNone,
		MessageText: msg.Content.Text,
	}
	if err := e.db.LogDelivery(ctx, entry); err != nil {
		logger.Error("failed to log inbound message", "chat_id", conv.ID, "error", err)
	}

	notificationID, err := e.notifier.NotifyNewMessage(ctx, account, conv, msg)
	if err != nil {
		// Best effort: a dropped notification must not block watermark
		// advancement or scheduling.
		logger.Error("failed to notify operator", "chat_id", conv.ID, "error", err)
	}

	if !account.Mode.Enabled() {
		return
	}

	delay := autoreply.ResolveDelay(ctx, e.db, account, e.cfg.DefaultReplyDelay)
	task := autoreply.Task{
		AccountID:        account.ID,
		ChatID:           conv.ID,
		ReplyToMessageID: notificationID,
	}

	logger.Info("scheduling auto-reply", "chat_id", conv.ID, "delay", delay)
	e.scheduler.Schedule(conv.ID, delay, func() {
		taskCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		outcome := e.executor.Execute(taskCtx, task)
		logger.Info("auto-reply task finished", "chat_id", task.ChatID, "outcome", outcome)
	})
}
