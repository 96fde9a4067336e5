package autoreply

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/mixelka/avitorelay/internal/avito"
	"github.com/mixelka/avitorelay/internal/database"
	"github.com/mixelka/avitorelay/internal/llm"
	"github.com/mixelka/avitorelay/pkg/models"
)

// Task is one scheduled delayed reply, keyed by the conversation id in
// the scheduler registry.
type Task struct {
	AccountID        int64
	ChatID           string // Avito conversation id
	ReplyToMessageID int    // Telegram message id of the original notification
}

// Outcome is the terminal state of an executed task. Tasks are
// discarded after any outcome; there is no retry.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeSent
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSent:
		return "sent"
	default:
		return "failed"
	}
}

// Generators resolves a reply generator for a provider id.
type Generators interface {
	Generator(providerID, apiKey string) (llm.Generator, error)
}

// Notifier delivers the operator-facing confirmation after a reply was
// sent.
type Notifier interface {
	NotifyAutoReply(ctx context.Context, account *models.Account, text string, kind models.ReplyKind, replyToMessageID int) error
}

// Executor runs scheduled reply tasks, re-validating every precondition
// at fire time: the delay window is exactly when operators answer
// manually and configuration changes.
type Executor struct {
	db           *database.DB
	avito        *avito.Client
	generators   Generators
	notifier     Notifier
	historyLimit int
	logger       *slog.Logger
}

// Deps dependencies for creating an executor
type Deps struct {
	DB           *database.DB
	Avito        *avito.Client
	Generators   Generators
	Notifier     Notifier
	HistoryLimit int
	Logger       *slog.Logger
}

// NewExecutor creates a new auto-reply executor
func NewExecutor(deps Deps) *Executor {
	limit := deps.HistoryLimit
	if limit <= 0 {
		limit = 10
	}
	return &Executor{
		db:           deps.DB,
		avito:        deps.Avito,
		generators:   deps.Generators,
		notifier:     deps.Notifier,
		historyLimit: limit,
		logger:       deps.Logger.With("component", "autoreply"),
	}
}

// Execute runs one fired task to a terminal state.
func (x *Executor) Execute(ctx context.Context, task Task) Outcome {
	logger := x.logger.With("account_id", task.AccountID, "chat_id", task.ChatID)

	// Config may have changed since scheduling.
	account, err := x.db.GetAccountByID(ctx, task.AccountID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			logger.Info("auto-reply skipped: account removed")
			return OutcomeSkipped
		}
		logger.Error("failed to reload account", "error", err)
		return OutcomeFailed
	}
	if !account.IsActive || !account.Mode.Enabled() {
		logger.Info("auto-reply skipped: account inactive or automation off")
		return OutcomeSkipped
	}

	token, err := x.avito.Token(ctx, account.ClientID, account.ClientSecret)
	if err != nil {
		logger.Error("auto-reply failed: token exchange", "error", err)
		x.avito.InvalidateToken(account.ClientID)
		return OutcomeFailed
	}

	messages, err := x.avito.ListMessages(ctx, token, account.ProfileID, task.ChatID)
	if err != nil {
		logger.Error("auto-reply failed: fetching messages", "error", err)
		x.avito.InvalidateToken(account.ClientID)
		return OutcomeFailed
	}
	if len(messages) == 0 {
		logger.Info("auto-reply skipped: conversation is empty")
		return OutcomeSkipped
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Created < messages[j].Created
	})

	// The operator (or a previous task) may have answered during the
	// delay window.
	if last := messages[len(messages)-1]; !last.Inbound() {
		logger.Info("auto-reply skipped: conversation already answered")
		return OutcomeSkipped
	}

	// Limited modes only answer the customer's very first message.
	if account.Mode.Limited() {
		inbound := 0
		for i := range messages {
			if messages[i].Inbound() {
				inbound++
			}
		}
		if inbound > 1 {
			logger.Info("auto-reply skipped: limited mode, conversation has follow-ups")
			return OutcomeSkipped
		}
	}

	text, kind, outcome := x.resolveReply(ctx, logger, account, messages)
	if outcome != OutcomeSent {
		return outcome
	}

	if err := x.avito.SendMessage(ctx, token, account.ProfileID, task.ChatID, text); err != nil {
		logger.Error("auto-reply failed: send", "error", err)
		return OutcomeFailed
	}

	entry := &models.DeliveryEntry{
		AccountID:   account.ID,
		ChatID:      task.ChatID,
		Direction:   models.DirectionOut,
		ReplyKind:   kind,
		MessageText: text,
	}
	if err := x.db.LogDelivery(ctx, entry); err != nil {
		logger.Error("failed to log auto-reply", "error", err)
	}

	// The Avito send is the durable side effect of record; a failed
	// confirmation never rolls it back.
	if err := x.notifier.NotifyAutoReply(ctx, account, text, kind, task.ReplyToMessageID); err != nil {
		logger.Error("failed to send auto-reply confirmation", "error", err)
	}

	logger.Info("auto-reply sent", "kind", kind)
	return OutcomeSent
}

// resolveReply produces the reply text for the account's mode. The
// returned outcome is OutcomeSent when text is ready, or the terminal
// failure state otherwise.
func (x *Executor) resolveReply(ctx context.Context, logger *slog.Logger, account *models.Account, messages []models.Message) (string, models.ReplyKind, Outcome) {
	switch {
	case account.Mode.Template():
		if account.AutoReplyTemplateID == nil {
			logger.Error("auto-reply failed: no template configured")
			return "", models.ReplyNone, OutcomeFailed
		}
		template, err := x.db.GetCannedResponseByID(ctx, *account.AutoReplyTemplateID)
		if err != nil {
			logger.Error("auto-reply failed: template lookup", "template_id", *account.AutoReplyTemplateID, "error", err)
			return "", models.ReplyNone, OutcomeFailed
		}
		return template.ResponseText, models.ReplyTemplateAuto, OutcomeSent

	case account.Mode.AI():
		apiKey, err := x.db.APIKey(ctx, account.Provider)
		if err != nil {
			logger.Error("auto-reply failed: no API key", "provider", account.Provider, "error", err)
			return "", models.ReplyNone, OutcomeFailed
		}

		generator, err := x.generators.Generator(account.Provider, apiKey)
		if err != nil {
			logger.Error("auto-reply failed: generator", "provider", account.Provider, "error", err)
			return "", models.ReplyNone, OutcomeFailed
		}

		prompt := x.resolvePrompt(ctx, account)
		history := avito.RenderHistory(messages, x.historyLimit)

		reply, err := generator.GenerateReply(ctx, history, prompt)
		if err != nil {
			logger.Error("auto-reply failed: generation", "provider", account.Provider, "error", err)
			return "", models.ReplyNone, OutcomeFailed
		}
		if strings.TrimSpace(reply) == "" {
			logger.Error("auto-reply failed: generator returned blank text")
			return "", models.ReplyNone, OutcomeFailed
		}
		return reply, models.ReplyAI, OutcomeSent

	default:
		return "", models.ReplyNone, OutcomeSkipped
	}
}

// resolvePrompt picks the account's prompt text: the full prompt by
// default, the limited override when AI-Limited has one configured.
// Missing prompt records fall back to the built-in default.
func (x *Executor) resolvePrompt(ctx context.Context, account *models.Account) string {
	promptID := account.PromptIDFull
	if account.Mode == models.ModeAILimited && account.PromptIDLimited != nil {
		promptID = account.PromptIDLimited
	}
	if promptID == nil {
		return llm.DefaultPrompt
	}

	prompt, err := x.db.GetPromptByID(ctx, *promptID)
	if err != nil {
		x.logger.Warn("prompt lookup failed, using default", "prompt_id", *promptID, "error", err)
		return llm.DefaultPrompt
	}
	return prompt.PromptText
}

// ResolveDelay computes the effective reply delay for an account: its
// own override, else the stored global setting, else the configured
// default; floored at one minute.
func ResolveDelay(ctx context.Context, db *database.DB, account *models.Account, defaultMinutes int) time.Duration {
	minutes := int64(defaultMinutes)
	if global, err := db.GlobalReplyDelay(ctx); err == nil && global > 0 {
		minutes = global
	}
	if account.ReplyDelayMinutes != nil && *account.ReplyDelayMinutes > 0 {
		minutes = *account.ReplyDelayMinutes
	}
	if minutes < 1 {
		minutes = 1
	}
	return time.Duration(minutes) * time.Minute
}
