package poller

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mixelka/avitorelay/internal/autoreply"
	"github.com/mixelka/avitorelay/internal/avito"
	"github.com/mixelka/avitorelay/internal/config"
	"github.com/mixelka/avitorelay/internal/database"
	"github.com/mixelka/avitorelay/pkg/models"
)

// pageSize is the chat-list page size used for boundary-scanned
// pagination.
const pageSize = 50

// Notifier forwards newly detected inbound messages to the operator
// channel.
type Notifier interface {
	// NotifyNewMessage returns the id of the operator-channel message so
	// the eventual auto-reply confirmation can be threaded to it.
	NotifyNewMessage(ctx context.Context, account *models.Account, conv *models.Conversation, msg *models.Message) (int, error)
	NotifyTokenFailure(ctx context.Context, account *models.Account, err error)
}

// TaskScheduler installs delayed tasks keyed by conversation id,
// superseding any pending task for the same key.
type TaskScheduler interface {
	Schedule(key string, delay time.Duration, fn func())
}

// ReplyExecutor runs a fired auto-reply task to a terminal state.
type ReplyExecutor interface {
	Execute(ctx context.Context, task autoreply.Task) autoreply.Outcome
}

// Engine drives the recurring poll cycle: discover live conversations
// per account, diff them against the watermark store, notify the
// operator about new inbound messages and schedule delayed auto-replies.
type Engine struct {
	cfg       *config.Config
	db        *database.DB
	avito     *avito.Client
	notifier  Notifier
	scheduler TaskScheduler
	executor  ReplyExecutor
	logger    *slog.Logger
	busy      atomic.Bool
}

// Deps dependencies for creating an engine
type Deps struct {
	Config    *config.Config
	DB        *database.DB
	Avito     *avito.Client
	Notifier  Notifier
	Scheduler TaskScheduler
	Executor  ReplyExecutor
	Logger    *slog.Logger
}

// NewEngine creates a new poll engine
func NewEngine(deps Deps) *Engine {
	return &Engine{
		cfg:       deps.Config,
		db:        deps.DB,
		avito:     deps.Avito,
		notifier:  deps.Notifier,
		scheduler: deps.Scheduler,
		executor:  deps.Executor,
		logger:    deps.Logger.With("component", "poller"),
	}
}

// Start runs poll cycles until the context is cancelled. The first
// cycle starts immediately.
func (e *Engine) Start(ctx context.Context) {
	e.logger.Info("poller started", "interval", e.cfg.PollInterval)

	e.RunCycle(ctx)

	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("poller stopped")
			return
		case <-ticker.C:
			e.RunCycle(ctx)
		}
	}
}

// RunCycle executes one poll cycle across all active accounts. Cycles
// never overlap: if one is still running when the next is due, the next
// is skipped.
func (e *Engine) RunCycle(ctx context.Context) {
	if !e.busy.CompareAndSwap(false, true) {
		e.logger.Warn("previous cycle still running, skipping")
		return
	}
	defer e.busy.Store(false)

	enabled, err := e.db.PollingEnabled(ctx)
	if err != nil {
		e.logger.Error("failed to read run flag", "error", err)
		return
	}
	if !enabled {
		e.logger.Info("polling is stopped, cycle skipped")
		return
	}

	accounts, err := e.db.GetAllActiveAccounts(ctx)
	if err != nil {
		e.logger.Error("failed to load accounts", "error", err)
		return
	}

	e.logger.Info("poll cycle started", "accounts", len(accounts))
	for _, account := range accounts {
		e.processAccount(ctx, account)
	}
	e.logger.Info("poll cycle finished")
}

// processAccount polls one account. Failures are contained here so one
// broken account never stalls the others.
func (e *Engine) processAccount(ctx context.Context, account *models.Account) {
	logger := e.logger.With("account", account.Name, "account_id", account.ID)

	token, err := e.avito.Token(ctx, account.ClientID, account.ClientSecret)
	if err != nil {
		logger.Error("token exchange failed, skipping account", "error", err)
		e.notifier.NotifyTokenFailure(ctx, account, err)
		return
	}

	boundary := time.Now().Add(-time.Duration(e.cfg.ActivePeriodDays) * 24 * time.Hour).Unix()
	conversations, err := e.fetchLiveConversations(ctx, token, account, boundary)
	if err != nil {
		// An auth-shaped listing failure usually means the cached token
		// expired server-side.
		logger.Warn("chat listing failed, invalidating token", "error", err)
		e.avito.InvalidateToken(account.ClientID)
		return
	}
	if len(conversations) == 0 {
		return
	}

	marks, err := e.db.GetWatermarks(ctx, account.ID)
	if err != nil {
		logger.Error("failed to load watermarks, skipping account", "error", err)
		return
	}

	logger.Info("processing live conversations", "count", len(conversations))
	for i := range conversations {
		e.processConversation(ctx, logger, account, token, &conversations[i], marks)
	}

	// One durable write per account per cycle; a crash before this point
	// re-processes from the previous watermark (at-least-once
	// notification).
	if err := e.db.SaveWatermarks(ctx, account.ID, marks); err != nil {
		logger.Error("failed to save watermarks", "error", err)
	}
}

// fetchLiveConversations pages backward through the account's chat list
// (most recent activity first) and stops at the first conversation
// older than the activity boundary, excluding it and everything after.
func (e *Engine) fetchLiveConversations(ctx context.Context, token string, account *models.Account, boundary int64) ([]models.Conversation, error) {
	var result []models.Conversation

	for offset := 0; ; offset += pageSize {
		page, err := e.avito.ListChats(ctx, token, account.ProfileID, pageSize, offset, false)
		if err != nil {
			return nil, err
		}

		for i := range page {
			if page[i].LastActivity() < boundary {
				return result, nil
			}
			result = append(result, page[i])
		}

		// A short page is the last one.
		if len(page) < pageSize {
			return result, nil
		}
	}
}
