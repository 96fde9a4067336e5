package telegram

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mixelka/avitorelay/internal/avito"
	"github.com/mixelka/avitorelay/internal/config"
	"github.com/mixelka/avitorelay/internal/database"
	"github.com/mixelka/avitorelay/internal/formatter"
	"github.com/mixelka/avitorelay/internal/llm"
)

// Bot represents the operator-facing Telegram bot
type Bot struct {
	bot        *bot.Bot
	db         *database.DB
	avito      *avito.Client
	generators *llm.Factory
	formatter  *formatter.TelegramFormatter
	logger     *slog.Logger
	config     *config.Config

	// Manual-reply conversations awaiting the operator's next text
	// message, keyed by Telegram user id.
	pendingMu sync.Mutex
	pending   map[int64]pendingReply
}

type pendingReply struct {
	accountID int64
	chatID    string // Avito conversation id
}

// BotDeps dependencies for creating a bot
type BotDeps struct {
	Config     *config.Config
	DB         *database.DB
	Avito      *avito.Client
	Generators *llm.Factory
	Formatter  *formatter.TelegramFormatter
	Logger     *slog.Logger
}

// NewBot creates a new Telegram bot
func NewBot(deps BotDeps) (*Bot, error) {
	b := &Bot{
		db:         deps.DB,
		avito:      deps.Avito,
		generators: deps.Generators,
		formatter:  deps.Formatter,
		logger:     deps.Logger.With("component", "telegram_bot"),
		config:     deps.Config,
		pending:    make(map[int64]pendingReply),
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
	}

	tgBot, err := bot.New(deps.Config.TelegramToken, opts...)
	if err != nil {
		return nil, err
	}

	b.bot = tgBot
	b.registerHandlers()

	return b, nil
}

// registerHandlers registers command handlers
func (b *Bot) registerHandlers() {
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, b.handleStart)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, b.handleHelp)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/run", bot.MatchTypePrefix, b.handleRun)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stop", bot.MatchTypePrefix, b.handleStop)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypePrefix, b.handleStatus)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/stats", bot.MatchTypePrefix, b.handleStats)
	b.bot.RegisterHandler(bot.HandlerTypeMessageText, "/accounts", bot.MatchTypePrefix, b.handleAccounts)
	b.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, b.handleCallback)
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) {
	b.logger.Info("starting telegram bot")
	b.bot.Start(ctx)
}

// defaultHandler handles free text: either the answer to a pending
// manual-reply request, or an unknown command.
func (b *Bot) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	if update.Message.From != nil {
		b.pendingMu.Lock()
		reply, ok := b.pending[update.Message.From.ID]
		if ok {
			delete(b.pending, update.Message.From.ID)
		}
		b.pendingMu.Unlock()

		if ok {
			b.processManualReply(ctx, update.Message, reply)
			return
		}
	}

	if update.Message.Text[0] == '/' {
		b.logger.Debug("unknown command", "text", update.Message.Text)
	}
}
